package backend

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	opsourceNamespaceBase = "http://oec.api.opsource.net/schemas"
	opsourceServerNS      = opsourceNamespaceBase + "/server"
)

// xmlElement is a generic element tree node. The vendor versions its XML
// namespaces per resource type, so lookups derive the namespace from the
// element they start at instead of hardcoding one.
type xmlElement struct {
	name     xml.Name
	text     string
	children []*xmlElement
}

// parseXML reads a document into an element tree, returning the root.
func parseXML(r io.Reader) (*xmlElement, error) {
	dec := xml.NewDecoder(r)

	var root *xmlElement
	stack := []*xmlElement{}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "couldn't tokenize XML document")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &xmlElement{name: t.Name}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			} else if root == nil {
				root = el
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}

	if root == nil {
		return nil, errors.New("document contains no elements")
	}

	return root, nil
}

// find walks a slash-separated path of child element names. Every step must
// live in the same namespace as the element find was invoked on; children
// qualified under any other namespace never match.
func (e *xmlElement) find(path string) *xmlElement {
	space := e.name.Space

	cur := e
	for _, step := range strings.Split(path, "/") {
		var next *xmlElement
		for _, child := range cur.children {
			if child.name.Space == space && child.name.Local == step {
				next = child
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}

	return cur
}

// findText returns the trimmed text content at path, or "" if the path does
// not resolve.
func (e *xmlElement) findText(path string) string {
	el := e.find(path)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.text)
}

// findAll returns the direct children named local in e's own namespace, in
// document order.
func (e *xmlElement) findAll(local string) []*xmlElement {
	found := []*xmlElement{}
	for _, child := range e.children {
		if child.name.Space == e.name.Space && child.name.Local == local {
			found = append(found, child)
		}
	}
	return found
}

// xmlBool decodes the vendor's boolean-ish text fields. Only the literal
// string "true" is true; everything else, absence and garbage included,
// is false. The vendor's own tooling relies on this leniency, so it stays.
func xmlBool(value string) bool {
	return value == "true"
}

// decodeOpsourceNodes decodes a server listing envelope. The vendor uses
// the same envelope shape for deployed and pending-deploy servers, so both
// item tags are accepted: deployed entries first, pending entries appended
// after.
func decodeOpsourceNodes(envelope *xmlElement) []*Node {
	elements := envelope.findAll("DeployedServer")
	elements = append(elements, envelope.findAll("PendingDeployServer")...)

	nodes := make([]*Node, 0, len(elements))
	for _, el := range elements {
		nodes = append(nodes, decodeOpsourceNode(el))
	}
	return nodes
}

func decodeOpsourceNode(el *xmlElement) *Node {
	state := StateTerminated
	if xmlBool(el.findText("isStarted")) {
		state = StateRunning
	}

	extra := map[string]string{
		"description":              el.findText("description"),
		"sourceImageId":            el.findText("sourceImageId"),
		"networkId":                el.findText("networkId"),
		"machineName":              el.findText("machineName"),
		"deployedTime":             el.findText("deployedTime"),
		"cpuCount":                 el.findText("machineSpecification/cpuCount"),
		"memoryMb":                 el.findText("machineSpecification/memoryMb"),
		"osStorageGb":              el.findText("machineSpecification/osStorageGb"),
		"additionalLocalStorageGb": el.findText("machineSpecification/additionalLocalStorageGb"),
		"OS_type":                  el.findText("machineSpecification/operatingSystem/type"),
		"OS_displayName":           el.findText("machineSpecification/operatingSystem/displayName"),
	}

	return &Node{
		ID:        el.findText("id"),
		Name:      el.findText("name"),
		State:     state,
		PrivateIP: el.findText("privateIpAddress"),
		Extra:     extra,
		Status:    decodeOpsourceStatus(el),
	}
}

func decodeOpsourceLocations(envelope *xmlElement) []*Location {
	elements := envelope.findAll("datacenter")
	locations := make([]*Location, 0, len(elements))
	for _, el := range elements {
		locations = append(locations, &Location{
			ID:      el.findText("location"),
			Name:    el.findText("displayName"),
			Country: el.findText("country"),
		})
	}
	return locations
}

// decodeOpsourceImages decodes base OS images only; customer snapshot
// images use a different item tag and are not handled here.
func decodeOpsourceImages(envelope *xmlElement) []*Image {
	elements := envelope.findAll("ServerImage")
	images := make([]*Image, 0, len(elements))
	for _, el := range elements {
		images = append(images, &Image{
			ID:   el.findText("id"),
			Name: el.findText("name"),
			Extra: map[string]string{
				"description":       el.findText("description"),
				"OS_type":           el.findText("operatingSystem/type"),
				"OS_displayName":    el.findText("operatingSystem/displayName"),
				"cpuCount":          el.findText("cpuCount"),
				"resourcePath":      el.findText("resourcePath"),
				"memory":            el.findText("memory"),
				"osStorage":         el.findText("osStorage"),
				"additionalStorage": el.findText("additionalStorage"),
				"created":           el.findText("created"),
				"location":          el.findText("location"),
			},
		})
	}
	return images
}

// decodeOpsourceNetwork decodes a single network element. The location
// reference comes back as a bare id string; resolving it against the
// location list is the caller's business.
func decodeOpsourceNetwork(el *xmlElement) *Network {
	return &Network{
		ID:          el.findText("id"),
		Name:        el.findText("name"),
		Description: el.findText("description"),
		PrivateNet:  xmlBool(el.findText("privateNet")),
		Multicast:   xmlBool(el.findText("multicast")),
		Status:      decodeOpsourceStatus(el),
	}
}

// decodeOpsourceStatus decodes the single status child of a node or network
// element. A missing status element yields an all-empty record rather than
// a nil pointer.
func decodeOpsourceStatus(el *xmlElement) *OperationStatus {
	status := el.find("status")
	if status == nil {
		return &OperationStatus{}
	}

	return &OperationStatus{
		Action:              status.findText("action"),
		RequestTime:         status.findText("requestTime"),
		UserName:            status.findText("userName"),
		NumberOfSteps:       status.findText("numberOfSteps"),
		UpdateTime:          status.findText("updateTime"),
		StepName:            status.findText("step/name"),
		StepNumber:          status.findText("step/number"),
		StepPercentComplete: status.findText("step/percentComplete"),
		FailureReason:       status.findText("failureReason"),
	}
}

// decodeOpsourceSizes decodes server flavor elements. These are the only
// records with parsed numeric fields, and a number that fails to parse is a
// decode error rather than an empty value.
func decodeOpsourceSizes(envelope *xmlElement) ([]*Size, error) {
	elements := envelope.findAll("flavor")
	if envelope.name.Local == "flavor" {
		elements = []*xmlElement{envelope}
	}

	sizes := make([]*Size, 0, len(elements))
	for _, el := range elements {
		id, err := strconv.Atoi(el.findText("id"))
		if err != nil {
			return nil, errors.Wrap(err, "couldn't parse flavor id")
		}

		ram, err := strconv.Atoi(el.findText("ram"))
		if err != nil {
			return nil, errors.Wrap(err, "couldn't parse flavor ram")
		}

		price, err := strconv.ParseFloat(el.findText("price"), 64)
		if err != nil {
			return nil, errors.Wrap(err, "couldn't parse flavor price")
		}

		sizes = append(sizes, &Size{
			ID:   id,
			Name: el.findText("name"),
			RAM:  ram,
			// The vendor quotes prices per month; normalize to hundredths
			// per hour.
			Price: price / (100 * 24 * 30),
		})
	}

	return sizes, nil
}

// opsourceServerRequest is the create-server request body. The vendor
// requires exactly these six elements in exactly this order.
type opsourceServerRequest struct {
	XMLName               xml.Name `xml:"Server"`
	Namespace             string   `xml:"xmlns,attr"`
	Name                  string   `xml:"name"`
	Description           string   `xml:"description"`
	VlanResourcePath      string   `xml:"vlanResourcePath"`
	ImageResourcePath     string   `xml:"imageResourcePath"`
	AdministratorPassword string   `xml:"administratorPassword"`
	IsStarted             bool     `xml:"isStarted"`
}

func encodeOpsourceServerRequest(req *opsourceServerRequest) ([]byte, error) {
	req.Namespace = opsourceServerNS

	body, err := xml.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't marshal server create request")
	}
	return body, nil
}
