package backend

import (
	gocontext "context"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/travis-ci/compute/config"
	"github.com/travis-ci/compute/context"
	"github.com/travis-ci/compute/metrics"
)

var opsourceHelp = map[string]string{
	"USER":        "Opsource cloud account username",
	"KEY":         "Opsource cloud account password",
	"ENDPOINT":    "API endpoint, including scheme and base path (default " + defaultOpsourceEndpoint + ")",
	"API_VERSION": "API version segment used in request paths (default " + defaultOpsourceAPIVersion + ")",
}

func init() {
	Register("opsource", "Opsource Cloud", opsourceHelp, newOpsourceProvider)
}

type opsourceProvider struct {
	client *opsourceClient
}

func newOpsourceProvider(cfg *config.ProviderConfig) (Provider, error) {
	if !cfg.IsSet("USER") {
		return nil, ErrMissingUserConfig
	}
	if !cfg.IsSet("KEY") {
		return nil, ErrMissingKeyConfig
	}

	endpoint := defaultOpsourceEndpoint
	if cfg.IsSet("ENDPOINT") {
		endpoint = cfg.Get("ENDPOINT")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, errors.Wrap(err, "couldn't parse endpoint URL")
	}

	apiVersion := defaultOpsourceAPIVersion
	if cfg.IsSet("API_VERSION") {
		apiVersion = cfg.Get("API_VERSION")
	}

	return &opsourceProvider{
		client: newOpsourceClient(cfg.Get("USER"), cfg.Get("KEY"), endpoint, apiVersion),
	}, nil
}

func (p *opsourceProvider) ListNodes(ctx gocontext.Context) ([]*Node, error) {
	start := time.Now()

	deployed, err := p.client.request(ctx, "GET", "/server/deployed", nil)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't list deployed servers")
	}
	nodes := decodeOpsourceNodes(deployed)

	pending, err := p.client.request(ctx, "GET", "/server/pendingDeploy", nil)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't list pending-deploy servers")
	}
	nodes = append(nodes, decodeOpsourceNodes(pending)...)

	metrics.TimeSince("compute.provider.opsource.list_nodes", start)
	context.LoggerFromContext(ctx).WithField("count", len(nodes)).Debug("listed nodes")

	return nodes, nil
}

func (p *opsourceProvider) ListImages(ctx gocontext.Context) ([]*Image, error) {
	start := time.Now()

	root, err := p.client.request(ctx, "GET", "/base/image", nil)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't list base images")
	}

	images := decodeOpsourceImages(root)

	metrics.TimeSince("compute.provider.opsource.list_images", start)
	context.LoggerFromContext(ctx).WithField("count", len(images)).Debug("listed base images")

	return images, nil
}

func (p *opsourceProvider) ListLocations(ctx gocontext.Context) ([]*Location, error) {
	root, err := p.client.request(ctx, "GET", "/datacenter", nil)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't list datacenters")
	}

	return decodeOpsourceLocations(root), nil
}

func (p *opsourceProvider) ListNetworks(ctx gocontext.Context) ([]*Network, error) {
	start := time.Now()

	root, err := p.client.request(ctx, "GET", "/networkWithLocation", nil)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't list networks")
	}

	elements := root.findAll("network")
	networks := make([]*Network, 0, len(elements))
	for _, el := range elements {
		network := decodeOpsourceNetwork(el)

		if locationID := el.findText("location"); locationID != "" {
			// One full /datacenter round trip per decoded network, the same
			// call pattern as the upstream API client this replaces.
			// TODO: fetch the location list once per ListNetworks call.
			location, err := p.locationByID(ctx, locationID)
			if err != nil {
				return nil, err
			}
			network.Location = location
		}

		networks = append(networks, network)
	}

	metrics.TimeSince("compute.provider.opsource.list_networks", start)

	return networks, nil
}

// locationByID fetches the location list and scans it for id. A location
// the vendor references but does not list comes back as nil, nil.
func (p *opsourceProvider) locationByID(ctx gocontext.Context, id string) (*Location, error) {
	locations, err := p.ListLocations(ctx)
	if err != nil {
		return nil, err
	}

	for _, location := range locations {
		if location.ID == id {
			return location, nil
		}
	}

	return nil, nil
}

// CreateNode deploys a new server. The vendor's creation response carries
// no id for the new resource, so the returned record is the LAST entry in a
// fresh listing whose name matches the requested name; when duplicate names
// exist it is not guaranteed to be the server just created.
func (p *opsourceProvider) CreateNode(ctx gocontext.Context, req *CreateNodeRequest) (*Node, error) {
	password, ok := req.Credential.(*PasswordCredential)
	if !ok {
		return nil, ErrNonPasswordCredential
	}

	start := time.Now()

	resourcePath, err := p.client.resourcePath(ctx)
	if err != nil {
		return nil, err
	}

	body, err := encodeOpsourceServerRequest(&opsourceServerRequest{
		Name:                  req.Name,
		Description:           req.Description,
		VlanResourcePath:      resourcePath + "/network/" + req.Network.ID,
		ImageResourcePath:     resourcePath + "/image/" + req.Image.ID,
		AdministratorPassword: password.Password,
		IsStarted:             req.Started,
	})
	if err != nil {
		return nil, err
	}

	if _, err := p.client.request(ctx, "POST", "/server", body); err != nil {
		return nil, errors.Wrap(err, "couldn't create server")
	}

	nodes, err := p.ListNodes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't list servers after create")
	}

	var node *Node
	for _, n := range nodes {
		if n.Name == req.Name {
			node = n
		}
	}
	if node == nil {
		return nil, errors.Errorf("created server %q missing from listing", req.Name)
	}

	metrics.TimeSince("compute.provider.opsource.create_node", start)
	context.LoggerFromContext(ctx).WithFields(logrus.Fields{
		"name":    req.Name,
		"node_id": node.ID,
	}).Info("created node")

	return node, nil
}

func (p *opsourceProvider) RebootNode(ctx gocontext.Context, nodeID string) (bool, error) {
	return p.serverAction(ctx, nodeID, "restart")
}

func (p *opsourceProvider) DestroyNode(ctx gocontext.Context, nodeID string) (bool, error) {
	return p.serverAction(ctx, nodeID, "delete")
}

func (p *opsourceProvider) StartNode(ctx gocontext.Context, nodeID string) (bool, error) {
	return p.serverAction(ctx, nodeID, "start")
}

func (p *opsourceProvider) ShutdownNode(ctx gocontext.Context, nodeID string) (bool, error) {
	return p.serverAction(ctx, nodeID, "shutdown")
}

func (p *opsourceProvider) PowerOffNode(ctx gocontext.Context, nodeID string) (bool, error) {
	return p.serverAction(ctx, nodeID, "poweroff")
}

// serverAction fires a one-shot lifecycle request. The vendor reports the
// outcome in a result field; anything but the literal "SUCCESS" is a
// logical failure, returned as false without an error.
func (p *opsourceProvider) serverAction(ctx gocontext.Context, nodeID, action string) (bool, error) {
	start := time.Now()

	root, err := p.client.request(ctx, "GET", "/server/"+url.QueryEscape(nodeID)+"?"+action, nil)
	if err != nil {
		return false, errors.Wrapf(err, "couldn't %s server", action)
	}

	ok := root.findText("result") == "SUCCESS"

	metrics.TimeSince("compute.provider.opsource."+action, start)
	context.LoggerFromContext(ctx).WithFields(logrus.Fields{
		"node_id": nodeID,
		"action":  action,
		"ok":      ok,
	}).Info("requested server action")

	return ok, nil
}
