// Package backend provides a registry of cloud compute providers along with
// the record types they all trade in.
package backend

import (
	"context"
	"fmt"
)

var (
	// ErrMissingUserConfig is returned if the provider config was missing a
	// 'USER' configuration, but one is required.
	ErrMissingUserConfig = fmt.Errorf("expected config key user")

	// ErrMissingKeyConfig is returned if the provider config was missing a
	// 'KEY' configuration, but one is required.
	ErrMissingKeyConfig = fmt.Errorf("expected config key key")

	// ErrInvalidCredentials is returned when the vendor rejects the
	// configured credentials, regardless of what the response body said.
	ErrInvalidCredentials = fmt.Errorf("invalid provider credentials")

	// ErrNonPasswordCredential is returned by CreateNode when the supplied
	// credential is not a password credential.
	ErrNonPasswordCredential = fmt.Errorf("create requires a password credential")
)

// APIError is a structured error parsed out of a vendor error response.
type APIError struct {
	Code   string
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider API error %s: %s", e.Code, e.Detail)
}

// MalformedResponseError is returned when a response body could not be
// parsed as XML, on the success path and the error path alike.
type MalformedResponseError struct {
	Body string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response body: %q", e.Body)
}

// NodeState is the run state of a node as reported by the provider.
type NodeState string

const (
	StateRunning    NodeState = "running"
	StateTerminated NodeState = "terminated"
)

// A Node is a deployed or pending-deploy virtual machine. Identity is
// whatever id string the provider handed back; duplicates in upstream
// listings are passed through unmodified.
type Node struct {
	ID        string
	Name      string
	State     NodeState
	PrivateIP string

	// Extra holds provider-specific fields as opaque strings, preserving
	// the vendor's original representation.
	Extra map[string]string

	Status *OperationStatus
}

// An Image is a bootable OS template provided by the vendor.
type Image struct {
	ID    string
	Name  string
	Extra map[string]string
}

// A Location is a data center location servers and networks live in.
type Location struct {
	ID      string
	Name    string
	Country string
}

// A Network is a vendor-side virtual network, tied to a location.
type Network struct {
	ID          string
	Name        string
	Description string
	Location    *Location
	PrivateNet  bool
	Multicast   bool
	Status      *OperationStatus
}

// A Size is a server flavor. Unlike the other records its numeric fields
// are parsed, and malformed numbers are decode errors.
type Size struct {
	ID    int
	Name  string
	RAM   int
	Price float64
}

// OperationStatus is a provider-reported progress snapshot for an
// asynchronous action, embedded in node and network records. A provider
// that reports nothing yields the zero value, never a nil pointer.
type OperationStatus struct {
	Action              string
	RequestTime         string
	UserName            string
	NumberOfSteps       string
	UpdateTime          string
	StepName            string
	StepNumber          string
	StepPercentComplete string
	FailureReason       string
}

// A Credential is something a node can be provisioned with. The concrete
// type determines the capability.
type Credential interface {
	credential()
}

// PasswordCredential carries an initial administrator password.
type PasswordCredential struct {
	Password string
}

func (c *PasswordCredential) credential() {}

// CreateNodeRequest holds everything needed to deploy a new node.
type CreateNodeRequest struct {
	Name        string
	Description string
	Image       *Image
	Network     *Network
	Credential  Credential

	// Started determines whether the node boots as part of deployment.
	Started bool
}

// Provider represents some kind of compute provider. It can point to an
// external HTTP API, or something completely different.
type Provider interface {
	// ListNodes returns the provider's servers, deployed entries first and
	// pending-deploy entries appended after.
	ListNodes(context.Context) ([]*Node, error)

	// ListImages returns the provider's base OS images. Customer snapshot
	// images are not included.
	ListImages(context.Context) ([]*Image, error)

	// ListLocations returns the data center locations available for
	// deploying servers and networks.
	ListLocations(context.Context) ([]*Location, error)

	// CreateNode deploys a new node and returns its record. See the
	// provider implementation for identity caveats around duplicate names.
	CreateNode(context.Context, *CreateNodeRequest) (*Node, error)

	// RebootNode restarts a node. A false return with a nil error means
	// the provider reported a logical failure; errors are reserved for
	// transport and decode problems.
	RebootNode(ctx context.Context, nodeID string) (bool, error)

	// DestroyNode deletes a node, with the same false-vs-error contract as
	// RebootNode.
	DestroyNode(ctx context.Context, nodeID string) (bool, error)
}

// NetworkLister is implemented by providers that expose virtual network
// listings.
type NetworkLister interface {
	ListNetworks(context.Context) ([]*Network, error)
}

// NodePowerManager is implemented by providers with power controls beyond
// reboot and destroy. All three verbs share RebootNode's false-vs-error
// contract.
type NodePowerManager interface {
	// StartNode powers on an existing deployed node.
	StartNode(ctx context.Context, nodeID string) (bool, error)

	// ShutdownNode asks the guest OS to shut down cleanly. Success means
	// the request was passed into the operating system, not that the node
	// has stopped.
	ShutdownNode(ctx context.Context, nodeID string) (bool, error)

	// PowerOffNode stops a node abruptly, the remote equivalent of pulling
	// the power cord.
	PowerOffNode(ctx context.Context, nodeID string) (bool, error)
}
