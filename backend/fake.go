package backend

import (
	gocontext "context"

	"github.com/travis-ci/compute/config"
)

func init() {
	Register("fake", "Fake", map[string]string{
		"NODE_NAME": "name given to the canned node (default \"fake-1\")",
	}, newFakeProvider)
}

// fakeProvider hands back canned records. Handy for CLI dry runs and for
// exercising anything that only needs a Provider.
type fakeProvider struct {
	cfg *config.ProviderConfig
}

func newFakeProvider(cfg *config.ProviderConfig) (Provider, error) {
	return &fakeProvider{cfg: cfg}, nil
}

func (p *fakeProvider) nodeName() string {
	if p.cfg.IsSet("NODE_NAME") {
		return p.cfg.Get("NODE_NAME")
	}
	return "fake-1"
}

func (p *fakeProvider) ListNodes(ctx gocontext.Context) ([]*Node, error) {
	return []*Node{
		{
			ID:        "fake-node-id",
			Name:      p.nodeName(),
			State:     StateRunning,
			PrivateIP: "10.0.0.1",
			Extra:     map[string]string{"description": "a fake node"},
			Status:    &OperationStatus{},
		},
	}, nil
}

func (p *fakeProvider) ListImages(ctx gocontext.Context) ([]*Image, error) {
	return []*Image{
		{ID: "fake-image-id", Name: "fake image", Extra: map[string]string{}},
	}, nil
}

func (p *fakeProvider) ListLocations(ctx gocontext.Context) ([]*Location, error) {
	return []*Location{
		{ID: "FAKE1", Name: "Fake Datacenter 1", Country: "Faketopia"},
	}, nil
}

func (p *fakeProvider) CreateNode(ctx gocontext.Context, req *CreateNodeRequest) (*Node, error) {
	if _, ok := req.Credential.(*PasswordCredential); !ok {
		return nil, ErrNonPasswordCredential
	}

	state := StateTerminated
	if req.Started {
		state = StateRunning
	}

	return &Node{
		ID:     "fake-node-id",
		Name:   req.Name,
		State:  state,
		Extra:  map[string]string{"description": req.Description},
		Status: &OperationStatus{},
	}, nil
}

func (p *fakeProvider) RebootNode(ctx gocontext.Context, nodeID string) (bool, error) {
	return true, nil
}

func (p *fakeProvider) DestroyNode(ctx gocontext.Context, nodeID string) (bool, error) {
	return true, nil
}
