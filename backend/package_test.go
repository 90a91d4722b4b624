package backend

import (
	gocontext "context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travis-ci/compute/config"
)

func TestNewBackendProvider(t *testing.T) {
	provider, err := NewBackendProvider("fake",
		config.ProviderConfigFromMap(map[string]string{
			"NODE_NAME": "fake-9000",
		}))
	require.NoError(t, err)
	require.NotNil(t, provider)

	nodes, err := provider.ListNodes(gocontext.TODO())
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "fake-9000", nodes[0].Name)
}

func TestNewBackendProvider_unknown(t *testing.T) {
	_, err := NewBackendProvider("qubit-flux-capacitor",
		config.ProviderConfigFromMap(map[string]string{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qubit-flux-capacitor")
}

func TestEachBackend(t *testing.T) {
	aliases := []string{}
	EachBackend(func(b *Backend) {
		aliases = append(aliases, b.Alias)
	})

	assert.Contains(t, aliases, "fake")
	assert.Contains(t, aliases, "opsource")

	// aliases come back sorted
	for i := 1; i < len(aliases); i++ {
		assert.True(t, aliases[i-1] < aliases[i],
			"%q should sort before %q", aliases[i-1], aliases[i])
	}
}

func TestFakeProvider(t *testing.T) {
	provider, err := NewBackendProvider("fake",
		config.ProviderConfigFromMap(map[string]string{}))
	require.NoError(t, err)

	ctx := gocontext.TODO()

	node, err := provider.CreateNode(ctx, &CreateNodeRequest{
		Name:       "fresh",
		Image:      &Image{ID: "fake-image-id"},
		Network:    &Network{ID: "fake-network-id"},
		Credential: &PasswordCredential{Password: "opensesame"},
		Started:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", node.Name)
	assert.Equal(t, StateRunning, node.State)

	ok, err := provider.RebootNode(ctx, node.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = provider.DestroyNode(ctx, node.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}
