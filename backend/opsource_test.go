package backend

import (
	gocontext "context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travis-ci/compute/config"
)

const opsourceTestAccountXML = `<ns4:Account xmlns:ns4="http://oec.api.opsource.net/schemas/directory">
  <ns4:userName>testuser</ns4:userName>
  <ns4:orgId>abc-123</ns4:orgId>
</ns4:Account>`

func opsourceTestSuccessXML(operation string) string {
	return fmt.Sprintf(`<ns6:Status xmlns:ns6="http://oec.api.opsource.net/schemas/general">
  <ns6:operation>%s</ns6:operation>
  <ns6:result>SUCCESS</ns6:result>
  <ns6:resultDetail>submitted</ns6:resultDetail>
</ns6:Status>`, operation)
}

func opsourceTestServerListXML(tag string, servers ...[2]string) string {
	body := `<ServersWithState xmlns="http://oec.api.opsource.net/schemas/server">`
	for _, server := range servers {
		body += fmt.Sprintf(
			"<%s><id>%s</id><name>%s</name><isStarted>true</isStarted></%s>",
			tag, server[0], server[1], tag)
	}
	return body + `</ServersWithState>`
}

func opsourceTestSetup(t *testing.T) (*opsourceProvider, *http.ServeMux, func()) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)

	provider, err := newOpsourceProvider(config.ProviderConfigFromMap(map[string]string{
		"USER":     "testuser",
		"KEY":      "testpass",
		"ENDPOINT": server.URL,
	}))
	require.NoError(t, err)

	return provider.(*opsourceProvider), mux, server.Close
}

func opsourceTestHandleAccount(mux *http.ServeMux, calls *int) {
	mux.HandleFunc("/0.9/myaccount", func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls++
		}
		fmt.Fprint(w, opsourceTestAccountXML)
	})
}

func TestNewOpsourceProvider_missingConfig(t *testing.T) {
	_, err := newOpsourceProvider(config.ProviderConfigFromMap(map[string]string{}))
	assert.Equal(t, ErrMissingUserConfig, err)

	_, err = newOpsourceProvider(config.ProviderConfigFromMap(map[string]string{
		"USER": "testuser",
	}))
	assert.Equal(t, ErrMissingKeyConfig, err)
}

func TestOpsourceListNodes(t *testing.T) {
	provider, mux, teardown := opsourceTestSetup(t)
	defer teardown()

	opsourceTestHandleAccount(mux, nil)
	mux.HandleFunc("/0.9/abc-123/server/deployed", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)

		user, key, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "testuser", user)
		assert.Equal(t, "testpass", key)

		fmt.Fprint(w, opsourceTestServerListXML("DeployedServer",
			[2]string{"11111", "web1"}, [2]string{"22222", "web2"}))
	})
	mux.HandleFunc("/0.9/abc-123/server/pendingDeploy", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, opsourceTestServerListXML("PendingDeployServer",
			[2]string{"33333", "web3"}))
	})

	nodes, err := provider.ListNodes(gocontext.TODO())
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	assert.Equal(t, "11111", nodes[0].ID)
	assert.Equal(t, "22222", nodes[1].ID)
	assert.Equal(t, "33333", nodes[2].ID)
	assert.Equal(t, StateRunning, nodes[0].State)
}

func TestOpsourceClient_memoizesOrgID(t *testing.T) {
	provider, mux, teardown := opsourceTestSetup(t)
	defer teardown()

	accountCalls := 0
	opsourceTestHandleAccount(mux, &accountCalls)
	mux.HandleFunc("/0.9/abc-123/datacenter", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<Datacenters xmlns="http://oec.api.opsource.net/schemas/datacenter"></Datacenters>`)
	})

	for i := 0; i < 3; i++ {
		_, err := provider.ListLocations(gocontext.TODO())
		require.NoError(t, err)
	}

	assert.Equal(t, 1, accountCalls)
}

func TestOpsourceClient_invalidCredentials(t *testing.T) {
	provider, mux, teardown := opsourceTestSetup(t)
	defer teardown()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, "<html><body>no dice</body></html>")
	})

	_, err := provider.ListNodes(gocontext.TODO())
	require.Error(t, err)
	assert.Equal(t, ErrInvalidCredentials, errors.Cause(err))
}

func TestOpsourceClient_apiError(t *testing.T) {
	provider, mux, teardown := opsourceTestSetup(t)
	defer teardown()

	opsourceTestHandleAccount(mux, nil)
	mux.HandleFunc("/0.9/abc-123/server/deployed", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `<ns6:Status xmlns:ns6="http://oec.api.opsource.net/schemas/general">
  <ns6:resultCode>REASON_400</ns6:resultCode>
  <ns6:resultDetail>Bad request</ns6:resultDetail>
</ns6:Status>`)
	})

	_, err := provider.ListNodes(gocontext.TODO())
	require.Error(t, err)

	apiErr, ok := errors.Cause(err).(*APIError)
	require.True(t, ok, "expected *APIError, got %T", errors.Cause(err))
	assert.Equal(t, "REASON_400", apiErr.Code)
	assert.Equal(t, "Bad request", apiErr.Detail)
}

func TestOpsourceClient_malformedResponse(t *testing.T) {
	provider, mux, teardown := opsourceTestSetup(t)
	defer teardown()

	opsourceTestHandleAccount(mux, nil)
	mux.HandleFunc("/0.9/abc-123/server/deployed", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<<< surprise")
	})

	_, err := provider.ListNodes(gocontext.TODO())
	require.Error(t, err)

	malformedErr, ok := errors.Cause(err).(*MalformedResponseError)
	require.True(t, ok, "expected *MalformedResponseError, got %T", errors.Cause(err))
	assert.Equal(t, "<<< surprise", malformedErr.Body)
}

func TestOpsourceClient_opaqueError(t *testing.T) {
	provider, mux, teardown := opsourceTestSetup(t)
	defer teardown()

	opsourceTestHandleAccount(mux, nil)
	mux.HandleFunc("/0.9/abc-123/server/deployed", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "upstream exploded")
	})

	_, err := provider.ListNodes(gocontext.TODO())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestOpsourceServerActions(t *testing.T) {
	provider, mux, teardown := opsourceTestSetup(t)
	defer teardown()

	opsourceTestHandleAccount(mux, nil)

	queries := []string{}
	mux.HandleFunc("/0.9/abc-123/server/node-1", func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		fmt.Fprint(w, opsourceTestSuccessXML("Server Action"))
	})

	ctx := gocontext.TODO()
	for _, action := range []func(gocontext.Context, string) (bool, error){
		provider.RebootNode,
		provider.DestroyNode,
		provider.StartNode,
		provider.ShutdownNode,
		provider.PowerOffNode,
	} {
		ok, err := action(ctx, "node-1")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	assert.Equal(t, []string{"restart", "delete", "start", "shutdown", "poweroff"}, queries)
}

func TestOpsourceServerAction_logicalFailure(t *testing.T) {
	provider, mux, teardown := opsourceTestSetup(t)
	defer teardown()

	opsourceTestHandleAccount(mux, nil)
	mux.HandleFunc("/0.9/abc-123/server/node-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<ns6:Status xmlns:ns6="http://oec.api.opsource.net/schemas/general">
  <ns6:result>FAILED</ns6:result>
</ns6:Status>`)
	})

	ok, err := provider.RebootNode(gocontext.TODO(), "node-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpsourceCreateNode(t *testing.T) {
	provider, mux, teardown := opsourceTestSetup(t)
	defer teardown()

	opsourceTestHandleAccount(mux, nil)

	var createBody string
	mux.HandleFunc("/0.9/abc-123/server", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/xml", r.Header.Get("Content-Type"))

		raw, err := ioutil.ReadAll(r.Body)
		require.NoError(t, err)
		createBody = string(raw)

		fmt.Fprint(w, opsourceTestSuccessXML("Deploy Server"))
	})
	mux.HandleFunc("/0.9/abc-123/server/deployed", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, opsourceTestServerListXML("DeployedServer",
			[2]string{"11111", "web1"}, [2]string{"22222", "other"}))
	})
	mux.HandleFunc("/0.9/abc-123/server/pendingDeploy", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, opsourceTestServerListXML("PendingDeployServer",
			[2]string{"33333", "web1"}))
	})

	node, err := provider.CreateNode(gocontext.TODO(), &CreateNodeRequest{
		Name:        "web1",
		Description: "frontend box",
		Image:       &Image{ID: "img-1"},
		Network:     &Network{ID: "net-1"},
		Credential:  &PasswordCredential{Password: "opensesame"},
		Started:     true,
	})
	require.NoError(t, err)

	// duplicate names resolve to the last entry in the fresh listing
	assert.Equal(t, "33333", node.ID)
	assert.Equal(t, "web1", node.Name)

	assert.Equal(t,
		`<Server xmlns="http://oec.api.opsource.net/schemas/server">`+
			`<name>web1</name>`+
			`<description>frontend box</description>`+
			`<vlanResourcePath>/0.9/abc-123/network/net-1</vlanResourcePath>`+
			`<imageResourcePath>/0.9/abc-123/image/img-1</imageResourcePath>`+
			`<administratorPassword>opensesame</administratorPassword>`+
			`<isStarted>true</isStarted>`+
			`</Server>`,
		createBody)
}

func TestOpsourceCreateNode_nonPasswordCredential(t *testing.T) {
	provider, _, teardown := opsourceTestSetup(t)
	defer teardown()

	_, err := provider.CreateNode(gocontext.TODO(), &CreateNodeRequest{
		Name:    "web1",
		Image:   &Image{ID: "img-1"},
		Network: &Network{ID: "net-1"},
	})
	assert.Equal(t, ErrNonPasswordCredential, err)
}

func TestOpsourceCreateNode_missingFromListing(t *testing.T) {
	provider, mux, teardown := opsourceTestSetup(t)
	defer teardown()

	opsourceTestHandleAccount(mux, nil)
	mux.HandleFunc("/0.9/abc-123/server", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, opsourceTestSuccessXML("Deploy Server"))
	})
	mux.HandleFunc("/0.9/abc-123/server/deployed", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, opsourceTestServerListXML("DeployedServer"))
	})
	mux.HandleFunc("/0.9/abc-123/server/pendingDeploy", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, opsourceTestServerListXML("PendingDeployServer"))
	})

	_, err := provider.CreateNode(gocontext.TODO(), &CreateNodeRequest{
		Name:       "web1",
		Image:      &Image{ID: "img-1"},
		Network:    &Network{ID: "net-1"},
		Credential: &PasswordCredential{Password: "opensesame"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing from listing")
}

func TestOpsourceListNetworks(t *testing.T) {
	provider, mux, teardown := opsourceTestSetup(t)
	defer teardown()

	opsourceTestHandleAccount(mux, nil)

	datacenterCalls := 0
	mux.HandleFunc("/0.9/abc-123/datacenter", func(w http.ResponseWriter, r *http.Request) {
		datacenterCalls++
		fmt.Fprint(w, `<Datacenters xmlns="http://oec.api.opsource.net/schemas/datacenter">
  <datacenter>
    <location>NA3</location>
    <displayName>US - West</displayName>
    <country>US</country>
  </datacenter>
</Datacenters>`)
	})
	mux.HandleFunc("/0.9/abc-123/networkWithLocation", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<NetworkWithLocations xmlns="http://oec.api.opsource.net/schemas/network">
  <network>
    <id>net-1</id>
    <name>dev network</name>
    <location>NA3</location>
    <privateNet>false</privateNet>
    <multicast>true</multicast>
  </network>
  <network>
    <id>net-2</id>
    <name>stray network</name>
    <location>EU9</location>
    <privateNet>true</privateNet>
    <multicast>false</multicast>
  </network>
</NetworkWithLocations>`)
	})

	networks, err := provider.ListNetworks(gocontext.TODO())
	require.NoError(t, err)
	require.Len(t, networks, 2)

	require.NotNil(t, networks[0].Location)
	assert.Equal(t, "NA3", networks[0].Location.ID)
	assert.Equal(t, "US - West", networks[0].Location.Name)
	assert.True(t, networks[0].Multicast)

	// a location the vendor references but does not list stays nil
	assert.Nil(t, networks[1].Location)
	assert.True(t, networks[1].PrivateNet)

	// the location list is refetched for every network element
	assert.Equal(t, 2, datacenterCalls)
}

func TestOpsourceListImages(t *testing.T) {
	provider, mux, teardown := opsourceTestSetup(t)
	defer teardown()

	opsourceTestHandleAccount(mux, nil)
	mux.HandleFunc("/0.9/abc-123/base/image", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<ImagesWithDiskSpeed xmlns="http://oec.api.opsource.net/schemas/server">
  <ServerImage>
    <id>img-1</id>
    <name>Ubuntu 12.04 64-bit</name>
  </ServerImage>
</ImagesWithDiskSpeed>`)
	})

	images, err := provider.ListImages(gocontext.TODO())
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "img-1", images[0].ID)
}
