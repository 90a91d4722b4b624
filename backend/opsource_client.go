package backend

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"sync"

	"github.com/jtacoma/uritemplates"
	"github.com/pkg/errors"
)

const (
	defaultOpsourceEndpoint   = "https://api.opsourcecloud.net/oec"
	defaultOpsourceAPIVersion = "0.9"
)

var (
	opsourceAccountURLTemplate = mustURITemplate("{+endpoint}/{version}/myaccount")
	opsourceActionURLTemplate  = mustURITemplate("{+endpoint}/{version}/{orgId}{+action}")
)

func mustURITemplate(template string) *uritemplates.UriTemplate {
	t, err := uritemplates.Parse(template)
	if err != nil {
		panic(err)
	}
	return t
}

// opsourceClient talks to the Opsource cloud API: basic auth on every
// request, XML bodies both ways, and an account-scoped organization id in
// every path except the one that looks the organization id up.
type opsourceClient struct {
	user string
	key  string

	endpoint   string
	apiVersion string

	httpClient *http.Client

	orgMutex sync.Mutex
	orgID    string
}

func newOpsourceClient(user, key, endpoint, apiVersion string) *opsourceClient {
	return &opsourceClient{
		user:       user,
		key:        key,
		endpoint:   endpoint,
		apiVersion: apiVersion,
		httpClient: http.DefaultClient,
	}
}

// request performs an API call under the account-scoped path prefix,
// resolving and memoizing the organization id first if this session hasn't
// yet. The action string is used as-is, so it may carry a query suffix like
// "?restart".
func (c *opsourceClient) request(ctx context.Context, method, action string, body []byte) (*xmlElement, error) {
	orgID, err := c.accountOrgID(ctx)
	if err != nil {
		return nil, err
	}

	u, err := opsourceActionURLTemplate.Expand(map[string]interface{}{
		"endpoint": c.endpoint,
		"version":  c.apiVersion,
		"orgId":    orgID,
		"action":   action,
	})
	if err != nil {
		return nil, errors.Wrap(err, "couldn't expand action URL template")
	}

	return c.do(ctx, method, u, body)
}

// accountOrgID returns the organization id scoping this account's resource
// paths, fetching it from /myaccount on first use. The id is cached for the
// lifetime of the client, and concurrent callers resolve it at most once.
func (c *opsourceClient) accountOrgID(ctx context.Context) (string, error) {
	c.orgMutex.Lock()
	defer c.orgMutex.Unlock()

	if c.orgID != "" {
		return c.orgID, nil
	}

	u, err := opsourceAccountURLTemplate.Expand(map[string]interface{}{
		"endpoint": c.endpoint,
		"version":  c.apiVersion,
	})
	if err != nil {
		return "", errors.Wrap(err, "couldn't expand account URL template")
	}

	root, err := c.do(ctx, "GET", u, nil)
	if err != nil {
		return "", errors.Wrap(err, "couldn't fetch account details")
	}

	orgID := root.findText("orgId")
	if orgID == "" {
		return "", errors.New("account response contained no orgId")
	}

	c.orgID = orgID
	return orgID, nil
}

// resourcePath returns the account-scoped API path prefix, e.g.
// "/oec/0.9/8a8f6abc-2745-4d8a-9cbc-8dabe5a7d0e4". The vendor references
// networks and images by paths built on this prefix rather than bare ids.
func (c *opsourceClient) resourcePath(ctx context.Context) (string, error) {
	orgID, err := c.accountOrgID(ctx)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", errors.Wrap(err, "couldn't parse endpoint URL")
	}

	return u.Path + "/" + c.apiVersion + "/" + orgID, nil
}

func (c *opsourceClient) do(ctx context.Context, method, rawurl string, body []byte) (*xmlElement, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, rawurl, bodyReader)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't create API request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/xml")
	}

	req = req.WithContext(ctx)
	req.SetBasicAuth(c.user, c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "error sending API request")
	}
	defer resp.Body.Close()

	raw, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't read API response body")
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrInvalidCredentials
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		root, err := parseXML(bytes.NewReader(raw))
		if err != nil {
			return nil, &MalformedResponseError{Body: string(raw)}
		}
		return root, nil
	}

	// The vendor's error contract is inconsistent: some failures carry a
	// structured XML body, others whatever the proxy in front felt like
	// returning. Surface the raw body when there's nothing to parse.
	if root, err := parseXML(bytes.NewReader(raw)); err == nil {
		return nil, &APIError{
			Code:   root.findText("resultCode"),
			Detail: root.findText("resultDetail"),
		}
	}

	return nil, errors.Errorf("unexpected response status %d: %s", resp.StatusCode, raw)
}
