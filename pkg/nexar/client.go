// Package nexar is a minimal client for the Nexar (Octopart) supply GraphQL API.
package nexar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL  = "https://api.nexar.com/graphql"
	defaultTokenURL = "https://identity.nexar.com/connect/token"
	tokenScope      = "supply.domain"
)

// SearchQuery requests the fields the offer normalizer reads.
const SearchQuery = `query Search($q: String!) {
  supSearch(q: $q, limit: 3) {
    results {
      part {
        mpn
        shortDescription
        manufacturer { name }
        bestDatasheet { url }
        specs { attribute { shortname } displayValue }
        sellers(includeBrokers: false) {
          company { name }
          offers {
            sku
            inventoryLevel
            moq
            factoryLeadDays
            packaging
            prices { quantity price currency }
          }
        }
      }
    }
  }
}`

// Client searches Nexar. Responses are returned as raw JSON.
type Client interface {
	Search(ctx context.Context, partNumber string) ([]byte, error)
}

// StatusError is returned for non-200 responses from either endpoint.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("nexar: %s unexpected status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the GraphQL endpoint.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithTokenURL overrides the OAuth token endpoint.
func WithTokenURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.tokenURL = u
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	tokenURL     string
	http         *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// NewClient creates a Nexar client using OAuth client credentials.
func NewClient(clientID, clientSecret string, opts ...Option) Client {
	c := &httpClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      defaultBaseURL,
		tokenURL:     defaultTokenURL,
		http:         &http.Client{Timeout: 20 * time.Second},
		now:          time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func (c *httpClient) Search(ctx context.Context, partNumber string) ([]byte, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(graphQLRequest{Query: SearchQuery, Variables: map[string]any{"q": partNumber}})
	if err != nil {
		return nil, eris.Wrap(err, "nexar: marshal query")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "nexar: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	respBody, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		c.invalidate()
	}
	if status != http.StatusOK {
		return nil, &StatusError{Endpoint: "graphql", StatusCode: status, Body: truncate(respBody, 200)}
	}
	return respBody, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a cached token, refreshing it a minute before expiry.
func (c *httpClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"scope":         {tokenScope},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", eris.Wrap(err, "nexar: create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, status, err := c.do(req)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &StatusError{Endpoint: "token", StatusCode: status, Body: truncate(body, 200)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", eris.Wrap(err, "nexar: unmarshal token")
	}
	if tr.AccessToken == "" {
		return "", eris.New("nexar: token response missing access_token")
	}
	if tr.ExpiresIn <= 0 {
		tr.ExpiresIn = 3600
	}
	c.token = tr.AccessToken
	c.expiresAt = c.now().Add(time.Duration(tr.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func (c *httpClient) invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *httpClient) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, eris.Wrap(err, "nexar: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, eris.Wrap(err, "nexar: read response")
	}
	return body, resp.StatusCode, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
