// Package relay drives the external relay-allocation service. The relay
// lets NAT'd peers exchange traffic without direct connectivity; this
// package only speaks its HTTP API, it never carries game traffic itself.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ConnectionData is what a transport needs to attach to an allocation.
// HostURL is set on the allocating side, PeerURL on the joining side.
type ConnectionData struct {
	AllocationID string `json:"allocation_id,omitempty"`
	JoinCode     string `json:"join_code,omitempty"`
	HostURL      string `json:"host_url,omitempty"`
	PeerURL      string `json:"peer_url,omitempty"`
}

type Client interface {
	// AllocateSession reserves a relay session bounded to maxConnections
	// and returns its connection data including the shareable join code.
	AllocateSession(ctx context.Context, maxConnections int) (ConnectionData, error)
	// ResolveJoinCode turns a join code into peer connection data.
	ResolveJoinCode(ctx context.Context, joinCode string) (ConnectionData, error)
}

type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewHTTPClient(httpClient *http.Client, baseURL string) *HTTPClient {
	return &HTTPClient{httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *HTTPClient) AllocateSession(ctx context.Context, maxConnections int) (ConnectionData, error) {
	body, err := json.Marshal(struct {
		MaxConnections int `json:"max_connections"`
	}{MaxConnections: maxConnections})
	if err != nil {
		return ConnectionData{}, err
	}

	var data ConnectionData
	if err := c.do(ctx, http.MethodPost, "/v1/relay/allocations", body, &data); err != nil {
		return ConnectionData{}, fmt.Errorf("relay allocation: %w", err)
	}
	return data, nil
}

func (c *HTTPClient) ResolveJoinCode(ctx context.Context, joinCode string) (ConnectionData, error) {
	var data ConnectionData
	if err := c.do(ctx, http.MethodGet, "/v1/relay/join/"+joinCode, nil, &data); err != nil {
		return ConnectionData{}, fmt.Errorf("resolve join code: %w", err)
	}
	return data, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
