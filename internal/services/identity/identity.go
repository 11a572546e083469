// Package identity is the boundary to the auth provider. Anonymous
// sign-in yields the stable per-process player id required before any
// lobby operation.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type Provider interface {
	SignInAnonymously(ctx context.Context) (string, error)
}

type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewHTTPClient(httpClient *http.Client, baseURL string) *HTTPClient {
	return &HTTPClient{httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *HTTPClient) SignInAnonymously(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/auth/anonymous", bytes.NewReader(nil))
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("anonymous sign-in: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anonymous sign-in: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		PlayerID string `json:"player_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("anonymous sign-in: decode response: %w", err)
	}
	return body.PlayerID, nil
}
