// Package lobby drives the external matchmaking service. A Lobby Record
// is a discoverable entry carrying the relay join code; the host keeps it
// alive with heartbeats and deletes it on teardown.
package lobby

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// KeyRelayCode is the record data key holding the relay join code.
const KeyRelayCode = "relay_code"

var ErrNotFound = errors.New("lobby not found")

type Record struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	JoinCode   string            `json:"join_code"`
	HostID     string            `json:"host_id"`
	MaxPlayers int               `json:"max_players"`
	Data       map[string]string `json:"data,omitempty"`
}

type Client interface {
	Create(ctx context.Context, name string, maxPlayers int, data map[string]string) (Record, error)
	JoinByCode(ctx context.Context, joinCode string) (Record, error)
	Heartbeat(ctx context.Context, lobbyID string) error
	Delete(ctx context.Context, lobbyID string) error
	RemoveMember(ctx context.Context, lobbyID, memberID string) error
}

type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	playerID   string
}

func NewHTTPClient(httpClient *http.Client, baseURL string) *HTTPClient {
	return &HTTPClient{httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

// SetPlayerID attaches the signed-in player identity sent with every
// lobby call. Required before Create or JoinByCode.
func (c *HTTPClient) SetPlayerID(playerID string) { c.playerID = playerID }

func (c *HTTPClient) Create(ctx context.Context, name string, maxPlayers int, data map[string]string) (Record, error) {
	body := struct {
		Name       string            `json:"name"`
		MaxPlayers int               `json:"max_players"`
		Data       map[string]string `json:"data,omitempty"`
	}{Name: name, MaxPlayers: maxPlayers, Data: data}

	var record Record
	if err := c.do(ctx, http.MethodPost, "/v1/lobbies", body, &record); err != nil {
		return Record{}, fmt.Errorf("create lobby: %w", err)
	}
	return record, nil
}

func (c *HTTPClient) JoinByCode(ctx context.Context, joinCode string) (Record, error) {
	body := struct {
		JoinCode string `json:"join_code"`
	}{JoinCode: joinCode}

	var record Record
	if err := c.do(ctx, http.MethodPost, "/v1/lobbies/join", body, &record); err != nil {
		return Record{}, fmt.Errorf("join lobby: %w", err)
	}
	return record, nil
}

func (c *HTTPClient) Heartbeat(ctx context.Context, lobbyID string) error {
	if err := c.do(ctx, http.MethodPost, "/v1/lobbies/"+lobbyID+"/heartbeat", nil, nil); err != nil {
		return fmt.Errorf("lobby heartbeat: %w", err)
	}
	return nil
}

func (c *HTTPClient) Delete(ctx context.Context, lobbyID string) error {
	if err := c.do(ctx, http.MethodDelete, "/v1/lobbies/"+lobbyID, nil, nil); err != nil {
		return fmt.Errorf("delete lobby: %w", err)
	}
	return nil
}

func (c *HTTPClient) RemoveMember(ctx context.Context, lobbyID, memberID string) error {
	path := "/v1/lobbies/" + lobbyID + "/members/" + memberID
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("remove lobby member: %w", err)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.playerID != "" {
		req.Header.Set("X-Player-Id", c.playerID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 300:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
