package player

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/playtable/tabletopnet/internal/engine"
)

// Catalog is the boundary to the local game-definition catalog.
type Catalog interface {
	Has(gameID string) bool
	Select(gameID string) error
	// Download fetches a missing game definition from its auto-update
	// source and selects it.
	Download(ctx context.Context, updateURL string) error
	// Current returns the selected game.
	Current() engine.GameInfo
}

// MapCatalog is an in-memory catalog with HTTP auto-update.
type MapCatalog struct {
	httpClient *http.Client

	mu      sync.Mutex
	games   map[string]engine.GameInfo
	current string
}

func NewMapCatalog(httpClient *http.Client, games ...engine.GameInfo) *MapCatalog {
	c := &MapCatalog{httpClient: httpClient, games: map[string]engine.GameInfo{}}
	for _, g := range games {
		c.games[g.ID] = g
		if c.current == "" {
			c.current = g.ID
		}
	}
	return c
}

func (c *MapCatalog) Has(gameID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.games[gameID]
	return ok
}

func (c *MapCatalog) Select(gameID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.games[gameID]; !ok {
		return fmt.Errorf("game %q not in catalog", gameID)
	}
	c.current = gameID
	return nil
}

func (c *MapCatalog) Download(ctx context.Context, updateURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, updateURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download game: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download game: unexpected status %d", resp.StatusCode)
	}

	var game engine.GameInfo
	if err := json.NewDecoder(resp.Body).Decode(&game); err != nil {
		return fmt.Errorf("download game: decode definition: %w", err)
	}
	if game.ID == "" {
		return fmt.Errorf("download game: definition has no id")
	}

	c.mu.Lock()
	c.games[game.ID] = game
	c.current = game.ID
	c.mu.Unlock()
	return nil
}

func (c *MapCatalog) Current() engine.GameInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.games[c.current]
}
