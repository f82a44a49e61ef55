package hass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/config"
)

var (
	// ErrUnavailable indicates the entity exists but currently reports
	// no usable state ("unavailable" or "unknown").
	ErrUnavailable = errors.New("entity unavailable")

	// ErrNotFound indicates the entity does not exist.
	ErrNotFound = errors.New("entity not found")
)

// Client reads entity states from a Home Assistant instance through its
// REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// EntityState is one entity's state answer from /api/states/{entity_id}.
type EntityState struct {
	EntityID   string          `json:"entity_id"`
	State      string          `json:"state"`
	Attributes json.RawMessage `json:"attributes"`
}

// New creates a Home Assistant client.
func New(cfg config.HomeAssistantConfig, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		token:      cfg.Token,
	}
}

// GetState fetches one entity's raw state.
func (c *Client) GetState(ctx context.Context, entityID string) (*EntityState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/states/"+entityID, nil)
	if err != nil {
		return nil, fmt.Errorf("build state request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get state %s: %w", entityID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, entityID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get state %s: status %d", entityID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read state %s: %w", entityID, err)
	}

	var state EntityState
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", entityID, err)
	}
	return &state, nil
}

// GetTemperature reads a temperature from an entity.
//
// For sensor entities the state itself is the reading; for climate
// entities the reading lives in the current_temperature attribute.
// "unavailable" and "unknown" states yield ErrUnavailable.
func (c *Client) GetTemperature(ctx context.Context, entityID string) (float64, error) {
	state, err := c.GetState(ctx, entityID)
	if err != nil {
		return 0, err
	}

	if state.State == "unavailable" || state.State == "unknown" {
		return 0, fmt.Errorf("%w: %s", ErrUnavailable, entityID)
	}

	if strings.HasPrefix(entityID, "climate.") {
		var attrs struct {
			CurrentTemperature *float64 `json:"current_temperature"`
		}
		if err := json.Unmarshal(state.Attributes, &attrs); err != nil {
			return 0, fmt.Errorf("decode attributes %s: %w", entityID, err)
		}
		if attrs.CurrentTemperature == nil {
			return 0, fmt.Errorf("%w: %s has no current_temperature", ErrUnavailable, entityID)
		}
		return *attrs.CurrentTemperature, nil
	}

	value, err := strconv.ParseFloat(state.State, 64)
	if err != nil {
		return 0, fmt.Errorf("parse temperature %s: state %q: %w", entityID, state.State, err)
	}
	return value, nil
}
