package netatmo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/config"
	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/logging"
)

// expirySlack is subtracted from the token lifetime so we refresh before
// the vendor actually expires it.
const expirySlack = 60 * time.Second

// Client talks to the Netatmo Energy API.
//
// A single token session is shared by all callers. The session mutex
// serializes token refreshes so concurrent requests never race a refresh;
// on a 401/403 answer the request refreshes the token and retries exactly
// once.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	httpClient *http.Client
	apiURL     string
	creds      config.CredentialsConfig
	log        *logging.Logger

	// sessionMu guards tok and serializes refreshes.
	sessionMu sync.Mutex
	tok       token
}

// New creates a Netatmo API client. No network call is made; the first
// request authenticates lazily.
//
// Parameters:
//   - cfg: Full daemon configuration (credentials, API URL, timeouts)
//   - log: Logger for auth lifecycle events
func New(cfg *config.Config, log *logging.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.GetRequestTimeout()},
		apiURL:     strings.TrimRight(cfg.Global.APIURL, "/"),
		creds:      cfg.Credentials,
		log:        log,
	}
}

// Authenticate obtains an initial access token.
//
// A configured refresh token is preferred; otherwise the resource owner
// password grant is used. Calling Authenticate is optional, the first API
// request triggers it automatically.
func (c *Client) Authenticate(ctx context.Context) error {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	return c.authenticateLocked(ctx)
}

func (c *Client) authenticateLocked(ctx context.Context) error {
	form := url.Values{
		"client_id":     {c.creds.ClientID},
		"client_secret": {c.creds.ClientSecret},
	}

	refresh := c.tok.RefreshToken
	if refresh == "" {
		refresh = c.creds.RefreshToken
	}

	if refresh != "" {
		form.Set("grant_type", "refresh_token")
		form.Set("refresh_token", refresh)
	} else {
		form.Set("grant_type", "password")
		form.Set("username", c.creds.Username)
		form.Set("password", c.creds.Password)
	}

	tok, err := c.requestToken(ctx, form)
	if err != nil {
		return err
	}

	c.tok = tok
	c.log.Info("authenticated with netatmo api",
		"grant_type", form.Get("grant_type"),
		"expires_in", tok.ExpiresIn)
	return nil
}

// RefreshToken forces a token refresh using the current refresh token.
func (c *Client) RefreshToken(ctx context.Context) error {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	return c.refreshLocked(ctx)
}

func (c *Client) refreshLocked(ctx context.Context) error {
	refresh := c.tok.RefreshToken
	if refresh == "" {
		refresh = c.creds.RefreshToken
	}
	if refresh == "" {
		// Nothing to refresh with, fall back to a full authentication.
		return c.authenticateLocked(ctx)
	}

	tok, err := c.requestToken(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refresh},
		"client_id":     {c.creds.ClientID},
		"client_secret": {c.creds.ClientSecret},
	})
	if err != nil {
		return err
	}

	c.tok = tok
	c.log.Debug("refreshed netatmo access token", "expires_in", tok.ExpiresIn)
	return nil
}

// requestToken exchanges credentials at the token endpoint.
func (c *Client) requestToken(ctx context.Context, form url.Values) (token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return token{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return token{}, fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return token{}, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return token{}, &APIError{
			StatusCode: resp.StatusCode,
			Message:    vendorMessage(body),
			Endpoint:   "/oauth2/token",
		}
	}

	var tok token
	if err := json.Unmarshal(body, &tok); err != nil {
		return token{}, fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return token{}, fmt.Errorf("%w: empty access token", ErrNotAuthenticated)
	}

	tok.expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - expirySlack)
	return tok, nil
}

// accessToken returns a currently valid access token, authenticating or
// refreshing as needed.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	if c.tok.AccessToken == "" {
		if err := c.authenticateLocked(ctx); err != nil {
			return "", err
		}
	} else if time.Now().After(c.tok.expiresAt) {
		if err := c.refreshLocked(ctx); err != nil {
			return "", err
		}
	}

	return c.tok.AccessToken, nil
}

// invalidateToken drops the cached access token so the next request
// re-authenticates. Called after the vendor rejects a token mid-lifetime.
func (c *Client) invalidateToken() {
	c.sessionMu.Lock()
	c.tok.AccessToken = ""
	c.sessionMu.Unlock()
}

// call performs an authenticated API request, refreshing the token and
// retrying exactly once if the vendor answers 401 or 403.
func (c *Client) call(ctx context.Context, endpoint string, params url.Values, out any) error {
	err := c.doCall(ctx, endpoint, params, out)
	if err == nil || !IsAuthError(err) {
		return err
	}

	c.log.Warn("netatmo rejected token, refreshing and retrying once",
		"endpoint", endpoint)
	c.invalidateToken()
	if refreshErr := c.RefreshToken(ctx); refreshErr != nil {
		return fmt.Errorf("token refresh after rejection: %w", refreshErr)
	}

	return c.doCall(ctx, endpoint, params, out)
}

func (c *Client) doCall(ctx context.Context, endpoint string, params url.Values, out any) error {
	accessToken, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiURL+endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("build request %s: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response %s: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    vendorMessage(body),
			Endpoint:   endpoint,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response %s: %w", endpoint, err)
	}
	return nil
}

// GetHomesData fetches the account topology (homes, rooms, modules).
func (c *Client) GetHomesData(ctx context.Context) (*HomesData, error) {
	var resp apiResponse[HomesData]
	if err := c.call(ctx, "/api/homesdata", url.Values{}, &resp); err != nil {
		return nil, err
	}
	return &resp.Body, nil
}

// GetHomeStatus fetches the live state of one home.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - homeID: Netatmo home identifier
func (c *Client) GetHomeStatus(ctx context.Context, homeID string) (*HomeStatus, error) {
	var resp apiResponse[HomeStatus]
	params := url.Values{"home_id": {homeID}}
	if err := c.call(ctx, "/api/homestatus", params, &resp); err != nil {
		return nil, err
	}
	return &resp.Body, nil
}

// SetThermMode sets the home-wide thermostat mode.
//
// The mode is validated locally before any network traffic: only
// schedule, away and hg are accepted.
func (c *Client) SetThermMode(ctx context.Context, homeID string, mode ThermMode) error {
	if !ValidMode(mode) {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	params := url.Values{
		"home_id": {homeID},
		"mode":    {string(mode)},
	}
	if err := c.call(ctx, "/api/setthermmode", params, nil); err != nil {
		return err
	}

	c.log.Info("set thermostat mode", "home_id", homeID, "mode", mode)
	return nil
}

// SetRoomTrueTemperature reports the externally measured temperature for a
// room so the vendor recalibrates the module's sensor against it.
//
// The corrected temperature is forwarded exactly as given, no rounding or
// clamping is applied.
func (c *Client) SetRoomTrueTemperature(ctx context.Context, homeID, roomID string, corrected float64) error {
	params := url.Values{
		"home_id":               {homeID},
		"room_id":               {roomID},
		"corrected_temperature": {strconv.FormatFloat(corrected, 'f', -1, 64)},
	}
	if err := c.call(ctx, "/api/truetemperature", params, nil); err != nil {
		return err
	}

	c.log.Info("set room true temperature",
		"home_id", homeID, "room_id", roomID, "corrected_temperature", corrected)
	return nil
}

// vendorMessage extracts the error message from a vendor error body,
// falling back to the raw body when it is not the usual envelope.
func vendorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
