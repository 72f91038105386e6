package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wricardo/polyfit/game/engine"
	"github.com/wricardo/polyfit/game/geometry"
	"github.com/wricardo/polyfit/game/service"
)

// errNoHint is returned when the placed pieces leave no way to finish
var errNoHint = errors.New("no hint available")

// APIError is a non-2xx answer from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) do(method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(data, &errResp)
		if errResp.Error == "" {
			errResp.Error = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: errResp.Error}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse %s response: %w", path, err)
		}
	}
	return nil
}

func (c *Client) sessionPath(parts ...string) string {
	path := "/api/sessions/" + url.PathEscape(c.sessionID)
	for _, p := range parts {
		path += "/" + url.PathEscape(p)
	}
	return path
}

func (c *Client) CreateSession(configID string) (*engine.PuzzleState, error) {
	req := map[string]string{}
	if configID != "" {
		req["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.do("POST", "/api/sessions", req, &session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	c.sessionID = session.ID
	return session.PuzzleState, nil
}

func (c *Client) GetState() (*engine.PuzzleState, error) {
	var state engine.PuzzleState
	if err := c.do("GET", c.sessionPath("state"), nil, &state); err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return &state, nil
}

func (c *Client) Reset() (*engine.PuzzleState, error) {
	var resetResp struct {
		Message string              `json:"message"`
		State   *engine.PuzzleState `json:"state"`
	}
	if err := c.do("POST", c.sessionPath("reset"), nil, &resetResp); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return resetResp.State, nil
}

// Hint asks the solver for the next placement. It returns errNoHint when the
// pieces already placed cannot be completed.
func (c *Client) Hint() (*engine.Hint, error) {
	var hintResp struct {
		Hint engine.Hint `json:"hint"`
	}
	err := c.do("GET", c.sessionPath("hint"), nil, &hintResp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity {
		return nil, fmt.Errorf("%w: %s", errNoHint, apiErr.Message)
	}
	if err != nil {
		return nil, fmt.Errorf("hint: %w", err)
	}
	return &hintResp.Hint, nil
}

// action posts to an interaction endpoint. Refusals come back as results
// with Success false, not as errors.
func (c *Client) action(path string, body interface{}) (*service.ActionResult, error) {
	var result service.ActionResult
	if err := c.do("POST", path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Pickup(key string) (*service.ActionResult, error) {
	return c.action(c.sessionPath("pieces", key, "pickup"), nil)
}

func (c *Client) Rotate(key string) (*service.ActionResult, error) {
	return c.action(c.sessionPath("pieces", key, "rotate"), nil)
}

func (c *Client) Mirror(key string) (*service.ActionResult, error) {
	return c.action(c.sessionPath("pieces", key, "mirror"), nil)
}

func (c *Client) Drag(at geometry.Vec) (*service.ActionResult, error) {
	return c.action(c.sessionPath("drag"), map[string]float64{"x": at.X, "y": at.Y})
}

func (c *Client) Release() (*service.ActionResult, error) {
	return c.action(c.sessionPath("release"), nil)
}

// Tick advances snapping by dt seconds, or finishes it when settle is set
func (c *Client) Tick(dt float64, settle bool) (*service.ActionResult, error) {
	return c.action(c.sessionPath("tick"), map[string]interface{}{"dt": dt, "settle": settle})
}
