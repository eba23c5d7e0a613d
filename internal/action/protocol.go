package action

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	initPath = "/init"
	runPath  = "/run"
	mainName = "main"
)

type initRequest struct {
	Value initValue `json:"value"`
}

type initValue struct {
	Main string `json:"main"`
	Code string `json:"code"`
}

type runRequest struct {
	Value   map[string]any `json:"value"`
	AuthKey string         `json:"authKey,omitempty"`
}

// Client speaks the action server protocol against a base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a protocol client. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Init uploads the action source.
func (c *Client) Init(ctx context.Context, code string) error {
	req := initRequest{Value: initValue{Main: mainName, Code: code}}
	return c.post(ctx, initPath, req, nil)
}

// Run executes the initialized action with params and returns the decoded result.
// authKey is sent only when non-empty.
func (c *Client) Run(ctx context.Context, params map[string]any, authKey string) (any, error) {
	if params == nil {
		params = map[string]any{}
	}
	var result any
	if err := c.post(ctx, runPath, runRequest{Value: params, AuthKey: authKey}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ApplicationError{Endpoint: path, StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != nil {
		if s, ok := payload.Error.(string); ok {
			return s
		}
		if encoded, err := json.Marshal(payload.Error); err == nil {
			return string(encoded)
		}
	}
	return strings.TrimSpace(string(body))
}
