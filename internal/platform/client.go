package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bassista/go_action/internal/logger"
	"github.com/hashicorp/go-retryablehttp"
)

var (
	ErrActionNotFound    = errors.New("action not found")
	ErrUnauthorized      = errors.New("platform rejected credentials")
	ErrInvalidActionName = errors.New("invalid action name")
)

// Action is the subset of the platform's action document the CLI needs.
type Action struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Version   string `json:"version"`
	Exec      Exec   `json:"exec"`
}

type Exec struct {
	Kind   string `json:"kind"`
	Code   string `json:"code"`
	Binary bool   `json:"binary"`
}

// Client reads actions from the platform REST API.
type Client struct {
	creds Credentials
	http  *retryablehttp.Client
}

// Option configures a Client.
type Option func(*retryablehttp.Client)

// WithRetry bounds retries of failed requests.
func WithRetry(max int, waitMin, waitMax time.Duration) Option {
	return func(c *retryablehttp.Client) {
		c.RetryMax = max
		c.RetryWaitMin = waitMin
		c.RetryWaitMax = waitMax
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *retryablehttp.Client) { c.HTTPClient = hc }
}

func NewClient(creds Credentials, opts ...Option) (*Client, error) {
	if !creds.Valid() {
		return nil, errors.New("platform credentials require an API host and an auth key")
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = logger.NewLeveled("platform")
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{creds: creds, http: rc}, nil
}

// GetAction fetches an action with its code. name is "action", "pkg/action"
// or a fully qualified "/namespace/[pkg/]action".
func (c *Client) GetAction(ctx context.Context, name string) (*Action, error) {
	ns, path, err := c.resolve(name)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/v1/namespaces/%s/actions/%s?code=true", c.creds.BaseURL(), url.PathEscape(ns), path)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	user, pass, _ := strings.Cut(c.creds.AuthKey, ":")
	req.SetBasicAuth(user, pass)
	req.Header.Set("Accept", "application/json")

	logger.WithComponent("platform").Debugf("fetching action %s from namespace %s", path, ns)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch action %s: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read action %s: %w", name, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", name, ErrActionNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%s: %w", name, ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("fetch action %s: unexpected status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var action Action
	if err := json.Unmarshal(body, &action); err != nil {
		return nil, fmt.Errorf("decode action %s: %w", name, err)
	}
	return &action, nil
}

// resolve splits name into a namespace and an escaped action path.
func (c *Client) resolve(name string) (string, string, error) {
	ns := c.creds.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}

	trimmed := name
	if strings.HasPrefix(name, "/") {
		parts := strings.SplitN(strings.TrimPrefix(name, "/"), "/", 2)
		if len(parts) != 2 {
			return "", "", fmt.Errorf("%w: %q", ErrInvalidActionName, name)
		}
		ns, trimmed = parts[0], parts[1]
	}

	segments := strings.Split(trimmed, "/")
	if len(segments) > 2 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidActionName, name)
	}
	for i, s := range segments {
		if s == "" {
			return "", "", fmt.Errorf("%w: %q", ErrInvalidActionName, name)
		}
		segments[i] = url.PathEscape(s)
	}
	if ns == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidActionName, name)
	}
	return ns, strings.Join(segments, "/"), nil
}
