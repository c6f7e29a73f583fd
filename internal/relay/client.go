package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Envelope is the upstream bot API response wrapper. Message carries the
// relay-level error detail when the upstream returned a transport failure
// envelope instead of a result.
type Envelope struct {
	OK      bool            `json:"ok"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Client issues authenticated calls against the upstream bot API.
type Client struct {
	base   string
	token  string
	client *http.Client
}

// NewClient creates a relay client for the given base URL and bearer token.
func NewClient(base, token string) *Client {
	return &Client{
		base:  strings.TrimRight(base, "/"),
		token: token,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Call invokes an upstream endpoint. GET requests pass params in the query
// string; POST requests send them as multipart/form-data.
func (c *Client) Call(ctx context.Context, method, endpoint string, params map[string]string) (*Envelope, error) {
	target := c.base + "/" + strings.TrimLeft(endpoint, "/")

	var req *http.Request
	var err error
	switch method {
	case http.MethodGet:
		if len(params) > 0 {
			q := url.Values{}
			for k, v := range params {
				q.Set(k, v)
			}
			target += "?" + q.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	case http.MethodPost:
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		for k, v := range params {
			if err := mw.WriteField(k, v); err != nil {
				return nil, err
			}
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, target, &body)
		if req != nil {
			req.Header.Set("Content-Type", mw.FormDataContentType())
		}
	default:
		return nil, fmt.Errorf("unsupported method %s", method)
	}
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return &env, nil
}
