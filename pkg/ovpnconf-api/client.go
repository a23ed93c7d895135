// Package ovpnconfAPI is a client for the API served on the ovpnconf unix socket.
package ovpnconfAPI

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"ovpnconf/api/types"
)

// ErrValidation is returned with the decoded response when the server rejects
// the tunnel configuration.
var ErrValidation = errors.New("validation failed")

type Client struct {
	client *http.Client
}

func NewClient(socketPath string) Client {
	client := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketPath)
			},
		},
	}
	return Client{client: client}
}

func (c Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		bodyJSON, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshalling failed: %w", err)
		}
		reader = bytes.NewReader(bodyJSON)
	}

	req, err := http.NewRequestWithContext(ctx, method, "http://unix/api"+path, reader)
	if err != nil {
		return 0, fmt.Errorf("creating request failed: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("executing request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("reading response failed: %w", err)
	}
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusUnprocessableEntity {
		var e types.ErrorRes
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return resp.StatusCode, fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
		}
		return resp.StatusCode, fmt.Errorf("server returned %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, fmt.Errorf("unmarshalling failed: %w", err)
	}
	return resp.StatusCode, nil
}

// Validate checks one instance of intent. A rejected configuration returns
// the response together with ErrValidation.
func (c Client) Validate(ctx context.Context, intent []byte, intf string) (*types.ValidateRes, error) {
	var res types.ValidateRes
	code, err := c.do(ctx, http.MethodPost, "/v1/validate", types.IntentReq{Intent: string(intent), Interface: intf}, &res)
	if err != nil {
		return nil, err
	}
	if code == http.StatusUnprocessableEntity {
		return &res, ErrValidation
	}
	return &res, nil
}

// Render returns the files of one instance of intent.
func (c Client) Render(ctx context.Context, intent []byte, intf string) (*types.RenderRes, *types.ValidateRes, error) {
	req := types.IntentReq{Intent: string(intent), Interface: intf}
	var raw json.RawMessage
	code, err := c.do(ctx, http.MethodPost, "/v1/render", req, &raw)
	if err != nil {
		return nil, nil, err
	}
	if code == http.StatusUnprocessableEntity {
		var failure types.ValidateRes
		if err := json.Unmarshal(raw, &failure); err != nil {
			return nil, nil, fmt.Errorf("unmarshalling failed: %w", err)
		}
		return nil, &failure, ErrValidation
	}
	var res types.RenderRes
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, nil, fmt.Errorf("unmarshalling failed: %w", err)
	}
	return &res, nil, nil
}

func (c Client) Logs(ctx context.Context, level, intf string, limit int) ([]types.LogRes, error) {
	q := url.Values{}
	if level != "" {
		q.Set("level", level)
	}
	if intf != "" {
		q.Set("interface", intf)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/logs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var res types.LogsRes
	_, err := c.do(ctx, http.MethodGet, path, nil, &res)
	if err != nil {
		return nil, err
	}
	return res.Logs, nil
}
