package darwinbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kellatirupathi/darwinbox/internal/utils"
)

const (
	contentType = "application/json"
	statusOK    = "1"
)

// ErrAPI matches every APIError.
var ErrAPI = errors.New("darwinbox api error")

// APIError is a response whose status field is not 1, or a non-2xx HTTP status.
type APIError struct {
	Endpoint   string
	HTTPStatus int
	Message    string
}

func (e *APIError) Error() string {
	if e.HTTPStatus != 0 && e.HTTPStatus/100 != 2 {
		return fmt.Sprintf("%s: bad status: %d %s", e.Endpoint, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrAPI
}

type envelope struct {
	Status  any             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type basicAuth struct {
	username string
	password string
}

// postJSON sends payload to endpoint and returns the data field of a successful envelope.
func (c *Client) postJSON(ctx context.Context, endpoint string, auth basicAuth, payload map[string]any, timeout time.Duration) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)
	req.SetBasicAuth(auth.username, auth.password)

	resp, err := c.request(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	reader, err := utils.DecodeBody(resp)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Endpoint: endpoint, HTTPStatus: resp.StatusCode, Message: string(bytes.TrimSpace(data))}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", endpoint, err)
	}

	if fmt.Sprint(env.Status) != statusOK {
		msg := env.Message
		if msg == "" {
			msg = "request was not accepted"
		}
		return nil, &APIError{Endpoint: endpoint, HTTPStatus: resp.StatusCode, Message: msg}
	}

	return env.Data, nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", utils.AcceptEncoding)

	return req
}
