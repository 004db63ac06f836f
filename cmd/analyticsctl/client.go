package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	runtimepkg "github.com/drblury/analyticsbase/internal/runtime"
	jsoncodec "github.com/drblury/analyticsbase/internal/runtime/jsoncodec"
)

type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// ServerError is a non-success response from analyticsbase.
type ServerError struct {
	Status int
	Body   runtimepkg.ErrorResponse
}

func (e *ServerError) Error() string {
	if e.Body.Error == "" {
		return fmt.Sprintf("server responded %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("server responded %d: %s: %s", e.Status, e.Body.Error, e.Body.Message)
}

// send posts one envelope and returns the request id assigned by the server.
func (c *client) send(ctx context.Context, envelope []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+runtimepkg.AnalyticsPath, bytes.NewReader(envelope))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	return c.do(req, http.StatusAccepted)
}

func (c *client) heartbeat(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+runtimepkg.HeartbeatPath, nil)
	if err != nil {
		return err
	}
	_, err = c.do(req, http.StatusOK)
	return err
}

func (c *client) do(req *http.Request, want int) (string, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	requestID := resp.Header.Get(runtimepkg.RequestIDHeader)
	if resp.StatusCode == want {
		_, _ = io.Copy(io.Discard, resp.Body)
		return requestID, nil
	}

	serverErr := &ServerError{Status: resp.StatusCode}
	if body, err := io.ReadAll(resp.Body); err == nil && len(body) > 0 {
		_ = jsoncodec.Unmarshal(body, &serverErr.Body)
	}
	return requestID, serverErr
}
