// internal/adapters/out/http/client.go
package httpout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
)

// StatusError は 2xx 以外のレスポンス。
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status=%d body=%s", e.URL, e.StatusCode, e.Body)
}

func newHTTPClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: defaultTimeout}
}

func trimBase(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

// doJSON sends body (nil = no body) and decodes a 2xx response into out (nil = discard).
// 2xx 以外は *StatusError。
func doJSON(
	ctx context.Context,
	c *http.Client,
	method, url string,
	headers map[string]string,
	body any,
	out any,
) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := c.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &StatusError{URL: url, StatusCode: res.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// backendError mirrors the { error?, errorMessage? } envelope.
type backendError struct {
	Error        any    `json:"error,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// failed reports whether the envelope carries an error.
// error は bool / string どちらでも来る。
func (e backendError) failed() (bool, string) {
	msg := strings.TrimSpace(e.ErrorMessage)
	switch v := e.Error.(type) {
	case nil:
		return msg != "", msg
	case bool:
		return v || msg != "", msg
	case string:
		if msg == "" {
			msg = v
		}
		return strings.TrimSpace(v) != "" || msg != "", msg
	default:
		return true, msg
	}
}
