// Package api sends browser-like requests to a switch web interface.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/swoga/zyxel-webctl/form"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 30 * time.Second
	formEncoded    = "application/x-www-form-urlencoded"
)

var (
	transport = &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 5,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
	}
)

// Client talks to one device. The cookie jar carries the web session of the
// form based dialects.
type Client struct {
	log     *zap.Logger
	baseURL string

	mu   sync.Mutex
	http *http.Client
}

// New returns a client for address, which may carry a scheme; https is assumed otherwise.
func New(log *zap.Logger, address string, timeout time.Duration) (*Client, error) {
	if address == "" {
		return nil, fmt.Errorf("empty device address")
	}
	base := strings.TrimRight(address, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid device address %q: %w", address, err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		log:     log,
		baseURL: base,
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c.http = &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   timeout,
		// login forms answer with a redirect, callers want to see it
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// ResetCookies drops the web session by replacing the cookie jar.
func (c *Client) ResetCookies() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	next := *c.http
	next.Jar = jar
	c.http = &next
	return nil
}

// Request sends one request and returns status code and body. Form-like
// payloads (url.Values, map[string]string, []form.Field, *form.Snapshot) are
// url-encoded with field order preserved and default to a form content type.
// Raw payloads (string, []byte) are sent as is. No retry is attempted.
func (c *Client) Request(ctx context.Context, method string, path string, payload interface{}, header http.Header) (int, string, error) {
	body, formLike, err := encode(payload)
	if err != nil {
		return 0, "", err
	}

	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	c.log.Debug("send request", zap.String("method", method), zap.String("url", u))

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, "", err
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if formLike && method == http.MethodPost && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", formEncoded)
	}

	c.mu.Lock()
	client := c.http
	c.mu.Unlock()

	res, err := client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, "", fmt.Errorf("read response of %s: %w", path, err)
	}

	if res.StatusCode >= 400 {
		c.log.Error("error from device", zap.Int("status", res.StatusCode), zap.String("path", path))
	}

	return res.StatusCode, string(data), nil
}

func (c *Client) Get(ctx context.Context, path string) (int, string, error) {
	return c.Request(ctx, http.MethodGet, path, nil, nil)
}

func (c *Client) Post(ctx context.Context, path string, payload interface{}) (int, string, error) {
	return c.Request(ctx, http.MethodPost, path, payload, nil)
}

func encode(payload interface{}) ([]byte, bool, error) {
	switch p := payload.(type) {
	case nil:
		return nil, false, nil
	case string:
		return []byte(p), false, nil
	case []byte:
		return p, false, nil
	case url.Values:
		return []byte(p.Encode()), true, nil
	case map[string]string:
		keys := make([]string, 0, len(p))
		for k := range p {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]form.Field, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, form.Field{Name: k, Value: p[k]})
		}
		return []byte(form.Encode(fields)), true, nil
	case []form.Field:
		return []byte(form.Encode(p)), true, nil
	case *form.Snapshot:
		return []byte(p.Encode()), true, nil
	default:
		return nil, false, fmt.Errorf("unsupported payload type %T", payload)
	}
}
