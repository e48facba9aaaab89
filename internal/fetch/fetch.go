package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/net/proxy"

	"github.com/August26/bridgecheck-go/internal/parser"
)

// ErrBadStatus is returned for non-2xx responses.
var ErrBadStatus = errors.New("unexpected http status")

const defaultUserAgent = "bridgecheck-go/1.0 (+github)"

type Client struct {
	HTTP      *http.Client
	UserAgent string
}

// NewClient builds a fetcher whose connections go through dialer.
func NewClient(dialer proxy.ContextDialer, timeout time.Duration) *Client {
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}
	return &Client{
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		UserAgent: defaultUserAgent,
	}
}

// Fetch downloads a bridge list and returns its non-comment lines.
func (c *Client) Fetch(ctx context.Context, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	ua := c.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/plain,*/*;q=0.9")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("get %s: %w: %d", url, ErrBadStatus, resp.StatusCode)
	}

	lines, err := parser.ReadLines(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return lines, nil
}
