package automan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tier4/automan-annotation-archiver/internal/domain/entity"
	"go.uber.org/zap"
)

const maxErrorBody = 512

// HTTPClient is satisfied by *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CredentialProvider yields the Authorization header value for the annotation service.
type CredentialProvider interface {
	Authorization() string
}

type JWTCredentials struct {
	Token string
}

func (c JWTCredentials) Authorization() string {
	return "JWT " + c.Token
}

// Client talks to the annotation service REST API.
type Client struct {
	host          string
	origin        string
	presignedPath string
	creds         CredentialProvider
	http          HTTPClient
	logger        *zap.Logger
}

func NewClient(info entity.AutomanInfo, httpClient HTTPClient, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	origin := strings.TrimRight(info.Host, "/")
	host := origin
	if host != "" && !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return &Client{
		host:          host,
		origin:        origin,
		presignedPath: info.Presigned,
		creds:         JWTCredentials{Token: info.JWT},
		http:          httpClient,
		logger:        logger,
	}
}

func (c *Client) url(path string) string {
	return c.host + path
}

// getJSON calls an annotation service endpoint and decodes its body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return fmt.Errorf("%w: build request %s: %v", entity.ErrUpstream, path, err)
	}
	req.Header.Set("Authorization", c.creds.Authorization())
	return c.doJSON(req, path, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: build request %s: %v", entity.ErrUpstream, path, err)
	}
	req.Header.Set("Authorization", c.creds.Authorization())
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, path, out)
}

func (c *Client) doJSON(req *http.Request, path string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", entity.ErrUpstream, req.Method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s: status %d: %s", entity.ErrUpstream, req.Method, path, resp.StatusCode, readSnippet(resp.Body))
	}
	if out == nil {
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", entity.ErrUpstream, path, err)
	}
	return nil
}

// fetch performs a plain GET. Credentials are attached only for the annotation service host.
func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request %s: %v", entity.ErrTransientFetch, rawURL, err)
	}
	if entity.IsSameOrigin(rawURL, c.origin) {
		req.Header.Set("Authorization", c.creds.Authorization())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", entity.ErrTransientFetch, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: get %s: status %d: %s", entity.ErrTransientFetch, rawURL, resp.StatusCode, readSnippet(resp.Body))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", entity.ErrTransientFetch, rawURL, err)
	}
	return body, nil
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(b))
}
