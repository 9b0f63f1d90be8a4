package datex

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

const snapshotPath = "datexapi/GetSituation/pullsnapshotdata"

type ClientConfig struct {
	BaseURL   string
	Username  string
	Password  string
	UserAgent string
}

// Client fetches situation snapshots from the Datex II endpoint. It
// revalidates with If-Modified-Since and serves the previous body on 304,
// since the server only re-renders the snapshot every few seconds.
type Client struct {
	httpClient *http.Client
	config     ClientConfig

	mu           sync.Mutex
	lastModified string
	cachedBody   []byte
}

func NewClient(httpClient *http.Client, config ClientConfig) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		config:     config,
	}
}

// FetchSnapshot returns the raw XML of the current situation snapshot.
func (c *Client) FetchSnapshot(ctx context.Context) ([]byte, error) {
	url := strings.TrimSuffix(c.config.BaseURL, "/") + "/" + snapshotPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}
	req.SetBasicAuth(c.config.Username, c.config.Password)
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.mu.Lock()
	if c.lastModified != "" {
		req.Header.Set("If-Modified-Since", c.lastModified)
	}
	c.mu.Unlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching snapshot: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.cachedBody == nil {
			return nil, fmt.Errorf("got 304 without a cached snapshot")
		}
		return c.cachedBody, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from datex server", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading snapshot body: %v", err)
	}

	c.mu.Lock()
	c.lastModified = resp.Header.Get("Last-Modified")
	c.cachedBody = body
	c.mu.Unlock()

	return body, nil
}
