// Package nasa fetches the Astronomy Picture of the Day.
package nasa

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

	"space_puzzle/model"
)

const (
	DefaultBaseURL = "https://api.nasa.gov"
	DefaultTimeout = 10 * time.Second
)

var ErrNoAPIKey = errors.New("nasa: api key is not set")

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchAPOD today's entry; any non-2xx status is an error
func (c *Client) FetchAPOD(ctx context.Context) (*model.ApodData, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	u := fmt.Sprintf("%s/planetary/apod?api_key=%s", c.baseURL, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("nasa: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nasa: fetch apod: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("nasa: apod status %d", resp.StatusCode)
	}

	var data model.ApodData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("nasa: decode apod: %w", err)
	}
	if data.Date == "" {
		return nil, fmt.Errorf("nasa: apod without date")
	}
	return &data, nil
}
