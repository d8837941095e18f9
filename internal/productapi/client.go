// Package productapi looks up packaged products by barcode in an
// OpenFoodFacts-compatible catalogue.
package productapi

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

	"github.com/AnshRaj112/ecoscan-backend/internal/classifier"
)

const DefaultBaseURL = "https://world.openfoodfacts.org"

var (
	ErrNotFound    = errors.New("product not found")
	ErrUnavailable = errors.New("product lookup unavailable")
)

type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "ecoscan-backend/1.0",
		http:      &http.Client{Timeout: timeout},
	}
}

type lookupResponse struct {
	Status  int                 `json:"status"`
	Product *classifier.Product `json:"product"`
}

// Lookup fetches the product for barcode. A response whose status is not 1 is
// reported as ErrNotFound; transport and decoding problems wrap ErrUnavailable.
func (c *Client) Lookup(ctx context.Context, barcode string) (*classifier.Product, error) {
	endpoint := fmt.Sprintf("%s/api/v0/product/%s.json", c.baseURL, url.PathEscape(barcode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if out.Status != 1 || out.Product == nil {
		return nil, ErrNotFound
	}
	return out.Product, nil
}
