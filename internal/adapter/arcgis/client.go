// Package arcgis loads GeoJSON feature layers, either from an ArcGIS
// FeatureServer query endpoint or from a local file.
package arcgis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
)

// ErrStatus is returned when the server answers with a non-200 status.
var ErrStatus = errors.New("unexpected status")

// Client fetches feature layers.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a layer client.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Fetch loads the feature collection at source. http(s) sources are
// requested; a FeatureServer ".../query" URL without its own parameters is
// asked for every feature and field as GeoJSON. Anything else is read as a
// file path.
func (c *Client) Fetch(ctx context.Context, source string) (*geojson.FeatureCollection, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err = c.get(ctx, QueryURL(source))
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("load layer %s: %w", source, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode layer %s: %w", source, err)
	}
	c.logger.Debug("layer loaded", "source", source, "features", len(fc.Features))
	return fc, nil
}

// QueryURL adds where=1=1, outFields=* and f=geojson to a FeatureServer query
// URL that carries no query string of its own.
func QueryURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery != "" || !strings.HasSuffix(strings.TrimSuffix(u.Path, "/"), "/query") {
		return raw
	}
	u.RawQuery = url.Values{
		"where":     {"1=1"},
		"outFields": {"*"},
		"f":         {"geojson"},
	}.Encode()
	return u.String()
}

func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}

// DetectProperty returns the first property of the collection's first
// feature whose name contains one of substrs, case-insensitively. Property
// names are tried in sorted order. It returns "" when nothing matches.
func DetectProperty(fc *geojson.FeatureCollection, substrs ...string) string {
	if fc == nil || len(fc.Features) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fc.Features[0].Properties))
	for k := range fc.Features[0].Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, sub := range substrs {
		sub = strings.ToLower(sub)
		for _, k := range keys {
			if strings.Contains(strings.ToLower(k), sub) {
				return k
			}
		}
	}
	return ""
}
