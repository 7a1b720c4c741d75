// Package eredes reads the E-REDES open data portal (OpenDataSoft) into
// domain tables.
package eredes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/gridcap-etl/internal/domain"
)

// ErrStatus is returned when the portal answers with a non-200 status.
var ErrStatus = errors.New("unexpected status")

// Client fetches records from the Explore v2.1 and legacy v1 search APIs.
type Client struct {
	capacityURL string
	searchURL   string
	pageSize    int
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a portal client. pageSize bounds each v2.1 request.
func NewClient(capacityURL, searchURL string, pageSize int, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		capacityURL: capacityURL,
		searchURL:   searchURL,
		pageSize:    pageSize,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchCapacity pages through the reception-capacity dataset ordered by
// installation. A non-empty installation restricts the query to that exact
// name.
func (c *Client) FetchCapacity(ctx context.Context, installation string) (*domain.Table, error) {
	out := domain.NewTable("capacidade-rececao-rnd")
	for offset := 0; ; offset += c.pageSize {
		params := url.Values{
			"limit":    {strconv.Itoa(c.pageSize)},
			"offset":   {strconv.Itoa(offset)},
			"order_by": {"instalacao"},
		}
		if installation != "" {
			params.Set("where", whereEquals("instalacao", installation))
		}

		var page recordsPage
		if err := c.getJSON(ctx, c.capacityURL+"?"+params.Encode(), &page); err != nil {
			return nil, fmt.Errorf("fetch capacity page at offset %d: %w", offset, err)
		}
		c.logger.Debug("capacity page fetched", "offset", offset, "records", len(page.Results), "total", page.TotalCount)

		for _, r := range page.Results {
			out.Append(flatten(r))
		}
		if len(page.Results) < c.pageSize {
			break
		}
	}
	return out, nil
}

// Search runs one v1 records search on dataset with refine.<facet>=<value>
// filters and returns the flattened record fields.
func (c *Client) Search(ctx context.Context, dataset string, refine map[string]string, rows int) (*domain.Table, error) {
	params := url.Values{
		"dataset": {dataset},
		"rows":    {strconv.Itoa(rows)},
	}
	for k, v := range refine {
		params.Set("refine."+k, v)
	}

	var resp searchResponse
	if err := c.getJSON(ctx, c.searchURL+"?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("search %s: %w", dataset, err)
	}
	c.logger.Debug("search completed", "dataset", dataset, "records", len(resp.Records), "hits", resp.NHits)

	out := domain.NewTable(dataset)
	for _, r := range resp.Records {
		out.Append(flatten(r.Fields))
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, fullURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// whereEquals builds an ODSQL equality filter with the value quoted.
func whereEquals(field, value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return fmt.Sprintf("%s='%s'", field, escaped)
}

// flatten turns a JSON object into a record. Nested objects become dotted
// columns (geo_point_2d.lat); arrays and booleans are kept as text.
func flatten(m map[string]any) domain.Record {
	out := make(domain.Record, len(m))
	flattenInto(out, "", m)
	return out
}

func flattenInto(out domain.Record, prefix string, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		col := k
		if prefix != "" {
			col = prefix + "." + k
		}
		switch v := m[k].(type) {
		case map[string]any:
			flattenInto(out, col, v)
		case []any:
			b, _ := json.Marshal(v)
			out[col] = string(b)
		case bool:
			out[col] = strconv.FormatBool(v)
		default:
			// nil, string or float64
			out[col] = v
		}
	}
}

// OpenDataSoft response types.

type recordsPage struct {
	TotalCount int              `json:"total_count"`
	Results    []map[string]any `json:"results"`
}

type searchResponse struct {
	NHits   int `json:"nhits"`
	Records []struct {
		RecordID string         `json:"recordid"`
		Fields   map[string]any `json:"fields"`
	} `json:"records"`
}
