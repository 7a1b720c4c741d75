package eredes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(srvURL string, pageSize int) *Client {
	return NewClient(srvURL+"/records", srvURL+"/search", pageSize, 5*time.Second, discardLogger())
}

// capacityServer serves n synthetic records through the v2.1 paging contract.
func capacityServer(t *testing.T, n int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/records", r.URL.Path)
		assert.Equal(t, "instalacao", r.URL.Query().Get("order_by"))

		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		assert.NoError(t, err)
		offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
		assert.NoError(t, err)

		results := []map[string]any{}
		for i := offset; i < n && i < offset+limit; i++ {
			results = append(results, map[string]any{
				"instalacao":            fmt.Sprintf("SUB %03d", i),
				"capacidade":            float64(i),
				"capacidade_disponivel": "1,5",
			})
		}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(map[string]any{"total_count": n, "results": results}))
	}))
}

func TestFetchCapacity_Pagination(t *testing.T) {
	tests := []struct {
		name      string
		records   int
		pageSize  int
		wantCalls int32
	}{
		{"short last page", 5, 2, 3},
		{"exact multiple needs an empty page", 4, 2, 3},
		{"single page", 3, 10, 1},
		{"empty dataset", 0, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := capacityServer(t, tt.records, &calls)
			defer srv.Close()

			tbl, err := testClient(srv.URL, tt.pageSize).FetchCapacity(context.Background(), "")
			require.NoError(t, err)

			assert.Equal(t, tt.records, tbl.Len())
			assert.Equal(t, tt.wantCalls, calls.Load())
			if tt.records > 0 {
				assert.Equal(t, "SUB 000", tbl.Value(0, "instalacao"))
				assert.Equal(t, []string{"capacidade", "capacidade_disponivel", "instalacao"}, tbl.Columns)
			}
		})
	}
}

func TestFetchCapacity_InstallationFilter(t *testing.T) {
	var where string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		where = r.URL.Query().Get("where")
		_, _ = w.Write([]byte(`{"total_count":0,"results":[]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 100).FetchCapacity(context.Background(), "Riba d'Ave")
	require.NoError(t, err)
	assert.Equal(t, `instalacao='Riba d\'Ave'`, where)
}

func TestFetchCapacity_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":"ODSQLError","message":"bad where"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 100).FetchCapacity(context.Background(), "X")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStatus)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "bad where")
}

func TestFetchCapacity_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 100).FetchCapacity(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "3-consumos-faturados-por-municipio-ultimos-10-anos", q.Get("dataset"))
		assert.Equal(t, "5000", q.Get("rows"))
		assert.Equal(t, "Porto", q.Get("refine.distrito"))
		assert.Equal(t, "2023", q.Get("refine.ano"))

		_, _ = w.Write([]byte(`{
			"nhits": 2,
			"records": [
				{"recordid": "a", "fields": {"ano": "2023", "concelho": "Maia", "energia_ativa_kwh": 1200.5,
					"geo_point_2d": {"lat": 41.23, "lon": -8.62}, "tags": ["x", "y"], "activo": true}},
				{"recordid": "b", "fields": {"ano": "2023", "concelho": "Porto", "energia_ativa_kwh": null}}
			]
		}`))
	}))
	defer srv.Close()

	tbl, err := testClient(srv.URL, 100).Search(context.Background(),
		"3-consumos-faturados-por-municipio-ultimos-10-anos",
		map[string]string{"distrito": "Porto", "ano": "2023"}, 5000)
	require.NoError(t, err)

	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, 1200.5, tbl.Value(0, "energia_ativa_kwh"))
	assert.Equal(t, 41.23, tbl.Value(0, "geo_point_2d.lat"))
	assert.Equal(t, -8.62, tbl.Value(0, "geo_point_2d.lon"))
	assert.Equal(t, `["x","y"]`, tbl.Value(0, "tags"))
	assert.Equal(t, "true", tbl.Value(0, "activo"))
	assert.Nil(t, tbl.Value(1, "energia_ativa_kwh"))
	assert.True(t, tbl.HasColumn("concelho"))
}

func TestSearch_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 100).Search(context.Background(), "missing", nil, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStatus)
}

func TestWhereEquals(t *testing.T) {
	assert.Equal(t, "instalacao='ERMESINDE'", whereEquals("instalacao", "ERMESINDE"))
	assert.Equal(t, `instalacao='a\\b'`, whereEquals("instalacao", `a\b`))
}
