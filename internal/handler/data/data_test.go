package data

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neboloop/turbo/internal/config"
	"github.com/neboloop/turbo/internal/dataset"
	"github.com/neboloop/turbo/internal/svc"
	"github.com/neboloop/turbo/internal/types"
)

func newServiceContext(t *testing.T, count int) *svc.ServiceContext {
	t.Helper()
	c, err := config.LoadFromBytes(nil)
	require.NoError(t, err)
	c.Data.Count = count
	c.Update.Enabled = "false"

	svcCtx, err := svc.NewServiceContext(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(svcCtx.Close)
	return svcCtx
}

func TestListUsers(t *testing.T) {
	h := ListUsersHandler(newServiceContext(t, 25))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/data/users", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.ListUsersResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 25, resp.Count)
	require.Len(t, resp.Data, 25)
	for i, u := range resp.Data {
		assert.Equal(t, i+1, u.ID)
	}
}

func TestPaginatedUsers(t *testing.T) {
	h := PaginatedUsersHandler(newServiceContext(t, 250))

	page := func(query string) types.PaginatedUsersResponse {
		t.Helper()
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/api/data/users/paginated"+query, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp types.PaginatedUsersResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		return resp
	}

	tests := []struct {
		name       string
		query      string
		page       int
		limit      int
		rows       int
		firstID    int
		totalPages int
	}{
		{"defaults", "", dataset.DefaultPage, dataset.DefaultLimit, dataset.DefaultLimit, 1, 3},
		{"second page", "?page=2&limit=20", 2, 20, 20, 21, 13},
		{"last partial page", "?page=13&limit=20", 13, 20, 10, 241, 13},
		{"past the end", "?page=99&limit=20", 99, 20, 0, 0, 13},
		{"huge page", "?page=9223372036854775807&limit=20", math.MaxInt, 20, 0, 0, 13},
		{"limit capped", "?limit=5000", 1, dataset.MaxLimit, 250, 1, 1},
		{"garbage falls back", "?page=abc&limit=-3", dataset.DefaultPage, dataset.DefaultLimit, dataset.DefaultLimit, 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := page(tt.query)
			assert.True(t, resp.Success)
			assert.Equal(t, tt.page, resp.Page)
			assert.Equal(t, tt.limit, resp.Limit)
			assert.Equal(t, 250, resp.Total)
			assert.Equal(t, tt.totalPages, resp.TotalPages)
			assert.Len(t, resp.Data, tt.rows)
			if tt.rows > 0 {
				assert.Equal(t, tt.firstID, resp.Data[0].ID)
			}
		})
	}
}
