package utils

import (
	"net/http/httptest"
	"testing"

	"InvoiceDesk/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPaginationDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/dash/jobs", nil)
	params, err := ExtractPagination(r)
	require.NoError(t, err)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, config.DefaultPageLimit, params.Limit)
	assert.Equal(t, 0, params.Offset)
}

func TestExtractPaginationExplicit(t *testing.T) {
	r := httptest.NewRequest("GET", "/dash/jobs?page=3&limit=20", nil)
	params, err := ExtractPagination(r)
	require.NoError(t, err)
	assert.Equal(t, 3, params.Page)
	assert.Equal(t, 20, params.Limit)
	assert.Equal(t, 40, params.Offset)
}

func TestExtractPaginationRejectsBadValues(t *testing.T) {
	for _, url := range []string{
		"/dash/jobs?page=0",
		"/dash/jobs?page=-1",
		"/dash/jobs?page=abc",
		"/dash/jobs?limit=0",
		"/dash/jobs?limit=x",
	} {
		r := httptest.NewRequest("GET", url, nil)
		_, err := ExtractPagination(r)
		assert.Error(t, err, url)
	}
}

func TestExtractPaginationClampsLimit(t *testing.T) {
	r := httptest.NewRequest("GET", "/dash/jobs?limit=100000", nil)
	params, err := ExtractPagination(r)
	require.NoError(t, err)
	assert.Equal(t, config.MaxPageLimit, params.Limit)
}

func TestPaginationStatsAndBounds(t *testing.T) {
	params := PaginationParams{Page: 2, Limit: 10, Offset: 10}
	params.SetPaginationStats(25)
	assert.Equal(t, 25, params.TotalRecords)
	assert.Equal(t, 3, params.TotalPages)

	start, end := params.Bounds(25)
	assert.Equal(t, 10, start)
	assert.Equal(t, 20, end)

	// Last partial page.
	params = PaginationParams{Page: 3, Limit: 10, Offset: 20}
	start, end = params.Bounds(25)
	assert.Equal(t, 20, start)
	assert.Equal(t, 25, end)

	// Page past the end yields an empty window, never a panic.
	params = PaginationParams{Page: 9, Limit: 10, Offset: 80}
	start, end = params.Bounds(25)
	assert.Equal(t, start, end)

	params.SetPaginationStats(0)
	assert.Equal(t, 0, params.TotalPages)
}
