package query

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextWithQuery(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/tasks?"+rawQuery, nil)
	require.NotNil(t, c.Request)
	return c
}

func TestParseQueryParamsDefaults(t *testing.T) {
	params := ParseQueryParams(contextWithQuery(t, ""))

	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 10, params.Limit)
	assert.Equal(t, "created_at", params.Sort.Field)
	assert.Equal(t, "desc", params.Sort.Order)
	assert.Empty(t, params.Filters)
}

func TestParseQueryParamsFiltersAndSort(t *testing.T) {
	params := ParseQueryParams(contextWithQuery(t,
		"page=2&limit=25&search=report&filters[status]=TODO&filters[priority]=HIGH&sort[field]=due_date&sort[order]=asc"))

	assert.Equal(t, 2, params.Page)
	assert.Equal(t, 25, params.Limit)
	assert.Equal(t, "report", params.Search)
	assert.Equal(t, "TODO", params.Filters["status"])
	assert.Equal(t, "HIGH", params.Filters["priority"])
	assert.Equal(t, "due_date", params.Sort.Field)
	assert.Equal(t, "asc", params.Sort.Order)
}

func TestParseQueryParamsClampsAbusiveValues(t *testing.T) {
	params := ParseQueryParams(contextWithQuery(t, "page=-3&limit=5000&sort[order]=DROP"))

	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 100, params.Limit)
	assert.Equal(t, "desc", params.Sort.Order)
}

func TestValidateFilters(t *testing.T) {
	statusValidator := func(v string) error {
		if v != "TODO" && v != "COMPLETED" {
			return assert.AnError
		}
		return nil
	}
	validators := map[string]FilterValidator{"status": statusValidator}

	assert.NoError(t, ValidateFilters(map[string]string{"status": "TODO"}, validators))

	err := ValidateFilters(map[string]string{"status": "BOGUS"}, validators)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `filter "status"`)

	// Filters without a registered validator pass through; the allow-list
	// decides their fate later.
	assert.NoError(t, ValidateFilters(map[string]string{"category": "anything"}, validators))
}

func TestBuildPaginationResponse(t *testing.T) {
	resp := BuildPaginationResponse(2, 10, 35)

	assert.Equal(t, int64(4), resp.TotalPages)
	assert.True(t, resp.HasNext)
	assert.True(t, resp.HasPrev)
}
