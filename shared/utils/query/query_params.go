// Package query implements the list-endpoint contract shared by the user
// and task collections: `filters[field]=value` equality filters,
// `sort[field]`/`sort[order]`, `search`, and page/limit pagination.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// FilterParams carries everything a list endpoint accepts from the client.
type FilterParams struct {
	Filters map[string]string `json:"filters"`
	Sort    SortParams        `json:"sort"`
	Page    int               `json:"page"`
	Limit   int               `json:"limit"`
	Search  string            `json:"search"`
}

type SortParams struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

// PaginationResponse is the metadata block returned next to list items.
type PaginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// FilterValidator checks a single filter value before it reaches the query.
// List endpoints register one per enum-typed filter so unknown statuses,
// priorities or roles are rejected at the boundary instead of silently
// matching nothing.
type FilterValidator func(value string) error

// ParseQueryParams reads the shared list parameters from the request.
// Pagination is clamped, never rejected: page floors at 1 and limit is
// capped so a client cannot request the whole table in one call.
func ParseQueryParams(c *gin.Context) FilterParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	// filters[field]=value
	filters := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if strings.HasPrefix(key, "filters[") && strings.HasSuffix(key, "]") {
			field := key[len("filters[") : len(key)-1]
			if len(values) > 0 && values[0] != "" {
				filters[field] = values[0]
			}
		}
	}

	sortField := c.Query("sort[field]")
	if sortField == "" {
		sortField = "created_at"
	}
	sortOrder := c.Query("sort[order]")
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return FilterParams{
		Filters: filters,
		Sort:    SortParams{Field: sortField, Order: sortOrder},
		Page:    page,
		Limit:   limit,
		Search:  c.Query("search"),
	}
}

// ValidateFilters runs the registered validators over the requested filter
// values. Filters without a validator pass through; the allow-list in
// ApplyFilters still decides whether they reach the query.
func ValidateFilters(filters map[string]string, validators map[string]FilterValidator) error {
	for field, value := range filters {
		if validate, ok := validators[field]; ok && validate != nil {
			if err := validate(value); err != nil {
				return fmt.Errorf("invalid value for filter %q: %w", field, err)
			}
		}
	}
	return nil
}

// ApplyFilters adds equality conditions for the allow-listed filters. The
// allow-list maps query names to column names, so clients never inject
// column identifiers.
func ApplyFilters(query *gorm.DB, filters map[string]string, allowedFields map[string]string) *gorm.DB {
	for field, value := range filters {
		if column, allowed := allowedFields[field]; allowed && value != "" {
			query = query.Where(fmt.Sprintf("%s = ?", column), value)
		}
	}
	return query
}

// ApplySearch adds a case-insensitive substring match across the given
// columns, OR-combined.
func ApplySearch(query *gorm.DB, search string, searchFields []string) *gorm.DB {
	if search == "" || len(searchFields) == 0 {
		return query
	}

	conditions := make([]string, len(searchFields))
	args := make([]interface{}, len(searchFields))
	for i, field := range searchFields {
		conditions[i] = fmt.Sprintf("%s ILIKE ?", field)
		args[i] = "%" + search + "%"
	}

	return query.Where(strings.Join(conditions, " OR "), args...)
}

// ApplySort orders by the requested field when allow-listed, falling back
// to newest-first.
func ApplySort(query *gorm.DB, sort SortParams, allowedSortFields map[string]string) *gorm.DB {
	if column, allowed := allowedSortFields[sort.Field]; allowed {
		return query.Order(fmt.Sprintf("%s %s", column, strings.ToUpper(sort.Order)))
	}
	return query.Order("created_at DESC")
}

func ApplyPagination(query *gorm.DB, page, limit int) *gorm.DB {
	return query.Offset((page - 1) * limit).Limit(limit)
}

// BuildPaginationResponse derives the metadata block from the clamped page
// parameters and the pre-pagination row count.
func BuildPaginationResponse(page, limit int, total int64) PaginationResponse {
	totalPages := (total + int64(limit) - 1) / int64(limit)
	return PaginationResponse{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < int(totalPages),
		HasPrev:    page > 1,
	}
}
