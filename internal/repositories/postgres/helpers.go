package postgres

import (
	"strings"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// applyPaginationAndSort orders by a whitelisted column and bounds the page size
func applyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, allowed map[string]bool, limit, offset int) *gorm.DB {
	if !allowed[sortBy] {
		sortBy = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		order = "ASC"
	}
	query = query.Order(sortBy + " " + order)

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return query.Limit(limit).Offset(offset)
}
