package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CapsuleSortFields are the capsule list columns a caller may order by
var CapsuleSortFields = map[string]bool{
	"created_at":  true,
	"unlock_date": true,
	"title":       true,
}

// orderClause builds a table-qualified ORDER BY from caller input. The id
// tie-break keeps pages stable when the sort column repeats.
func orderClause(table, orderBy, orderDir string, allowed map[string]bool, defaultField string) string {
	field := ValidateSortField(orderBy, allowed, defaultField)
	dir := ValidateSortOrder(orderDir)
	return table + "." + field + " " + dir + ", " + table + ".id " + dir
}
