package persistence

import (
	"strings"

	"github.com/rentledger/backend/internal/domain/shared"
	"gorm.io/gorm/clause"
)

// tenancyOrderColumns whitelists the columns a tenancy list may be ordered by
var tenancyOrderColumns = map[string]struct{}{
	"created_at": {},
	"updated_at": {},
	"start_date": {},
	"end_date":   {},
	"status":     {},
}

// orderColumn turns caller-supplied ordering into a quoted ORDER BY column.
// Unknown columns fall back; any direction other than asc sorts descending.
func orderColumn(f shared.Filter, allowed map[string]struct{}, fallback string) clause.OrderByColumn {
	name := strings.ToLower(strings.TrimSpace(f.OrderBy))
	if _, ok := allowed[name]; !ok {
		name = fallback
	}
	return clause.OrderByColumn{
		Column: clause.Column{Name: name},
		Desc:   !strings.EqualFold(strings.TrimSpace(f.OrderDir), "asc"),
	}
}
