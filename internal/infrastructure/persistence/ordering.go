package persistence

import (
	"strings"

	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"gorm.io/gorm"
)

// sortColumns whitelists the columns a list query may be ordered by.
// Caller-supplied names go into ORDER BY verbatim, so nothing else is accepted.
type sortColumns struct {
	allowed  map[string]bool
	fallback string
}

var (
	customerSort = sortColumns{
		allowed:  columnSet("id", "created_at", "updated_at", "code", "name"),
		fallback: "name",
	}
	invoiceSort = sortColumns{
		allowed:  columnSet("id", "created_at", "updated_at", "number", "issue_date", "due_date", "total", "status"),
		fallback: "issue_date",
	}
	paymentSort = sortColumns{
		allowed:  columnSet("id", "created_at", "updated_at", "payment_date", "amount", "method"),
		fallback: "payment_date",
	}
)

func columnSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// column returns the whitelisted column for name, or the fallback
func (s sortColumns) column(name string) string {
	if name = strings.TrimSpace(name); s.allowed[name] {
		return name
	}
	return s.fallback
}

// clause builds "<column> ASC|DESC"; anything but asc sorts descending
func (s sortColumns) clause(name, dir string) string {
	return s.column(name) + " " + sortDirection(dir)
}

func sortDirection(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// paginate limits query to the filter's page; a zero page size means no limit
func paginate(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page < 1 || filter.PageSize < 1 {
		return query
	}
	return query.Offset(filter.Offset()).Limit(filter.PageSize)
}
