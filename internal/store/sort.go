package store

// allowedSortFields is the closed set of columns SearchService may order
// by — unlike a blocklist, an unrecognized value can never slip through.
var allowedSortFields = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"submitted_at": true,
	"amount":       true,
	"id":           true,
}

const (
	defaultSortField = "created_at"
	defaultSortOrder = "DESC"
)

// NormalizeSort validates (field, order) against the closed set and falls
// back to (created_at, DESC) on anything it doesn't recognize, rather than
// rejecting the request — see the resolved open question in SPEC_FULL.md.
func NormalizeSort(field, order string) (string, string) {
	if !allowedSortFields[field] {
		field = defaultSortField
	}
	switch order {
	case "ASC", "asc":
		order = "ASC"
	case "DESC", "desc":
		order = "DESC"
	default:
		order = defaultSortOrder
	}
	return field, order
}
