package shared

const (
	// DefaultPageLimit is applied when a listing request omits the limit.
	DefaultPageLimit = 100
	// MaxPageLimit caps a single listing page.
	MaxPageLimit = 500
)

// Page describes a limit/offset window over a listing.
type Page struct {
	Limit  int
	Offset int
}

// NormalizePage clamps limit and offset to sane bounds.
func NormalizePage(limit, offset int) Page {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}
