package domain

const (
	DefaultPage  = 1
	MaxPageLimit = 100
	// MaxPageNumber bounds Number so Offset cannot overflow.
	MaxPageNumber = 100_000
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Limit  int
}

// NewPage normalises a page request, falling back to defaultLimit.
func NewPage(number, limit, defaultLimit int) Page {
	if number < 1 {
		number = DefaultPage
	}
	if number > MaxPageNumber {
		number = MaxPageNumber
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Number: number, Limit: limit}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// Pagination describes a page of results returned to clients.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalItems  int `json:"totalItems"`
	Limit       int `json:"limit"`
}

func (p Page) Result(total int) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{
		CurrentPage: p.Number,
		TotalPages:  pages,
		TotalItems:  total,
		Limit:       p.Limit,
	}
}
