package types

// PageRequest carries pagination and ordering parsed from the query
// string. SortColumn is already validated against the repository's
// column whitelist by the time it reaches SQL.
type PageRequest struct {
	Page       int
	Size       int
	SortColumn string
	Descending bool
}

// Offset returns the SQL offset for the requested page.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Direction returns the SQL sort direction keyword.
func (p PageRequest) Direction() string {
	if p.Descending {
		return "DESC"
	}
	return "ASC"
}

// Page is the paginated response envelope, mirroring the shape clients
// of the previous backend already consume.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
}

// NewPage builds the envelope, computing TotalPages from the total
// element count and page size.
func NewPage[T any](content []T, total int64, req PageRequest) *Page[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := 0
	if req.Size > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return &Page[T]{
		Content:       content,
		TotalElements: total,
		TotalPages:    totalPages,
		Number:        req.Page,
		Size:          req.Size,
	}
}
