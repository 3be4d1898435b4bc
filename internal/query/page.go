package query

// Page selects a 1-based page of results.
type Page struct {
	Page     int
	PageSize int
}

// PageInfo describes the pagination state of a result set.
type PageInfo struct {
	Total        int  `json:"total"`
	TotalPages   int  `json:"total_pages"`
	FirstPage    int  `json:"first_page"`
	LastPage     int  `json:"last_page"`
	Page         int  `json:"page"`
	PreviousPage *int `json:"previous_page,omitempty"`
	NextPage     *int `json:"next_page,omitempty"`
}

// Normalize clamps the page to [1, ...] and the size to [1, maxSize],
// substituting defaultSize when unset.
func (p Page) Normalize(defaultSize, maxSize int) Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultSize
	}
	if maxSize > 0 && p.PageSize > maxSize {
		p.PageSize = maxSize
	}
	if p.PageSize < 1 {
		p.PageSize = 1
	}
	return p
}

// Paginate slices values according to p, which must be normalized.
func Paginate[T any](values []T, p Page) ([]T, PageInfo) {
	total := len(values)
	info := PageInfo{Total: total, FirstPage: 1, Page: p.Page}
	info.TotalPages = (total + p.PageSize - 1) / p.PageSize
	info.LastPage = max(info.TotalPages, 1)
	if p.Page > 1 {
		prev := min(p.Page-1, info.LastPage)
		info.PreviousPage = &prev
	}
	if p.Page < info.TotalPages {
		next := p.Page + 1
		info.NextPage = &next
	}
	// Compare pages before multiplying so huge page numbers cannot overflow.
	if p.Page > info.TotalPages {
		return []T{}, info
	}
	start := (p.Page - 1) * p.PageSize
	end := min(start+p.PageSize, total)
	return values[start:end], info
}
