package handler

import (
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

type PaginationParams struct {
	Limit  int
	Offset int
}

func ParsePagination(r *http.Request) PaginationParams {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}

	if offset < 0 {
		offset = 0
	}

	return PaginationParams{
		Limit:  limit,
		Offset: offset,
	}
}

// Page wraps a list under a named key with the paging echo the
// review UI needs to render a pager. Total is included only when the
// listing endpoint counts (-1 means not counted).
func (p PaginationParams) Page(key string, items any, total int) map[string]any {
	body := map[string]any{
		key:      items,
		"limit":  p.Limit,
		"offset": p.Offset,
	}
	if total >= 0 {
		body["total"] = total
	}
	return body
}
