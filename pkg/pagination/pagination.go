package pagination

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

// MaxLimit caps an explicit limit. A request without a limit gets every row.
const MaxLimit = 500

// Params holds the optional window of a list request. Limit 0 means no
// limit.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads limit and offset query parameters. Missing, malformed
// or negative values fall back to "all rows from the start".
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 0 {
		limit = 0
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// Unbounded reports whether the request asked for every row.
func (p Params) Unbounded() bool {
	return p.Limit <= 0
}

// SQL returns the LIMIT/OFFSET suffix for a query.
func (p Params) SQL() string {
	if p.Unbounded() {
		return fmt.Sprintf("OFFSET %d", p.Offset)
	}
	return fmt.Sprintf("LIMIT %d OFFSET %d", p.Limit, p.Offset)
}

// HasNext returns true if rows remain after this window.
func (p Params) HasNext(total int) bool {
	if p.Unbounded() {
		return false
	}
	return p.Offset+p.Limit < total
}

// Window returns the [start, end) bounds of this window over n rows.
func (p Params) Window(n int) (int, int) {
	start := p.Offset
	if start > n {
		start = n
	}
	end := n
	if !p.Unbounded() && start+p.Limit < n {
		end = start + p.Limit
	}
	return start, end
}

// Page applies p to an in-memory slice.
func Page[T any](items []T, p Params) []T {
	start, end := p.Window(len(items))
	return items[start:end]
}

// Response wraps a list result.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit,omitempty"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.HasNext(total),
	}
}
