package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/"+query, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor(t, "")
	if p.Limit != 0 || p.Offset != 0 {
		t.Errorf("expected unbounded window, got %+v", p)
	}
	if !p.Unbounded() {
		t.Error("expected Unbounded")
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := paramsFor(t, "?limit=50&offset=10")
	if p.Limit != 50 {
		t.Errorf("expected limit 50, got %d", p.Limit)
	}
	if p.Offset != 10 {
		t.Errorf("expected offset 10, got %d", p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	p := paramsFor(t, "?limit=10000")
	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_Garbage(t *testing.T) {
	p := paramsFor(t, "?limit=abc&offset=-4")
	if p.Limit != 0 || p.Offset != 0 {
		t.Errorf("expected zero window, got %+v", p)
	}
}

func TestSQL(t *testing.T) {
	if got := (Params{}).SQL(); got != "OFFSET 0" {
		t.Errorf("unexpected SQL %q", got)
	}
	if got := (Params{Limit: 20, Offset: 40}).SQL(); got != "LIMIT 20 OFFSET 40" {
		t.Errorf("unexpected SQL %q", got)
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		p    Params
		want []int
	}{
		{Params{}, []int{1, 2, 3, 4, 5}},
		{Params{Limit: 2}, []int{1, 2}},
		{Params{Limit: 2, Offset: 4}, []int{5}},
		{Params{Offset: 3}, []int{4, 5}},
		{Params{Limit: 3, Offset: 9}, []int{}},
	}
	for _, tt := range tests {
		got := Page(items, tt.p)
		if len(got) != len(tt.want) {
			t.Errorf("Page(%+v) = %v, want %v", tt.p, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Page(%+v) = %v, want %v", tt.p, got, tt.want)
				break
			}
		}
	}
}

func TestNewResponse(t *testing.T) {
	r := NewResponse([]string{"a"}, 10, Params{Limit: 5})
	if !r.HasMore {
		t.Error("expected HasMore with 10 rows and limit 5")
	}
	r = NewResponse([]string{"a"}, 10, Params{})
	if r.HasMore {
		t.Error("expected no HasMore for unbounded window")
	}
}
