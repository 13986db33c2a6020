package request

import (
	"errors"
	"strings"
	"testing"

	"github.com/matchdex/matchdex/internal/domain"
	"github.com/matchdex/matchdex/internal/domain/search/filter"
	"github.com/matchdex/matchdex/internal/domain/search/mode"
)

func emptyFilters() filter.Expression {
	e, _ := filter.NewExpression(nil, nil, nil)
	return e
}

func TestNew_Defaults(t *testing.T) {
	r, err := New("senior gopher", "", emptyFilters(), 0, 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Query() != "senior gopher" {
		t.Errorf("Query() = %q", r.Query())
	}
	if r.Mode() != mode.Semantic {
		t.Errorf("Mode() = %q, want semantic (default)", r.Mode())
	}
	if r.K() != DefaultK {
		t.Errorf("K() = %d, want %d", r.K(), DefaultK)
	}
	if r.MinScore() != 0 {
		t.Errorf("MinScore() = %f", r.MinScore())
	}
	if r.ExcludeOwner() != "" {
		t.Errorf("ExcludeOwner() = %q", r.ExcludeOwner())
	}
}

func TestNew_ExplicitValues(t *testing.T) {
	r, err := New("query", mode.Hybrid, emptyFilters(), 50, 0.5, "emp-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Mode() != mode.Hybrid {
		t.Errorf("Mode() = %q", r.Mode())
	}
	if r.K() != 50 {
		t.Errorf("K() = %d", r.K())
	}
	if r.MinScore() != 0.5 {
		t.Errorf("MinScore() = %f", r.MinScore())
	}
	if r.ExcludeOwner() != "emp-1" {
		t.Errorf("ExcludeOwner() = %q", r.ExcludeOwner())
	}
}

func TestNew_TrimsQuery(t *testing.T) {
	r, err := New("  find gophers \n", "", emptyFilters(), 0, 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Query() != "find gophers" {
		t.Errorf("Query() = %q", r.Query())
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		fn   func() (Request, error)
	}{
		{"empty query", func() (Request, error) {
			return New("", mode.Semantic, emptyFilters(), 10, 0, "")
		}},
		{"whitespace query", func() (Request, error) {
			return New("   ", mode.Semantic, emptyFilters(), 10, 0, "")
		}},
		{"query too long", func() (Request, error) {
			return New(strings.Repeat("x", MaxQueryLength+1), mode.Semantic, emptyFilters(), 10, 0, "")
		}},
		{"invalid mode", func() (Request, error) {
			return New("q", "fuzzy", emptyFilters(), 10, 0, "")
		}},
		{"negative k", func() (Request, error) {
			return New("q", mode.Semantic, emptyFilters(), -1, 0, "")
		}},
		{"min_score below cosine domain", func() (Request, error) {
			return New("q", mode.Semantic, emptyFilters(), 10, -1.5, "")
		}},
		{"min_score above cosine domain", func() (Request, error) {
			return New("q", mode.Semantic, emptyFilters(), 10, 1.5, "")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestNew_KClamping(t *testing.T) {
	r, err := New("q", mode.Semantic, emptyFilters(), MaxK+100, 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.K() != MaxK {
		t.Errorf("K() = %d, want clamped to %d", r.K(), MaxK)
	}
}

func TestNew_NegativeMinScoreAllowed(t *testing.T) {
	// cosine similarity may legitimately be negative
	r, err := New("q", mode.Semantic, emptyFilters(), 10, -0.25, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.MinScore() != -0.25 {
		t.Errorf("MinScore() = %f", r.MinScore())
	}
}
