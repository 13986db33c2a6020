package vecindex

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/matchdex/matchdex/internal/domain"
	"github.com/matchdex/matchdex/internal/domain/record"
	"github.com/matchdex/matchdex/internal/domain/search/filter"
)

func testRecord(t *testing.T, id string, skills []string, numerics map[string]float64, tags map[string]string) record.Record {
	t.Helper()
	rec, err := record.New(id, domain.PopulationResumes, "text for "+id, skills, numerics, tags)
	if err != nil {
		t.Fatalf("record.New(%s): %v", id, err)
	}
	return rec
}

func TestNew(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		ix, err := New(domain.PopulationJobs, 4)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if ix.Population() != domain.PopulationJobs {
			t.Errorf("Population = %q, want %q", ix.Population(), domain.PopulationJobs)
		}
		if ix.Dim() != 4 {
			t.Errorf("Dim = %d, want 4", ix.Dim())
		}
	})

	t.Run("invalid population", func(t *testing.T) {
		if _, err := New(domain.Population("candidates"), 4); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("error = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("non-positive dimension", func(t *testing.T) {
		if _, err := New(domain.PopulationResumes, 0); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("error = %v, want ErrInvalidInput", err)
		}
	})
}

func TestIndex_Upsert(t *testing.T) {
	ix, err := New(domain.PopulationResumes, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := testRecord(t, "rec-1", nil, nil, nil)

	t.Run("stores a copy of the vector", func(t *testing.T) {
		vec := []float32{1, 0, 0}
		if err := ix.Upsert(rec, vec); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
		vec[0] = 99

		got, err := ix.TopK([]float32{1, 0, 0}, 1, filter.Expression{})
		if err != nil {
			t.Fatalf("TopK: %v", err)
		}
		if len(got) != 1 || got[0].Score < 0.999 {
			t.Errorf("stored vector was mutated through the caller's slice: %+v", got)
		}
	})

	t.Run("replaces existing entry", func(t *testing.T) {
		if err := ix.Upsert(rec, []float32{0, 1, 0}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
		if ix.Len() != 1 {
			t.Errorf("Len = %d, want 1 after re-upsert", ix.Len())
		}
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		err := ix.Upsert(rec, []float32{1, 0})
		if !errors.Is(err, domain.ErrVectorDimMismatch) {
			t.Errorf("error = %v, want ErrVectorDimMismatch", err)
		}
	})

	t.Run("zero vector", func(t *testing.T) {
		err := ix.Upsert(rec, []float32{0, 0, 0})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("error = %v, want ErrInvalidInput", err)
		}
	})
}

func TestIndex_TopK(t *testing.T) {
	ix, err := New(domain.PopulationResumes, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Vectors at known angles from the query (1, 0): rec-a aligned,
	// rec-b at 45 degrees, rec-c orthogonal.
	vectors := map[string][]float32{
		"rec-a": {1, 0},
		"rec-b": {1, 1},
		"rec-c": {0, 1},
	}
	for id, vec := range vectors {
		if err := ix.Upsert(testRecord(t, id, nil, nil, nil), vec); err != nil {
			t.Fatalf("Upsert(%s): %v", id, err)
		}
	}
	query := []float32{1, 0}

	t.Run("ordered by score descending", func(t *testing.T) {
		got, err := ix.TopK(query, 10, filter.Expression{})
		if err != nil {
			t.Fatalf("TopK: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("len = %d, want 3", len(got))
		}
		wantOrder := []string{"rec-a", "rec-b", "rec-c"}
		for i, want := range wantOrder {
			if got[i].Record.ID() != want {
				t.Errorf("result[%d] = %s, want %s", i, got[i].Record.ID(), want)
			}
		}
		if got[0].Score < 0.999 {
			t.Errorf("identical vector scored %v, want ~1.0", got[0].Score)
		}
		for i := 1; i < len(got); i++ {
			if got[i].Score > got[i-1].Score {
				t.Errorf("scores not descending at %d: %v > %v", i, got[i].Score, got[i-1].Score)
			}
		}
	})

	t.Run("k caps the result length", func(t *testing.T) {
		got, err := ix.TopK(query, 2, filter.Expression{})
		if err != nil {
			t.Fatalf("TopK: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		if got[0].Record.ID() != "rec-a" || got[1].Record.ID() != "rec-b" {
			t.Errorf("top-2 = [%s, %s], want [rec-a, rec-b]", got[0].Record.ID(), got[1].Record.ID())
		}
	})

	t.Run("non-positive k", func(t *testing.T) {
		if _, err := ix.TopK(query, 0, filter.Expression{}); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("error = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("query dimension mismatch", func(t *testing.T) {
		if _, err := ix.TopK([]float32{1, 0, 0}, 3, filter.Expression{}); !errors.Is(err, domain.ErrVectorDimMismatch) {
			t.Errorf("error = %v, want ErrVectorDimMismatch", err)
		}
	})

	t.Run("zero query vector", func(t *testing.T) {
		if _, err := ix.TopK([]float32{0, 0}, 3, filter.Expression{}); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("error = %v, want ErrInvalidInput", err)
		}
	})
}

func TestIndex_TopK_TieBreak(t *testing.T) {
	ix, err := New(domain.PopulationResumes, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// All records share the same vector, so every score ties and the
	// order must fall back to ascending id, whatever the map iteration
	// order was.
	ids := []string{"rec-d", "rec-b", "rec-e", "rec-a", "rec-c"}
	for _, id := range ids {
		if err := ix.Upsert(testRecord(t, id, nil, nil, nil), []float32{1, 1}); err != nil {
			t.Fatalf("Upsert(%s): %v", id, err)
		}
	}

	for run := 0; run < 10; run++ {
		got, err := ix.TopK([]float32{1, 1}, 3, filter.Expression{})
		if err != nil {
			t.Fatalf("TopK: %v", err)
		}
		want := []string{"rec-a", "rec-b", "rec-c"}
		for i := range want {
			if got[i].Record.ID() != want[i] {
				t.Fatalf("run %d: result[%d] = %s, want %s", run, i, got[i].Record.ID(), want[i])
			}
		}
	}
}

func TestIndex_TopK_EmptyIndex(t *testing.T) {
	ix, err := New(domain.PopulationResumes, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := ix.TopK([]float32{1, 0}, 5, filter.Expression{})
	if err != nil {
		t.Fatalf("TopK: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestIndex_TopK_Filters(t *testing.T) {
	ix, err := New(domain.PopulationResumes, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	recs := []struct {
		id     string
		skills []string
		years  float64
	}{
		{"rec-go-senior", []string{"go", "sql"}, 8},
		{"rec-go-junior", []string{"go"}, 1},
		{"rec-py-senior", []string{"python"}, 9},
	}
	for _, r := range recs {
		rec := testRecord(t, r.id, r.skills, map[string]float64{domain.FieldExperienceYears: r.years}, nil)
		if err := ix.Upsert(rec, []float32{1, 0}); err != nil {
			t.Fatalf("Upsert(%s): %v", r.id, err)
		}
	}

	skillGo, err := filter.NewMatch(domain.FieldSkills, "go")
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	gte := 5.0
	rng, err := filter.NewRangeFilter(nil, &gte, nil, nil)
	if err != nil {
		t.Fatalf("NewRangeFilter: %v", err)
	}
	seniorYears, err := filter.NewRange(domain.FieldExperienceYears, rng)
	if err != nil {
		t.Fatalf("NewRange: %v", err)
	}
	expr, err := filter.NewExpression([]filter.Condition{skillGo, seniorYears}, nil, nil)
	if err != nil {
		t.Fatalf("NewExpression: %v", err)
	}

	got, err := ix.TopK([]float32{1, 0}, 10, expr)
	if err != nil {
		t.Fatalf("TopK: %v", err)
	}
	if len(got) != 1 || got[0].Record.ID() != "rec-go-senior" {
		t.Errorf("filtered results = %+v, want only rec-go-senior", got)
	}
}

func TestIndex_Remove(t *testing.T) {
	ix, err := New(domain.PopulationResumes, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ix.Upsert(testRecord(t, "rec-1", nil, nil, nil), []float32{1, 0}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	ix.Remove("rec-1")
	if ix.Len() != 0 {
		t.Errorf("Len = %d after Remove, want 0", ix.Len())
	}
	if _, ok := ix.Get("rec-1"); ok {
		t.Error("Get returned a removed record")
	}

	// Removing an absent id is a no-op.
	ix.Remove("rec-1")
	ix.Remove("never-there")
}

func TestIndex_Snapshot(t *testing.T) {
	ix, err := New(domain.PopulationResumes, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, id := range []string{"rec-1", "rec-2", "rec-3"} {
		if err := ix.Upsert(testRecord(t, id, nil, nil, nil), []float32{1, 1}); err != nil {
			t.Fatalf("Upsert(%s): %v", id, err)
		}
	}

	snap := ix.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Snapshot len = %d, want 3", len(snap))
	}
	seen := make(map[string]bool, len(snap))
	for i := range snap {
		seen[snap[i].ID()] = true
	}
	for _, id := range []string{"rec-1", "rec-2", "rec-3"} {
		if !seen[id] {
			t.Errorf("Snapshot missing %s", id)
		}
	}
}

func TestIndex_ConcurrentAccess(t *testing.T) {
	ix, err := New(domain.PopulationResumes, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	recs := make([]record.Record, 0, 200)
	for w := 0; w < 4; w++ {
		for i := 0; i < 50; i++ {
			recs = append(recs, testRecord(t, fmt.Sprintf("rec-%d-%d", w, i), nil, nil, nil))
		}
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(batch []record.Record) {
			defer wg.Done()
			for i := range batch {
				if err := ix.Upsert(batch[i], []float32{1, float32(i + 1)}); err != nil {
					t.Errorf("Upsert(%s): %v", batch[i].ID(), err)
				}
			}
		}(recs[w*50 : (w+1)*50])
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if _, err := ix.TopK([]float32{1, 0}, 5, filter.Expression{}); err != nil {
					t.Errorf("TopK: %v", err)
				}
				ix.Len()
			}
		}()
	}
	wg.Wait()

	if ix.Len() != 200 {
		t.Errorf("Len = %d, want 200", ix.Len())
	}
}
