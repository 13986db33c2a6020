// Package record defines the entity record aggregate: one resume or one
// job posting, normalized for embedding, filtering and analytics.
package record

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/matchdex/matchdex/internal/domain"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

const (
	// MaxIDLength is the maximum record identifier length.
	MaxIDLength = 128
	// MaxRawTextSize is the maximum raw text size in bytes.
	MaxRawTextSize = 65536 // 64KB
)

// Record is the entity record aggregate (immutable value object).
// Raw text is the only input to similarity scoring; structured fields
// serve filtering and analytics. Mutation is replace-only: a change to
// the text always goes through re-ingestion and re-embedding.
type Record struct {
	id         string
	population domain.Population
	rawText    string
	skills     []string
	numerics   map[string]float64
	tags       map[string]string
}

// New validates and creates a Record.
// ID: ^[a-zA-Z0-9_-]+$, 1-128 chars. Raw text: non-empty after trimming,
// max 64KB. Skills are lowercased, deduplicated and sorted. Numeric and
// tag keys must belong to the fixed structured-field schema.
func New(id string, population domain.Population, rawText string, skills []string,
	numerics map[string]float64, tags map[string]string,
) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("%w: record ID is required", domain.ErrInvalidInput)
	}
	if len(id) > MaxIDLength {
		return Record{}, fmt.Errorf("%w: record ID too long (max %d)", domain.ErrInvalidInput, MaxIDLength)
	}
	if !idRegex.MatchString(id) {
		return Record{}, fmt.Errorf("%w: record ID must be alphanumeric with underscores and hyphens", domain.ErrInvalidInput)
	}
	if _, err := domain.ParsePopulation(string(population)); err != nil {
		return Record{}, err
	}

	text := strings.TrimSpace(rawText)
	if text == "" {
		return Record{}, fmt.Errorf("%w: raw text is required", domain.ErrInvalidInput)
	}
	if len(text) > MaxRawTextSize {
		return Record{}, fmt.Errorf("%w: raw text too large (max %d bytes)", domain.ErrInvalidInput, MaxRawTextSize)
	}

	if err := validateFields(numerics, tags); err != nil {
		return Record{}, err
	}

	return Record{
		id:         id,
		population: population,
		rawText:    text,
		skills:     normalizeSkills(skills),
		numerics:   cloneFloat64Map(numerics),
		tags:       cloneStringMap(tags),
	}, nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(id string, population domain.Population, rawText string, skills []string,
	numerics map[string]float64, tags map[string]string,
) Record {
	return Record{id: id, population: population, rawText: rawText, skills: skills, numerics: numerics, tags: tags}
}

// ID returns the record identifier.
func (r *Record) ID() string { return r.id }

// Population returns the entity class this record belongs to.
func (r *Record) Population() domain.Population { return r.population }

// RawText returns the normalized text content used for embedding.
func (r *Record) RawText() string { return r.rawText }

// Skills returns the normalized skill set (lowercase, sorted).
func (r *Record) Skills() []string { return r.skills }

// Numerics returns the numeric structured fields.
func (r *Record) Numerics() map[string]float64 { return r.numerics }

// Tags returns the tag structured fields.
func (r *Record) Tags() map[string]string { return r.tags }

// Owner returns the owner tag, empty when unset.
func (r *Record) Owner() string { return r.tags[domain.FieldOwner] }

// ContentHash returns the hex SHA-256 of the raw text; the embedding
// cache is addressed by this value.
func (r *Record) ContentHash() string {
	sum := sha256.Sum256([]byte(r.rawText))
	return hex.EncodeToString(sum[:])
}

// HasSkill reports whether the normalized skill set contains s.
func (r *Record) HasSkill(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, have := range r.skills {
		if have == s {
			return true
		}
	}
	return false
}

// Snippet returns the first n runes of the raw text for display.
func (r *Record) Snippet(n int) string {
	runes := []rune(r.rawText)
	if len(runes) <= n {
		return r.rawText
	}
	return string(runes[:n]) + "..."
}

func validateFields(numerics map[string]float64, tags map[string]string) error {
	for name, v := range numerics {
		ft, ok := domain.FilterableFieldType(name)
		if !ok || ft != domain.FieldNumeric {
			return fmt.Errorf("%w: unknown numeric field %q", domain.ErrInvalidInput, name)
		}
		if v < 0 {
			return fmt.Errorf("%w: numeric field %q must not be negative", domain.ErrInvalidInput, name)
		}
	}
	for name := range tags {
		ft, ok := domain.FilterableFieldType(name)
		if !ok || ft != domain.FieldTag {
			return fmt.Errorf("%w: unknown tag field %q", domain.ErrInvalidInput, name)
		}
	}

	minS, hasMin := numerics[domain.FieldSalaryMin]
	maxS, hasMax := numerics[domain.FieldSalaryMax]
	if hasMin && hasMax && minS > maxS {
		return fmt.Errorf("%w: salary_min exceeds salary_max", domain.ErrInvalidInput)
	}
	return nil
}

func normalizeSkills(skills []string) []string {
	if len(skills) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func cloneFloat64Map(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	c := make(map[string]float64, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
