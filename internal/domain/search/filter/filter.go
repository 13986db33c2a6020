// Package filter defines structured-field filters evaluated in process
// against record fields during a top-K scan.
package filter

import (
	"fmt"
	"strings"

	"github.com/matchdex/matchdex/internal/domain"
)

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 32

// Expression is a structured filter with must/should/must_not boolean semantics.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, should, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("%w: too many must conditions (max %d)", domain.ErrInvalidInput, MaxConditionsPerGroup)
	}
	if len(should) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("%w: too many should conditions (max %d)", domain.ErrInvalidInput, MaxConditionsPerGroup)
	}
	if len(mustNot) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("%w: too many must_not conditions (max %d)", domain.ErrInvalidInput, MaxConditionsPerGroup)
	}
	return Expression{must: must, should: should, mustNot: mustNot}, nil
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// Should returns the should conditions.
func (e Expression) Should() []Condition { return e.should }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

// WithMustNot returns a copy of the expression with c appended to the
// must_not group. The receiver is not modified.
func (e Expression) WithMustNot(c Condition) (Expression, error) {
	mustNot := make([]Condition, 0, len(e.mustNot)+1)
	mustNot = append(mustNot, e.mustNot...)
	mustNot = append(mustNot, c)
	return NewExpression(e.must, e.should, mustNot)
}

// Matches evaluates the expression against one record's structured fields.
// Every must condition has to hold, no must_not condition may hold, and
// when should conditions exist at least one has to hold.
func (e Expression) Matches(skills []string, numerics map[string]float64, tags map[string]string) bool {
	for _, c := range e.must {
		if !c.matches(skills, numerics, tags) {
			return false
		}
	}
	for _, c := range e.mustNot {
		if c.matches(skills, numerics, tags) {
			return false
		}
	}
	if len(e.should) == 0 {
		return true
	}
	for _, c := range e.should {
		if c.matches(skills, numerics, tags) {
			return true
		}
	}
	return false
}

// Condition is a single filter clause: either a tag match or a numeric range.
// Match conditions are only valid on tag fields, range conditions only on
// numeric fields; the skills field is a set, so a match tests membership.
type Condition struct {
	key       string
	match     string
	rangeExpr *Range
}

// NewMatch creates an exact tag match condition (case-insensitive).
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("%w: filter key is required", domain.ErrInvalidInput)
	}
	ft, ok := domain.FilterableFieldType(key)
	if !ok {
		return Condition{}, fmt.Errorf("%w: unknown filter field %q", domain.ErrInvalidInput, key)
	}
	if ft != domain.FieldTag {
		return Condition{}, fmt.Errorf("%w: match condition on numeric field %q", domain.ErrInvalidInput, key)
	}
	if match == "" {
		return Condition{}, fmt.Errorf("%w: match value is required for key %q", domain.ErrInvalidInput, key)
	}
	return Condition{key: key, match: match}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("%w: filter key is required", domain.ErrInvalidInput)
	}
	ft, ok := domain.FilterableFieldType(key)
	if !ok {
		return Condition{}, fmt.Errorf("%w: unknown filter field %q", domain.ErrInvalidInput, key)
	}
	if ft != domain.FieldNumeric {
		return Condition{}, fmt.Errorf("%w: range condition on tag field %q", domain.ErrInvalidInput, key)
	}
	return Condition{key: key, rangeExpr: &r}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return c.match != "" }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

func (c Condition) matches(skills []string, numerics map[string]float64, tags map[string]string) bool {
	if c.IsRange() {
		v, ok := numerics[c.key]
		return ok && c.rangeExpr.contains(v)
	}

	want := strings.ToLower(c.match)
	if c.key == domain.FieldSkills {
		for _, s := range skills {
			if s == want {
				return true
			}
		}
		return false
	}
	have, ok := tags[c.key]
	return ok && strings.EqualFold(have, c.match)
}

// Range is a numeric range with gt/gte/lt/lte boundaries.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRangeFilter validates and creates a Range.
// At least one boundary required. gt/gte and lt/lte are mutually exclusive.
func NewRangeFilter(gt, gte, lt, lte *float64) (Range, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, fmt.Errorf("%w: at least one range boundary is required", domain.ErrInvalidInput)
	}
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("%w: cannot specify both gt and gte", domain.ErrInvalidInput)
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("%w: cannot specify both lt and lte", domain.ErrInvalidInput)
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }

func (r *Range) contains(v float64) bool {
	if r.gt != nil && v <= *r.gt {
		return false
	}
	if r.gte != nil && v < *r.gte {
		return false
	}
	if r.lt != nil && v >= *r.lt {
		return false
	}
	if r.lte != nil && v > *r.lte {
		return false
	}
	return true
}
