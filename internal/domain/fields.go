package domain

// FieldType is the filtering type of a structured record field.
type FieldType string

const (
	// FieldTag is matched by exact (case-insensitive) value.
	FieldTag FieldType = "tag"
	// FieldNumeric is matched by numeric range.
	FieldNumeric FieldType = "numeric"
)

// Structured field names shared by records, filters and analytics.
// The schema is fixed: both populations carry the same field set so the
// facades stay structurally identical.
const (
	FieldSkills          = "skills"
	FieldExperienceYears = "experience_years"
	FieldSalaryMin       = "salary_min"
	FieldSalaryMax       = "salary_max"
	FieldCompany         = "company"
	FieldTitle           = "title"
	FieldLocation        = "location"
	FieldEmployment      = "employment"
	FieldEducation       = "education"
	FieldOwner           = "owner"
)

// filterableFields maps every field a filter may reference to its type.
// Skills are a tag set: a match condition tests membership.
var filterableFields = map[string]FieldType{
	FieldSkills:          FieldTag,
	FieldCompany:         FieldTag,
	FieldTitle:           FieldTag,
	FieldLocation:        FieldTag,
	FieldEmployment:      FieldTag,
	FieldEducation:       FieldTag,
	FieldOwner:           FieldTag,
	FieldExperienceYears: FieldNumeric,
	FieldSalaryMin:       FieldNumeric,
	FieldSalaryMax:       FieldNumeric,
}

// FilterableFieldType reports the type of a filterable field and whether it exists.
func FilterableFieldType(name string) (FieldType, bool) {
	t, ok := filterableFields[name]
	return t, ok
}
