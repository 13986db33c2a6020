package matchdex

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/matchdex/matchdex/internal/domain"
)

const tagKey = "matchdex"

// schemaMeta holds parsed struct tag metadata, cached per TypedRecords.
type schemaMeta struct {
	typ reflect.Type // struct type for reconstruction

	// Field index in the struct for each role.
	idIdx     int
	textIdx   int
	skillsIdx int // -1 if not present

	// Mapping from struct field index to record field name.
	tagFields     []fieldMapping
	numericFields []fieldMapping
}

type fieldMapping struct {
	structIdx int
	name      string
}

// parseSchema reflects on T and extracts matchdex struct tag metadata.
func parseSchema[T any]() (*schemaMeta, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return nil, fmt.Errorf("matchdex: type parameter is not a struct")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("matchdex: type %s is not a struct", t)
	}

	meta := &schemaMeta{typ: t, idIdx: -1, textIdx: -1, skillsIdx: -1}

	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" {
			continue
		}
		if err := applyTag(meta, i, f.Name, tag); err != nil {
			return nil, err
		}
	}

	return validateSchema(meta, t)
}

// applyTag processes a single struct field's matchdex tag.
func applyTag(meta *schemaMeta, idx int, fieldName, tag string) error {
	parts := strings.SplitN(tag, ",", 2)
	name := parts[0]
	modifier := ""
	if len(parts) == 2 {
		modifier = parts[1]
	}

	switch modifier {
	case "id":
		if meta.idIdx != -1 {
			return fmt.Errorf("matchdex: duplicate id tag on field %s", fieldName)
		}
		meta.idIdx = idx
	case "text":
		if meta.textIdx != -1 {
			return fmt.Errorf("matchdex: duplicate text tag on field %s", fieldName)
		}
		meta.textIdx = idx
	case "skills":
		if meta.skillsIdx != -1 {
			return fmt.Errorf("matchdex: duplicate skills tag on field %s", fieldName)
		}
		meta.skillsIdx = idx
	case "tag":
		if err := checkFieldName(name, domain.FieldTag, fieldName); err != nil {
			return err
		}
		meta.tagFields = append(meta.tagFields, fieldMapping{structIdx: idx, name: name})
	case "numeric":
		if err := checkFieldName(name, domain.FieldNumeric, fieldName); err != nil {
			return err
		}
		meta.numericFields = append(meta.numericFields, fieldMapping{structIdx: idx, name: name})
	case "":
		// Поле без модификатора не индексируется.
	default:
		return fmt.Errorf("matchdex: unknown modifier %q on field %s", modifier, fieldName)
	}
	return nil
}

// checkFieldName validates a tag/numeric name against the fixed
// structured field schema before anything reaches the facade.
func checkFieldName(name string, want domain.FieldType, fieldName string) error {
	if name == domain.FieldSkills {
		return fmt.Errorf("matchdex: field %s must use the skills modifier, not %s", fieldName, want)
	}
	ft, ok := domain.FilterableFieldType(name)
	if !ok {
		return fmt.Errorf("matchdex: unknown structured field %q on field %s", name, fieldName)
	}
	if ft != want {
		return fmt.Errorf("matchdex: structured field %q is %s, not %s (field %s)", name, ft, want, fieldName)
	}
	return nil
}

func validateSchema(meta *schemaMeta, t reflect.Type) (*schemaMeta, error) {
	if meta.idIdx == -1 {
		return nil, fmt.Errorf("matchdex: no field with `matchdex:\"...,id\"` tag in %s", t)
	}
	if meta.textIdx == -1 {
		return nil, fmt.Errorf("matchdex: no field with `matchdex:\"...,text\"` tag in %s", t)
	}
	if t.Field(meta.idIdx).Type.Kind() != reflect.String {
		return nil, fmt.Errorf("matchdex: id field %s must be a string", t.Field(meta.idIdx).Name)
	}
	if t.Field(meta.textIdx).Type.Kind() != reflect.String {
		return nil, fmt.Errorf("matchdex: text field %s must be a string", t.Field(meta.textIdx).Name)
	}
	if meta.skillsIdx != -1 && t.Field(meta.skillsIdx).Type != reflect.TypeOf([]string(nil)) {
		return nil, fmt.Errorf("matchdex: skills field %s must be []string", t.Field(meta.skillsIdx).Name)
	}
	for _, tf := range meta.tagFields {
		if t.Field(tf.structIdx).Type.Kind() != reflect.String {
			return nil, fmt.Errorf("matchdex: tag field %s must be a string", t.Field(tf.structIdx).Name)
		}
	}
	return meta, nil
}

// toRecord converts a typed struct to Record using schema metadata.
func (m *schemaMeta) toRecord(item any) Record {
	v := reflect.ValueOf(item)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}

	rec := Record{
		ID:   v.Field(m.idIdx).String(),
		Text: v.Field(m.textIdx).String(),
	}
	if m.skillsIdx != -1 {
		if skills, ok := v.Field(m.skillsIdx).Interface().([]string); ok {
			rec.Skills = skills
		}
	}
	if len(m.tagFields) > 0 {
		rec.Tags = make(map[string]string, len(m.tagFields))
		for _, tf := range m.tagFields {
			rec.Tags[tf.name] = fmt.Sprint(v.Field(tf.structIdx).Interface())
		}
	}
	if len(m.numericFields) > 0 {
		rec.Numerics = make(map[string]float64, len(m.numericFields))
		for _, nf := range m.numericFields {
			rec.Numerics[nf.name] = toFloat64(v.Field(nf.structIdx))
		}
	}
	return rec
}

// fromRecord converts a Record back to a typed struct using schema metadata.
func (m *schemaMeta) fromRecord(rec Record) any {
	v := reflect.New(m.typ).Elem()

	v.Field(m.idIdx).SetString(rec.ID)
	v.Field(m.textIdx).SetString(rec.Text)
	if m.skillsIdx != -1 && rec.Skills != nil {
		v.Field(m.skillsIdx).Set(reflect.ValueOf(rec.Skills))
	}
	for _, tf := range m.tagFields {
		if val, ok := rec.Tags[tf.name]; ok {
			v.Field(tf.structIdx).SetString(val)
		}
	}
	for _, nf := range m.numericFields {
		if val, ok := rec.Numerics[nf.name]; ok {
			setFloat(v.Field(nf.structIdx), val)
		}
	}
	return v.Interface()
}

func toFloat64(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	default:
		return 0
	}
}

func setFloat(v reflect.Value, f float64) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		v.SetFloat(f)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v.SetInt(int64(f))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v.SetUint(uint64(f))
	}
}
