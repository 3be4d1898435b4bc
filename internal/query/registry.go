package query

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lejeunel/image-db-app/internal/taxonomy"
	"github.com/lejeunel/image-db-app/pkg/domain"
)

// Predicate reports whether a record satisfies a filter.
type Predicate func(ItemRecord) bool

// Filters maps filter keys to accepted values. Values of one key are OR'ed,
// keys are AND'ed.
type Filters map[string][]string

// TagsKey is the special key matching against the item's tag list.
const TagsKey = "tags"

// matcher compiles a raw filter value into a predicate.
type matcher func(value string) (Predicate, error)

// Registry is the closed set of filterable keys.
type Registry struct {
	fields     map[string]matcher
	properties map[string]domain.PropertyType
}

func stringField(get func(ItemRecord) *string) matcher {
	return func(value string) (Predicate, error) {
		return func(r ItemRecord) bool {
			v := get(r)
			return v != nil && *v == value
		}, nil
	}
}

func plainField(get func(ItemRecord) string) matcher {
	return stringField(func(r ItemRecord) *string {
		v := get(r)
		return &v
	})
}

func intField(key string, get func(ItemRecord) *int) matcher {
	return func(value string) (Predicate, error) {
		want, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, &domain.ValidationError{Entity: domain.EntityItem, Field: key, Value: value, Reason: "must be an integer"}
		}
		return func(r ItemRecord) bool {
			v := get(r)
			return v != nil && *v == want
		}, nil
	}
}

func floatField(key string, get func(ItemRecord) *float64) matcher {
	return func(value string) (Predicate, error) {
		want, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, &domain.ValidationError{Entity: domain.EntityItem, Field: key, Value: value, Reason: "must be a number"}
		}
		return func(r ItemRecord) bool {
			v := get(r)
			return v != nil && *v == want
		}, nil
	}
}

func timeField(key string, get func(ItemRecord) time.Time) matcher {
	return func(value string) (Predicate, error) {
		want, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
		if err != nil {
			return nil, &domain.ValidationError{Entity: domain.EntityItem, Field: key, Value: value, Reason: "must be an RFC 3339 timestamp"}
		}
		return func(r ItemRecord) bool { return get(r).Equal(want) }, nil
	}
}

func tagsField(value string) (Predicate, error) {
	return func(r ItemRecord) bool {
		for _, name := range r.TagNames() {
			if name == value {
				return true
			}
		}
		return false
	}, nil
}

// NewRegistry builds the registry of filterable keys. Item columns are
// reachable both bare (row) and table-prefixed (item_row).
func NewRegistry() *Registry {
	item := map[string]matcher{
		"id":           plainField(func(r ItemRecord) string { return r.ID }),
		"uri":          plainField(func(r ItemRecord) string { return r.URI }),
		"row":          stringField(func(r ItemRecord) *string { return r.Row }),
		"col":          intField("col", func(r ItemRecord) *int { return r.Col }),
		"site":         intField("site", func(r ItemRecord) *int { return r.Site }),
		"chan":         intField("chan", func(r ItemRecord) *int { return r.Chan }),
		"plate_id":     plainField(func(r ItemRecord) string { return r.PlateID }),
		"timepoint_id": plainField(func(r ItemRecord) string { return r.TimePointID }),
	}
	fields := make(map[string]matcher, 2*len(item)+24)
	for k, m := range item {
		fields[k] = m
		fields["item_"+k] = m
	}
	for k, m := range map[string]matcher{
		"plate_name":                     plainField(func(r ItemRecord) string { return r.PlateName }),
		"timepoint_uri":                  plainField(func(r ItemRecord) string { return r.TimePointURI }),
		"timepoint_time":                 timeField("timepoint_time", func(r ItemRecord) time.Time { return r.TimePointTime }),
		"section_id":                     stringField(func(r ItemRecord) *string { return r.SectionID }),
		"section_compound_concentration": floatField("section_compound_concentration", func(r ItemRecord) *float64 { return r.CompoundConcentration }),
		"compound_concentration":         floatField("compound_concentration", func(r ItemRecord) *float64 { return r.CompoundConcentration }),
		"cell_id":                        stringField(func(r ItemRecord) *string { return r.CellID }),
		"cell_name":                      stringField(func(r ItemRecord) *string { return r.CellName }),
		"cell_code":                      stringField(func(r ItemRecord) *string { return r.CellCode }),
		"compound_id":                    stringField(func(r ItemRecord) *string { return r.CompoundID }),
		"compound_name":                  stringField(func(r ItemRecord) *string { return r.CompoundName }),
		"compound_property_id":           intField("compound_property_id", func(r ItemRecord) *int { return r.CompoundPropertyID }),
		"stack_id":                       stringField(func(r ItemRecord) *string { return r.StackID }),
		"stack_name":                     stringField(func(r ItemRecord) *string { return r.StackName }),
		"modality_id":                    stringField(func(r ItemRecord) *string { return r.ModalityID }),
		"modality_name":                  stringField(func(r ItemRecord) *string { return r.ModalityName }),
		"modality_target":                stringField(func(r ItemRecord) *string { return r.ModalityTarget }),
		TagsKey:                          tagsField,
	} {
		fields[k] = m
	}
	properties := make(map[string]domain.PropertyType, 6)
	for _, t := range domain.PropertyTypes() {
		properties[string(t)] = t
		properties["compound_"+string(t)] = t
	}
	return &Registry{fields: fields, properties: properties}
}

// Keys lists every accepted filter key, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.fields)+len(r.properties))
	for k := range r.fields {
		keys = append(keys, k)
	}
	for k := range r.properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Compile turns filters into a single predicate. Taxonomy keys match the
// subtree of every node of that type carrying the value; a value naming no
// node yields a predicate that matches nothing. Unknown keys are rejected.
func (r *Registry) Compile(filters Filters, nodes []domain.CompoundProperty) (Predicate, error) {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	preds := make([]Predicate, 0, len(keys))
	for _, key := range keys {
		values := filters[key]
		if len(values) == 0 {
			continue
		}
		var alternatives []Predicate
		switch {
		case r.fields[key] != nil:
			for _, v := range values {
				p, err := r.fields[key](v)
				if err != nil {
					return nil, err
				}
				alternatives = append(alternatives, p)
			}
		case r.properties[key] != "":
			for _, v := range values {
				alternatives = append(alternatives, subtreeOf(r.properties[key], v, nodes))
			}
		default:
			return nil, &domain.ValidationError{Entity: domain.EntityItem, Field: key, Value: strings.Join(values, ","), Reason: "unknown filter key"}
		}
		preds = append(preds, Any(alternatives...))
	}
	return Compose(preds...), nil
}

func subtreeOf(t domain.PropertyType, value string, nodes []domain.CompoundProperty) Predicate {
	var roots []domain.CompoundProperty
	for _, n := range nodes {
		if n.Type == t && n.Value == value {
			roots = append(roots, n)
		}
	}
	if len(roots) == 0 {
		return func(ItemRecord) bool { return false }
	}
	return func(r ItemRecord) bool {
		if r.property == nil {
			return false
		}
		for _, n := range roots {
			if taxonomy.Contains(n, *r.property) {
				return true
			}
		}
		return false
	}
}

// Compose ANDs predicates. No predicate matches everything.
func Compose(preds ...Predicate) Predicate {
	return func(r ItemRecord) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// Any ORs predicates.
func Any(preds ...Predicate) Predicate {
	return func(r ItemRecord) bool {
		for _, p := range preds {
			if p(r) {
				return true
			}
		}
		return false
	}
}

// Apply returns the records satisfying p, preserving order.
func Apply(records []ItemRecord, p Predicate) []ItemRecord {
	out := make([]ItemRecord, 0, len(records))
	for _, r := range records {
		if p(r) {
			out = append(out, r)
		}
	}
	return out
}
