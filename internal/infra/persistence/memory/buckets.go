package memory

// BucketNames lists the persistence buckets in write order.
var BucketNames = []string{
	"plates",
	"timepoints",
	"items",
	"sections",
	"cells",
	"compounds",
	"compound_properties",
	"modalities",
	"stacks",
	"tags",
	"item_tags",
	"next_property_id",
}

// Buckets maps each bucket name to the snapshot field holding its records.
// The values are pointers, so they serve both as marshal sources and as
// unmarshal targets.
func (s *Snapshot) Buckets() map[string]any {
	return map[string]any{
		"plates":              &s.Plates,
		"timepoints":          &s.TimePoints,
		"items":               &s.Items,
		"sections":            &s.Sections,
		"cells":               &s.Cells,
		"compounds":           &s.Compounds,
		"compound_properties": &s.Properties,
		"modalities":          &s.Modalities,
		"stacks":              &s.Stacks,
		"tags":                &s.Tags,
		"item_tags":           &s.ItemTags,
		"next_property_id":    &s.NextPropertyID,
	}
}
