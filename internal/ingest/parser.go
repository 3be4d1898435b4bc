package ingest

import (
	"context"
	"strconv"

	"github.com/lejeunel/image-db-app/pkg/domain"
)

// Lister lists the object URIs directly under a prefix URI.
type Lister interface {
	List(ctx context.Context, uri string) ([]string, error)
}

// Record is one kept URI with its captured fields.
type Record struct {
	URI    string             `json:"uri"`
	Fields map[string]*string `json:"fields"`
}

// Item converts the record into an item of the given plate and timepoint.
// Numeric fields that do not parse are left nil.
func (r Record) Item(plateID, timepointID string) domain.Item {
	item := domain.Item{URI: r.URI, PlateID: plateID, TimePointID: timepointID}
	if v := r.Fields[FieldRow]; v != nil {
		row := *v
		item.Row = &row
	}
	item.Col = atoi(r.Fields[FieldCol])
	item.Site = atoi(r.Fields[FieldSite])
	item.Chan = atoi(r.Fields[FieldChan])
	return item
}

func atoi(v *string) *int {
	if v == nil {
		return nil
	}
	n, err := strconv.Atoi(*v)
	if err != nil {
		return nil
	}
	return &n
}

// Parser lists a prefix and filters it into records.
type Parser struct {
	lister   Lister
	patterns *Compiled
}

// NewParser returns a parser reading through lister.
func NewParser(lister Lister, patterns *Compiled) *Parser {
	if patterns == nil {
		patterns = MustCompile(DefaultPatterns())
	}
	return &Parser{lister: lister, patterns: patterns}
}

// Parse lists baseURI and returns one record per kept URI, in listing order.
// Lister errors are returned unchanged.
func (p *Parser) Parse(ctx context.Context, baseURI string) ([]Record, error) {
	uris, err := p.lister.List(ctx, baseURI)
	if err != nil {
		return nil, err
	}
	return p.Filter(uris), nil
}

// Filter applies the patterns to an already listed set of URIs.
func (p *Parser) Filter(uris []string) []Record {
	records := make([]Record, 0, len(uris))
	for _, uri := range uris {
		if !p.patterns.Keep(uri) {
			continue
		}
		records = append(records, Record{URI: uri, Fields: p.patterns.Capture(uri)})
	}
	return records
}
