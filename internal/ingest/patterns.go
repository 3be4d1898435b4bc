// Package ingest turns an object-store listing into item records: it drops
// ignorable and invalid file names and captures well coordinates from the
// rest.
package ingest

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/lejeunel/image-db-app/pkg/domain"
)

// Field names understood by Record.Item.
const (
	FieldRow  = "row"
	FieldCol  = "col"
	FieldSite = "site"
	FieldChan = "chan"
)

// Default patterns: skip thumbnails, accept TIFF files, capture row, column,
// site and channel from names like plate_B03_s2_w1.tif or B03_w1.tif.
const (
	DefaultIgnore = `^.*_thumb.*$`
	DefaultValid  = `^.*\.tiff?$`
)

// DefaultFields returns the default capture pattern of each field.
func DefaultFields() map[string]string {
	return map[string]string{
		FieldRow:  `^.*[_/]([A-Z])[0-9]{2}_.*$`,
		FieldCol:  `^.*[_/][A-Z]([0-9]{2})_.*$`,
		FieldSite: `^.*_s([0-9]+).*$`,
		FieldChan: `^.*_w([0-9]+).*$`,
	}
}

// Patterns holds the raw regular expressions used by the parser.
type Patterns struct {
	Ignore string            `yaml:"ignore" json:"ignore"`
	Valid  string            `yaml:"valid" json:"valid"`
	Fields map[string]string `yaml:"fields" json:"fields"`
}

// DefaultPatterns returns the built-in pattern set.
func DefaultPatterns() Patterns {
	return Patterns{Ignore: DefaultIgnore, Valid: DefaultValid, Fields: DefaultFields()}
}

type fieldPattern struct {
	name string
	re   *regexp.Regexp
}

// Compiled is a validated, ready-to-use pattern set.
type Compiled struct {
	ignore *regexp.Regexp
	valid  *regexp.Regexp
	fields []fieldPattern
}

// Compile validates every pattern. Ignore and valid patterns only match at
// the start of a URI. Field patterns must declare a capture group.
func Compile(p Patterns) (*Compiled, error) {
	ignore, err := compileAnchored("ignore", p.Ignore)
	if err != nil {
		return nil, err
	}
	valid, err := compileAnchored("valid", p.Valid)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(p.Fields))
	for name := range p.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	c := &Compiled{ignore: ignore, valid: valid}
	for _, name := range names {
		re, err := regexp.Compile(p.Fields[name])
		if err != nil {
			return nil, invalidPattern(name, p.Fields[name], err.Error())
		}
		if re.NumSubexp() < 1 {
			return nil, invalidPattern(name, p.Fields[name], "pattern has no capture group")
		}
		c.fields = append(c.fields, fieldPattern{name: name, re: re})
	}
	return c, nil
}

// MustCompile is Compile that panics on error, for built-in pattern sets.
func MustCompile(p Patterns) *Compiled {
	c, err := Compile(p)
	if err != nil {
		panic(err)
	}
	return c
}

func compileAnchored(name, pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, invalidPattern(name, pattern, "pattern is empty")
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, invalidPattern(name, pattern, err.Error())
	}
	return regexp.MustCompile(fmt.Sprintf(`^(?:%s)`, pattern)), nil
}

func invalidPattern(name, pattern, reason string) error {
	return &domain.ValidationError{Entity: "pattern", Field: name, Value: pattern, Reason: reason}
}

// Keep reports whether uri passes the ignore and valid filters.
func (c *Compiled) Keep(uri string) bool {
	return !c.ignore.MatchString(uri) && c.valid.MatchString(uri)
}

// Capture applies every field pattern to uri. Fields without a match map to
// nil.
func (c *Compiled) Capture(uri string) map[string]*string {
	out := make(map[string]*string, len(c.fields))
	for _, f := range c.fields {
		m := f.re.FindStringSubmatch(uri)
		if m == nil {
			out[f.name] = nil
			continue
		}
		v := m[1]
		out[f.name] = &v
	}
	return out
}
