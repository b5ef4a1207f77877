// Package catalog holds the static trait reference data: ordered sections,
// their traits, and the per-rung descriptive standards the ladder compares
// against. The catalog is embedded in the binary and read-only at runtime.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/ladder"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/types"
)

//go:embed catalog.yaml
var rawCatalog []byte

// Anchors are the word-picture standards for the three ladder rungs.
type Anchors struct {
	B string `yaml:"b" json:"b"`
	D string `yaml:"d" json:"d"`
	F string `yaml:"f" json:"f"`
}

// ForRung returns the anchor text for a rung.
func (a Anchors) ForRung(r ladder.Rung) string {
	switch r {
	case ladder.RungD:
		return a.D
	case ladder.RungF:
		return a.F
	default:
		return a.B
	}
}

// Trait is one evaluated attribute.
type Trait struct {
	Key     string  `yaml:"key"`
	Name    string  `yaml:"name"`
	Anchors Anchors `yaml:"anchors"`
}

// Section is a named, ordered grouping of traits.
type Section struct {
	Key                 string  `yaml:"key"`
	Title               string  `yaml:"title"`
	ReportingSeniorOnly bool    `yaml:"reporting_senior_only"`
	Traits              []Trait `yaml:"traits"`
}

// Catalog is the parsed, validated reference data.
type Catalog struct {
	sections []Section
	traits   map[string]Trait   // composite key -> trait
	owner    map[string]Section // composite key -> owning section
}

type document struct {
	Sections []Section `yaml:"sections"`
}

// Load parses and validates the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(rawCatalog)
}

// Parse builds a Catalog from raw YAML. Exposed for tests.
func Parse(raw []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if len(doc.Sections) == 0 {
		return nil, fmt.Errorf("%w: no sections", ErrInvalid)
	}

	c := &Catalog{
		sections: doc.Sections,
		traits:   make(map[string]Trait),
		owner:    make(map[string]Section),
	}
	seenSections := make(map[string]bool)
	for _, sec := range doc.Sections {
		if sec.Key == "" || sec.Title == "" {
			return nil, fmt.Errorf("%w: section missing key or title", ErrInvalid)
		}
		if seenSections[sec.Key] {
			return nil, fmt.Errorf("%w: duplicate section %q", ErrInvalid, sec.Key)
		}
		seenSections[sec.Key] = true
		if len(sec.Traits) == 0 {
			return nil, fmt.Errorf("%w: section %q has no traits", ErrInvalid, sec.Key)
		}
		for _, tr := range sec.Traits {
			if tr.Key == "" || tr.Name == "" {
				return nil, fmt.Errorf("%w: trait missing key or name in section %q", ErrInvalid, sec.Key)
			}
			if tr.Anchors.B == "" || tr.Anchors.D == "" || tr.Anchors.F == "" {
				return nil, fmt.Errorf("%w: trait %q/%q missing rung anchors", ErrInvalid, sec.Key, tr.Key)
			}
			key := types.TraitRef{SectionKey: sec.Key, TraitKey: tr.Key}.Key()
			if _, dup := c.traits[key]; dup {
				return nil, fmt.Errorf("%w: duplicate trait %q", ErrInvalid, key)
			}
			c.traits[key] = tr
			c.owner[key] = sec
		}
	}
	return c, nil
}

// Sections returns all sections in catalog order, including restricted ones.
func (c *Catalog) Sections() []Section {
	return c.sections
}

// Section looks a section up by key.
func (c *Catalog) Section(key string) (Section, bool) {
	for _, sec := range c.sections {
		if sec.Key == key {
			return sec, true
		}
	}
	return Section{}, false
}

// Trait resolves a TraitRef to its trait and owning section.
func (c *Catalog) Trait(ref types.TraitRef) (Trait, Section, bool) {
	tr, ok := c.traits[ref.Key()]
	if !ok {
		return Trait{}, Section{}, false
	}
	return tr, c.owner[ref.Key()], true
}

// Names returns the display names for a trait ref.
func (c *Catalog) Names(ref types.TraitRef) (sectionTitle, traitName string, ok bool) {
	tr, sec, found := c.Trait(ref)
	if !found {
		return "", "", false
	}
	return sec.Title, tr.Name, true
}

// Sequence builds the active trait sequence for one session: every open
// section in catalog order, plus the reporting-senior section when the role
// flag is set. The result is stable for the session's lifetime.
func (c *Catalog) Sequence(reportingSenior bool) []types.TraitRef {
	var seq []types.TraitRef
	for _, sec := range c.sections {
		if sec.ReportingSeniorOnly && !reportingSenior {
			continue
		}
		for _, tr := range sec.Traits {
			seq = append(seq, types.TraitRef{SectionKey: sec.Key, TraitKey: tr.Key})
		}
	}
	return seq
}

// GradeText returns the descriptive text for any of the seven grades of a
// trait. Rung grades return their anchor; the in-between grades are phrased
// relative to the anchors they fall between.
func (c *Catalog) GradeText(ref types.TraitRef, grade ladder.Grade) (string, error) {
	tr, _, ok := c.Trait(ref)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTrait, ref.Key())
	}
	switch grade {
	case ladder.GradeA:
		return "Adverse. Fails to meet the B standard: " + tr.Anchors.B, nil
	case ladder.GradeB:
		return tr.Anchors.B, nil
	case ladder.GradeC:
		return "Exceeds the B standard without fully meeting the D standard: " + tr.Anchors.D, nil
	case ladder.GradeD:
		return tr.Anchors.D, nil
	case ladder.GradeE:
		return "Exceeds the D standard without fully meeting the F standard: " + tr.Anchors.F, nil
	case ladder.GradeF:
		return tr.Anchors.F, nil
	case ladder.GradeG:
		return "Surpasses the F standard: " + tr.Anchors.F, nil
	default:
		return "", fmt.Errorf("%w: grade %q", ErrUnknownGrade, string(grade))
	}
}
