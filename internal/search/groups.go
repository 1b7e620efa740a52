package search

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rcliao/channel-memory/internal/model"
)

// DefaultMaxGroups bounds the number of groups in one query.
const DefaultMaxGroups = 48

// GroupInput is a caller-supplied keyword group.
type GroupInput struct {
	ID       string   `json:"id,omitempty" jsonschema:"optional group id"`
	Base     string   `json:"base" jsonschema:"canonical form of the concept"`
	Variants []string `json:"variants,omitempty" jsonschema:"full-form synonyms matched as whole words"`
	Parts    []string `json:"parts,omitempty" jsonschema:"sub-tokens that count when two occur close together"`
}

// Group is a normalized keyword group: lower-cased, deduplicated, with the
// base always among the variants.
type Group struct {
	ID       string   `json:"id"`
	Base     string   `json:"base"`
	Variants []string `json:"variants"`
	Parts    []string `json:"parts,omitempty"`
}

func lower(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// NormalizeGroups builds the group list for a query. Structured groups win
// over free-text keywords; each keyword becomes a group of one variant and
// no parts. At most maxGroups groups are kept.
func NormalizeGroups(inputs []GroupInput, keywords []string, maxGroups int) ([]Group, error) {
	if maxGroups <= 0 {
		maxGroups = DefaultMaxGroups
	}

	var groups []Group
	if len(inputs) > 0 {
		for i, in := range inputs {
			g, ok := normalizeGroup(in)
			if !ok {
				continue
			}
			if g.ID == "" {
				g.ID = fmt.Sprintf("g%d", i+1)
			}
			groups = append(groups, g)
		}
	} else {
		seen := make(map[string]bool)
		for _, kw := range keywords {
			kw = strings.Join(strings.Fields(lower(kw)), " ")
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			groups = append(groups, Group{
				ID:       fmt.Sprintf("k%d", len(groups)+1),
				Base:     kw,
				Variants: []string{kw},
			})
		}
	}

	if len(groups) == 0 {
		return nil, &model.ValidationError{Reason: "no usable keyword groups or keywords"}
	}
	if len(groups) > maxGroups {
		groups = groups[:maxGroups]
	}
	return groups, nil
}

func normalizeGroup(in GroupInput) (Group, bool) {
	base := strings.Join(strings.Fields(lower(in.Base)), " ")
	g := Group{ID: strings.TrimSpace(in.ID), Base: base}

	g.Variants = dedupe(append([]string{base}, in.Variants...))
	g.Parts = dedupe(in.Parts)
	if g.Base == "" && len(g.Variants) > 0 {
		g.Base = g.Variants[0]
	}
	if len(g.Variants) == 0 && len(g.Parts) == 0 {
		return Group{}, false
	}
	return g, true
}

// dedupe lower-cases, collapses whitespace and drops empty and repeated
// values, keeping first-seen order.
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		v = strings.Join(strings.Fields(lower(v)), " ")
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
