package search

import (
	"sort"

	"github.com/dlclark/regexp2"

	"github.com/rcliao/channel-memory/internal/model"
	"github.com/rcliao/channel-memory/internal/rowtext"
)

// compiledGroup is a Group with its matcher and tokenized parts.
type compiledGroup struct {
	Group
	re    *regexp2.Regexp
	parts [][]string
}

func compileGroups(cache *matcherCache, groups []Group) ([]compiledGroup, error) {
	out := make([]compiledGroup, 0, len(groups))
	for _, g := range groups {
		re, err := cache.get(g.Variants)
		if err != nil {
			return nil, err
		}
		cg := compiledGroup{Group: g, re: re}
		for _, p := range g.Parts {
			if toks := tokenize(p); len(toks) > 0 {
				cg.parts = append(cg.parts, toks)
			}
		}
		out = append(out, cg)
	}
	return out, nil
}

// scoredRow is a row prepared for scoring.
type scoredRow struct {
	model.Row
	content string
	tokens  []string
}

func prepareRows(rows []model.Row, needTokens bool) []scoredRow {
	out := make([]scoredRow, len(rows))
	for i, r := range rows {
		p := rowtext.Parse(r.Payload)
		out[i] = scoredRow{Row: r, content: rowtext.Content(p, r.Record)}
		if needTokens {
			out[i].tokens = tokenize(out[i].content)
		}
	}
	return out
}

// Policy holds the scoring knobs.
type Policy struct {
	// TokenWindow is the largest token distance at which two parts count
	// as co-occurring.
	TokenWindow int
	// PartialPromotion is how many rows with a lone part raise a group to
	// LevelPartial.
	PartialPromotion int
}

// scoreCluster fills the evidence fields of c from its rows.
//
// Per group: a whole-word variant match anywhere gives LevelFull and counts
// one hit. Otherwise each row where two distinct parts fall within
// TokenWindow tokens gives LevelProximity and counts one hit. Otherwise, if
// at least PartialPromotion rows contain a part, the group reaches
// LevelPartial. Rows carrying evidence for a group count toward rows_any,
// and toward rows_multi when two or more groups matched them.
func scoreCluster(c *Cluster, rows []scoredRow, groups []compiledGroup, policy Policy) {
	c.Levels = make(map[string]int, len(groups))
	c.Coverage, c.TotalHits, c.RowsAny, c.RowsMulti = 0, 0, 0, 0
	if len(rows) > 0 {
		c.FirstTS = rows[0].TS
		c.LastTS = rows[len(rows)-1].TS
	}

	perRow := make([]int, len(rows))
	for _, g := range groups {
		level, matched, hits := scoreGroup(rows, g, policy)
		c.Levels[g.ID] = level
		if level == LevelNone {
			continue
		}
		c.Coverage++
		c.TotalHits += hits
		for _, i := range matched {
			perRow[i]++
		}
	}

	for _, n := range perRow {
		if n >= 1 {
			c.RowsAny++
		}
		if n >= 2 {
			c.RowsMulti++
		}
	}
}

// scoreGroup returns the group's level, the indexes of rows that carry its
// evidence, and the number of hits it contributes to total_hits.
func scoreGroup(rows []scoredRow, g compiledGroup, policy Policy) (level int, matched []int, hits int) {
	for i, r := range rows {
		if matchWhole(g.re, r.content) {
			matched = append(matched, i)
		}
	}
	if len(matched) > 0 {
		return LevelFull, matched, 1
	}
	if len(g.parts) == 0 {
		return LevelNone, nil, 0
	}

	var partial []int
	for i, r := range rows {
		pos := partPositions(r.tokens, g.parts)
		if len(g.parts) >= 2 && withinWindow(pos, policy.TokenWindow) {
			matched = append(matched, i)
			continue
		}
		if len(pos) > 0 {
			partial = append(partial, i)
		}
	}
	if len(matched) > 0 {
		return LevelProximity, matched, len(matched)
	}
	if len(partial) >= policy.PartialPromotion {
		return LevelPartial, partial, 0
	}
	return LevelNone, nil, 0
}

// tokenPos is one occurrence of a part.
type tokenPos struct {
	pos  int
	part int
}

func partPositions(tokens []string, parts [][]string) []tokenPos {
	var out []tokenPos
	for pi, p := range parts {
		for _, at := range positions(tokens, p) {
			out = append(out, tokenPos{pos: at, part: pi})
		}
	}
	return out
}

// withinWindow reports whether two different parts occur within window
// tokens of each other. The closest such pair is always adjacent once the
// occurrences are merged in position order.
func withinWindow(occ []tokenPos, window int) bool {
	sort.Slice(occ, func(i, j int) bool { return occ[i].pos < occ[j].pos })
	for i := 1; i < len(occ); i++ {
		if occ[i].part != occ[i-1].part && occ[i].pos-occ[i-1].pos <= window {
			return true
		}
	}
	return false
}
