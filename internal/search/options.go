// Package search finds and reassembles past conversation snippets by
// keyword. Hits are grouped into fixed-size row windows ("clusters"), the
// clusters are scored by how many keyword groups they cover, and the best
// ones are printed back in chronological order.
package search

import "github.com/rcliao/channel-memory/internal/config"

// Options tunes one search.
type Options struct {
	RowsPerCluster     int  `json:"rows_per_cluster"`
	PadRows            int  `json:"pad_rows"`
	TokenWindow        int  `json:"token_window"`
	MaxOutputLines     int  `json:"max_output_lines"`
	MinCoverage        int  `json:"min_coverage"`
	EventGapMinutes    int  `json:"event_gap_minutes"`
	MaxTimelinePeriods int  `json:"max_timeline_periods"`
	PartialPromotion   int  `json:"partial_promotion"`
	CollapseCode       bool `json:"collapse_code"`
	MaxGroups          int  `json:"max_groups"`
}

// DefaultOptions returns the built-in search settings.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default().Search)
}

// OptionsFromConfig copies the search section of a Config.
func OptionsFromConfig(c config.Search) Options {
	return Options{
		RowsPerCluster:     c.RowsPerCluster,
		PadRows:            c.PadRows,
		TokenWindow:        c.TokenWindow,
		MaxOutputLines:     c.MaxOutputLines,
		MinCoverage:        c.MinCoverage,
		EventGapMinutes:    c.EventGapMinutes,
		MaxTimelinePeriods: c.MaxTimelinePeriods,
		PartialPromotion:   c.PartialPromotion,
		CollapseCode:       c.CollapseCode,
		MaxGroups:          c.MaxGroups,
	}
}

// withDefaults fills unusable values from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.RowsPerCluster < 1 {
		o.RowsPerCluster = d.RowsPerCluster
	}
	if o.PadRows < 0 {
		o.PadRows = 0
	}
	if o.TokenWindow < 1 {
		o.TokenWindow = d.TokenWindow
	}
	if o.MaxOutputLines < 1 {
		o.MaxOutputLines = d.MaxOutputLines
	}
	if o.MinCoverage < 0 {
		o.MinCoverage = 0
	}
	if o.MaxTimelinePeriods < 0 {
		o.MaxTimelinePeriods = 0
	}
	if o.PartialPromotion < 1 {
		o.PartialPromotion = d.PartialPromotion
	}
	if o.MaxGroups < 1 {
		o.MaxGroups = d.MaxGroups
	}
	return o
}
