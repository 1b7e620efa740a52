package search

import (
	"context"
	"sort"
	"strings"

	"github.com/rcliao/channel-memory/internal/model"
)

const alignmentNote = "rn is the 1-based row number within each channel. " +
	"An item belongs to the timeline period of its channel whose [start_idx, end_idx] contains its rn; " +
	"marker items (rn 0) only separate events."

// alignTimeline fetches the periods of every channel in the request. A
// channel whose periods cannot be read is logged, gets an empty list and is
// named in the note.
func (e *Engine) alignTimeline(ctx context.Context, channels []string, limit int) (map[string][]model.Period, string) {
	timeline := make(map[string][]model.Period, len(channels))
	var failed []string
	for _, ch := range channels {
		periods, err := e.store.Periods(ctx, ch, limit)
		if err != nil {
			e.logger.Warn("timeline periods", "channel", ch, "error", err)
			failed = append(failed, ch)
			timeline[ch] = []model.Period{}
			continue
		}
		if periods == nil {
			periods = []model.Period{}
		}
		timeline[ch] = periods
	}

	note := alignmentNote
	if len(failed) > 0 {
		sort.Strings(failed)
		note += " Timeline unavailable for: " + strings.Join(failed, ", ") + "."
	}
	return timeline, note
}

// PeriodFor returns the period containing rn, if any.
func PeriodFor(periods []model.Period, rn int) (model.Period, bool) {
	i := sort.Search(len(periods), func(i int) bool { return periods[i].EndIdx >= rn })
	if i < len(periods) && periods[i].Contains(rn) {
		return periods[i], true
	}
	return model.Period{}, false
}
