package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rcliao/channel-memory/internal/model"
	"github.com/rcliao/channel-memory/internal/rowtext"
)

// MarkerSender is the sender of synthetic "new event" rows.
const MarkerSender = "system|marker"

// block is the rows one selected cluster contributed to the output, in rn
// order.
type block struct {
	channelID string
	rows      []model.Row
}

func (b block) firstTS() time.Time { return b.rows[0].TS }
func (b block) lastTS() time.Time { return b.rows[len(b.rows)-1].TS }
func (b block) startRN() int { return b.rows[0].RN }

// selection is the outcome of walking ranked clusters.
type selection struct {
	blocks   []block
	rows     int
	selected []Cluster
}

// selectRows walks clusters in rank order, expands each by padRows on both
// sides and keeps rows not emitted yet, until a cluster falls below
// minCoverage or the line budget runs out. The cluster that exhausts the
// budget is truncated and ends the walk.
func (e *Engine) selectRows(ctx context.Context, ranked []Cluster, opts Options) (selection, error) {
	var sel selection
	emitted := make(map[rowKey]bool)
	remaining := opts.MaxOutputLines

	for _, c := range ranked {
		if c.Coverage < opts.MinCoverage || remaining <= 0 {
			break
		}
		start := c.StartRN - opts.PadRows
		if start < 1 {
			start = 1
		}
		rows, err := e.store.RowsInRange(ctx, c.ChannelID, start, c.EndRN+opts.PadRows)
		if err != nil {
			return sel, err
		}

		var fresh []model.Row
		for _, r := range rows {
			if k := (rowKey{r.ChannelID, r.RN}); !emitted[k] {
				fresh = append(fresh, r)
			}
		}
		truncated := len(fresh) > remaining
		if truncated {
			fresh = fresh[:remaining]
		}
		for _, r := range fresh {
			emitted[rowKey{r.ChannelID, r.RN}] = true
		}
		if len(fresh) > 0 {
			sel.blocks = append(sel.blocks, block{channelID: c.ChannelID, rows: fresh})
		}
		sel.rows += len(fresh)
		sel.selected = append(sel.selected, c)
		remaining -= len(fresh)
		if truncated {
			break
		}
	}
	return sel, nil
}

// presentBlocks orders the selected blocks by (channel, start rn). Selection
// order is by rank, so this is where output becomes chronological.
func presentBlocks(blocks []block) []block {
	sorted := append([]block(nil), blocks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].channelID != sorted[j].channelID {
			return sorted[i].channelID < sorted[j].channelID
		}
		return sorted[i].startRN() < sorted[j].startRN()
	})
	return sorted
}

// markerItem is the synthetic row separating two blocks.
func markerItem(next block, gap time.Duration) model.Item {
	return model.Item{
		ChannelID: next.channelID,
		RN:        0,
		TS:        next.firstTS(),
		Sender:    MarkerSender,
		Content:   fmt.Sprintf("--- new event (gap %d min) ---", int(gap.Minutes())),
	}
}

// renderItems flattens blocks into output items, inserting a marker between
// consecutive blocks whose time gap is at least gapMinutes. A gapMinutes of
// zero or less disables markers.
func renderItems(blocks []block, gapMinutes int, opts rowtext.Options) []model.Item {
	var items []model.Item
	threshold := time.Duration(gapMinutes) * time.Minute
	for i, b := range blocks {
		if i > 0 && gapMinutes > 0 {
			gap := b.firstTS().Sub(blocks[i-1].lastTS())
			if gap > 0 && gap >= threshold {
				items = append(items, markerItem(b, gap))
			}
		}
		for _, r := range b.rows {
			ex := rowtext.Extract(r.Record, opts)
			items = append(items, model.Item{
				ChannelID: r.ChannelID,
				RN:        r.RN,
				TS:        r.TS,
				Sender:    ex.Sender,
				Content:   ex.Content,
			})
		}
	}
	return items
}
