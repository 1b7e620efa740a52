package search

import (
	"sort"
	"time"

	"github.com/rcliao/channel-memory/internal/model"
)

// Evidence levels of a keyword group inside a cluster.
const (
	LevelNone      = 0
	LevelPartial   = 1
	LevelProximity = 2
	LevelFull      = 3
)

// Cluster is a fixed-size window of consecutive rows of one channel that
// holds at least one hit.
type Cluster struct {
	ChannelID string         `json:"channel_id"`
	Idx       int            `json:"idx"`
	StartRN   int            `json:"start_rn"`
	EndRN     int            `json:"end_rn"`
	HitCount  int            `json:"hit_count"`
	Coverage  int            `json:"coverage"`
	TotalHits int            `json:"total_hits"`
	RowsMulti int            `json:"rows_multi"`
	RowsAny   int            `json:"rows_any"`
	FirstTS   time.Time      `json:"first_ts"`
	LastTS    time.Time      `json:"last_ts"`
	Levels    map[string]int `json:"levels,omitempty"`
}

// ClusterIndex returns the window index of row rn for window size size.
func ClusterIndex(rn, size int) int {
	return (rn - 1) / size
}

// BuildClusters groups hit rows by (channel, window index). Each cluster
// spans [idx*size+1, (idx+1)*size] and counts the distinct hits inside it.
// Clusters come back ordered by channel, then index.
func BuildClusters(hits []model.Row, size int) []Cluster {
	if size < 1 {
		size = 1
	}
	type key struct {
		channel string
		idx     int
	}
	byKey := make(map[key]*Cluster)
	seen := make(map[rowKey]bool, len(hits))

	for _, h := range hits {
		rk := rowKey{h.ChannelID, h.RN}
		if h.RN < 1 || seen[rk] {
			continue
		}
		seen[rk] = true

		k := key{h.ChannelID, ClusterIndex(h.RN, size)}
		c, ok := byKey[k]
		if !ok {
			c = &Cluster{
				ChannelID: h.ChannelID,
				Idx:       k.idx,
				StartRN:   k.idx*size + 1,
				EndRN:     (k.idx + 1) * size,
				FirstTS:   h.TS,
				LastTS:    h.TS,
			}
			byKey[k] = c
		}
		c.HitCount++
		if h.TS.Before(c.FirstTS) {
			c.FirstTS = h.TS
		}
		if h.TS.After(c.LastTS) {
			c.LastTS = h.TS
		}
	}

	out := make([]Cluster, 0, len(byKey))
	for _, c := range byKey {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChannelID != out[j].ChannelID {
			return out[i].ChannelID < out[j].ChannelID
		}
		return out[i].Idx < out[j].Idx
	})
	return out
}

type rowKey struct {
	channel string
	rn      int
}
