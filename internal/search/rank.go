package search

import "sort"

// rankKeys are compared in order, higher first.
var rankKeys = []func(c *Cluster) int{
	func(c *Cluster) int { return c.Coverage },
	func(c *Cluster) int { return c.TotalHits },
	func(c *Cluster) int { return c.RowsMulti },
	func(c *Cluster) int { return c.RowsAny },
}

// Rank orders clusters for selection: by coverage, total hits, multi-group
// rows and matching rows, all descending, then by channel id and start row
// ascending. The result is a pure function of the cluster values.
func Rank(clusters []Cluster) {
	sort.SliceStable(clusters, func(i, j int) bool {
		return rankLess(&clusters[i], &clusters[j])
	})
}

func rankLess(a, b *Cluster) bool {
	for _, key := range rankKeys {
		if ka, kb := key(a), key(b); ka != kb {
			return ka > kb
		}
	}
	if a.ChannelID != b.ChannelID {
		return a.ChannelID < b.ChannelID
	}
	return a.StartRN < b.StartRN
}
