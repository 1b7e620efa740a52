package search

import (
	"encoding/json"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/channel-memory/internal/model"
)

var t0 = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func mkRow(ch string, rn int, content string, ts time.Time) model.Row {
	payload, _ := json.Marshal(map[string]string{"role": "user", "authorName": "ann", "content": content})
	return model.Row{
		Record: model.Record{ChannelID: ch, TS: ts, Payload: payload},
		RN:     rn,
	}
}

func TestEveryHitLandsInExactlyOneCluster(t *testing.T) {
	const size = 400
	var hits []model.Row
	for rn := 1; rn <= 1000; rn++ {
		hits = append(hits, mkRow("c", rn, "x", t0.Add(time.Duration(rn)*time.Second)))
	}
	clusters := BuildClusters(hits, size)
	require.Len(t, clusters, 3)
	assert.Equal(t, []int{400, 400, 200}, []int{clusters[0].HitCount, clusters[1].HitCount, clusters[2].HitCount})

	for rn := 1; rn <= 1000; rn++ {
		var owners []Cluster
		for _, c := range clusters {
			if rn >= c.StartRN && rn <= c.EndRN {
				owners = append(owners, c)
			}
		}
		require.Len(t, owners, 1, "rn %d", rn)
		assert.Equal(t, (rn-1)/size, owners[0].Idx)
		assert.Equal(t, ClusterIndex(rn, size), owners[0].Idx)
	}
}

func TestBuildClustersBounds(t *testing.T) {
	hits := []model.Row{
		mkRow("b", 5, "x", t0.Add(time.Minute)),
		mkRow("a", 12, "x", t0),
		mkRow("b", 5, "x", t0.Add(time.Minute)),
		mkRow("b", 3, "x", t0),
	}
	clusters := BuildClusters(hits, 10)
	require.Len(t, clusters, 2)

	assert.Equal(t, "a", clusters[0].ChannelID)
	assert.Equal(t, 1, clusters[0].Idx)
	assert.Equal(t, 11, clusters[0].StartRN)
	assert.Equal(t, 20, clusters[0].EndRN)

	assert.Equal(t, "b", clusters[1].ChannelID)
	assert.Equal(t, 2, clusters[1].HitCount)
	assert.Equal(t, 1, clusters[1].StartRN)
	assert.Equal(t, 10, clusters[1].EndRN)
	assert.True(t, clusters[1].FirstTS.Equal(t0))
	assert.True(t, clusters[1].LastTS.Equal(t0.Add(time.Minute)))
}

func TestRankOrdersByEvidence(t *testing.T) {
	clusters := []Cluster{
		{ChannelID: "a", StartRN: 1, Coverage: 1, TotalHits: 9},
		{ChannelID: "a", StartRN: 11, Coverage: 2, TotalHits: 1},
		{ChannelID: "a", StartRN: 21, Coverage: 2, TotalHits: 2},
		{ChannelID: "a", StartRN: 31, Coverage: 2, TotalHits: 2, RowsMulti: 1},
		{ChannelID: "a", StartRN: 41, Coverage: 2, TotalHits: 2, RowsMulti: 1, RowsAny: 3},
	}
	Rank(clusters)
	var starts []int
	for _, c := range clusters {
		starts = append(starts, c.StartRN)
	}
	assert.Equal(t, []int{41, 31, 21, 11, 1}, starts)
}

func TestRankTieBreakIsDeterministic(t *testing.T) {
	base := []Cluster{
		{ChannelID: "b", StartRN: 401},
		{ChannelID: "a", StartRN: 401},
		{ChannelID: "b", StartRN: 1},
		{ChannelID: "a", StartRN: 1},
	}
	for i := range base {
		base[i].Coverage, base[i].TotalHits, base[i].RowsMulti, base[i].RowsAny = 1, 2, 0, 1
	}

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		clusters := append([]Cluster(nil), base...)
		rng.Shuffle(len(clusters), func(i, j int) { clusters[i], clusters[j] = clusters[j], clusters[i] })
		Rank(clusters)

		var got []string
		for _, c := range clusters {
			got = append(got, c.ChannelID+":"+strconv.Itoa(c.StartRN))
		}
		assert.Equal(t, []string{"a:1", "a:401", "b:1", "b:401"}, got)
	}
}
