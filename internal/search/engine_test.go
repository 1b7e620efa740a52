package search

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/channel-memory/internal/model"
	"github.com/rcliao/channel-memory/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seed appends one row per content, a minute apart starting at start.
func seed(t *testing.T, s store.Store, ch string, start time.Time, contents ...string) {
	t.Helper()
	for i, c := range contents {
		payload, _ := json.Marshal(map[string]string{"role": "user", "authorName": "ann", "content": c})
		_, err := s.Append(context.Background(), store.AppendParams{
			ChannelID: ch, TS: start.Add(time.Duration(i) * time.Minute), Payload: payload,
		})
		require.NoError(t, err)
	}
}

func smallOptions() Options {
	o := DefaultOptions()
	o.RowsPerCluster = 5
	o.PadRows = 0
	return o
}

func rns(items []model.Item) []int {
	var out []int
	for _, it := range items {
		out = append(out, it.RN)
	}
	return out
}

func TestSelectionOrderDiffersFromPresentation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed(t, s, "c", t0,
		"filler", "a cat sat", "filler", "filler", "filler",
		"filler", "filler", "dog and bird", "filler", "filler")

	e := NewEngine(s, smallOptions(), nil)
	resp, err := e.Search(ctx, Request{ChannelID: "c", Keywords: []string{"cat", "dog", "bird"}})
	require.NoError(t, err)
	require.Empty(t, resp.Error)

	require.Len(t, resp.Meta.Selected, 2)
	assert.Equal(t, 6, resp.Meta.Selected[0].StartRN)
	assert.Equal(t, 2, resp.Meta.Selected[0].Coverage)
	assert.Equal(t, 1, resp.Meta.Selected[1].StartRN)
	assert.Equal(t, 1, resp.Meta.Selected[1].Coverage)

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, rns(resp.Items))
	assert.Equal(t, "a cat sat", resp.Items[1].Content)
	assert.Equal(t, 2, resp.Meta.ClustersConsidered)
	assert.Equal(t, 2, resp.Meta.ClustersSelected)
	assert.Equal(t, 10, resp.Meta.PrintedRows)
	assert.Equal(t, 5, resp.Meta.ClusterSize)
	assert.Len(t, resp.Meta.GroupsUsed, 3)
}

func TestLineBudgetTruncatesAndStops(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed(t, s, "c", t0,
		"filler", "a cat sat", "filler", "filler", "filler",
		"filler", "filler", "dog and bird", "filler", "filler",
		"filler", "cat again", "filler")

	opts := smallOptions()
	opts.MaxOutputLines = 7
	e := NewEngine(s, opts, nil)
	resp, err := e.Search(ctx, Request{ChannelID: "c", Keywords: []string{"cat", "dog", "bird"}})
	require.NoError(t, err)

	assert.Equal(t, 3, resp.Meta.ClustersConsidered)
	assert.Equal(t, 2, resp.Meta.ClustersSelected)
	assert.Equal(t, 7, resp.Meta.PrintedRows)
	assert.Equal(t, []int{1, 2, 6, 7, 8, 9, 10}, rns(resp.Items))
}

func TestMinCoverageFiltersClusters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed(t, s, "c", t0,
		"filler", "a cat sat", "filler", "filler", "filler",
		"filler", "filler", "dog and bird", "filler", "filler")

	opts := smallOptions()
	opts.MinCoverage = 2
	resp, err := NewEngine(s, opts, nil).Search(ctx, Request{ChannelID: "c", Keywords: []string{"cat", "dog", "bird"}})
	require.NoError(t, err)
	assert.Equal(t, []int{6, 7, 8, 9, 10}, rns(resp.Items))
	assert.Equal(t, 1, resp.Meta.ClustersSelected)
}

func TestPaddingExpandsAndDeduplicates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed(t, s, "c", t0,
		"filler", "filler", "filler", "filler", "dog",
		"cat", "filler", "filler", "filler", "filler", "filler", "filler")

	opts := smallOptions()
	opts.PadRows = 2
	resp, err := NewEngine(s, opts, nil).Search(ctx, Request{ChannelID: "c", Keywords: []string{"dog", "cat"}})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, rns(resp.Items))
	assert.Equal(t, 12, resp.Meta.PrintedRows)
}

func TestGapMarkerBetweenBlocks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed(t, s, "c", t0, "dog", "filler")
	seed(t, s, "c", t0.Add(61*time.Minute), "dog again")

	opts := smallOptions()
	opts.RowsPerCluster = 1
	resp, err := NewEngine(s, opts, nil).Search(ctx, Request{ChannelID: "c", Keywords: []string{"dog"}})
	require.NoError(t, err)

	require.Len(t, resp.Items, 3)
	assert.Equal(t, 1, resp.Items[0].RN)
	assert.Equal(t, MarkerSender, resp.Items[1].Sender)
	assert.Equal(t, "--- new event (gap 61 min) ---", resp.Items[1].Content)
	assert.Equal(t, 3, resp.Items[2].RN)
	assert.Equal(t, 2, resp.Meta.PrintedRows)
}

func TestSubstringOnlyIsNotAHit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed(t, s, "c", t0, "hotdog stand", "dogs bark")

	resp, err := NewEngine(s, smallOptions(), nil).Search(ctx, Request{ChannelID: "c", Keywords: []string{"dog"}})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.Equal(t, 0, resp.Meta.ClustersConsidered)
}

func TestExtraChannelsAndTimeline(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed(t, s, "c", t0, "dog in c", "filler")
	seed(t, s, "d", t0.Add(time.Hour), "dog in d")
	seed(t, s, "e", t0, "dog in e")
	require.NoError(t, s.UpsertPeriod(ctx, model.Period{ChannelID: "c", StartIdx: 1, EndIdx: 2, Summary: "dogs"}))

	resp, err := NewEngine(s, smallOptions(), nil).Search(ctx, Request{
		ChannelID:       "c",
		ExtraChannelIDs: []string{"d", " ", "c"},
		Keywords:        []string{"dog"},
	})
	require.NoError(t, err)

	var channels []string
	for _, it := range resp.Items {
		if it.Sender != MarkerSender {
			channels = append(channels, it.ChannelID)
		}
	}
	assert.Equal(t, []string{"c", "c", "d"}, channels)

	require.Contains(t, resp.Meta.Timeline, "c")
	require.Contains(t, resp.Meta.Timeline, "d")
	assert.NotContains(t, resp.Meta.Timeline, "e")
	assert.Len(t, resp.Meta.Timeline["c"], 1)
	assert.Empty(t, resp.Meta.Timeline["d"])
	assert.NotEmpty(t, resp.Meta.AlignmentNote)
}

func TestStructuredGroupsSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed(t, s, "c", t0, "I saw a dog today", "we deploy the new pipeline")

	resp, err := NewEngine(s, smallOptions(), nil).Search(ctx, Request{
		ChannelID: "c",
		Groups: []GroupInput{
			{ID: "pet", Base: "dog", Variants: []string{"dog"}},
			{ID: "ml", Base: "ml pipeline", Parts: []string{"deploy", "pipeline"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Meta.Selected, 1)
	assert.Equal(t, LevelFull, resp.Meta.Selected[0].Levels["pet"])
	assert.Equal(t, LevelProximity, resp.Meta.Selected[0].Levels["ml"])
	assert.Equal(t, 2, resp.Meta.Selected[0].Coverage)
}

func TestValidationErrorInResponse(t *testing.T) {
	s := newTestStore(t)
	resp, err := NewEngine(s, smallOptions(), nil).Search(context.Background(), Request{ChannelID: "c", Keywords: []string{" "}})
	require.NoError(t, err)
	assert.Contains(t, resp.Error, "validation")
	assert.Empty(t, resp.Items)
}

func TestMissingChannelIsReturned(t *testing.T) {
	s := newTestStore(t)
	_, err := NewEngine(s, smallOptions(), nil).Search(context.Background(), Request{Keywords: []string{"dog"}})
	assert.True(t, errors.Is(err, model.ErrMissingChannel))
}

func TestRequestOptionsOverride(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed(t, s, "c", t0, "filler", "dog", "filler")

	e := NewEngine(s, DefaultOptions(), nil)
	opts := smallOptions()
	opts.RowsPerCluster = 1
	resp, err := e.Search(ctx, Request{ChannelID: "c", Keywords: []string{"dog"}, Options: &opts})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Meta.ClusterSize)
	assert.Equal(t, []int{2}, rns(resp.Items))
}

func TestMarkerBetweenAdjacentClusters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed(t, s, "c", t0, "cat", "cat", "cat", "cat", "cat")
	seed(t, s, "c", t0.Add(3*time.Hour), "dog", "dog", "dog", "dog", "dog")

	e := NewEngine(s, smallOptions(), nil)
	resp, err := e.Search(ctx, Request{ChannelID: "c", Keywords: []string{"cat", "dog"}})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Meta.ClustersSelected)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 0, 6, 7, 8, 9, 10}, rns(resp.Items))
	assert.Equal(t, MarkerSender, resp.Items[5].Sender)
	assert.Equal(t, "--- new event (gap 176 min) ---", resp.Items[5].Content)
	assert.Equal(t, 10, resp.Meta.PrintedRows)
}

func TestUnicodeCaseVariantsAreHits(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed(t, s, "c", t0, "Über alles", "ÉCOLE today", "nothing here", "Straße")

	e := NewEngine(s, smallOptions(), nil)
	for _, kw := range []string{"über", "ÜBER", "école", "STRAßE"} {
		resp, err := e.Search(ctx, Request{ChannelID: "c", Keywords: []string{kw}})
		require.NoError(t, err)
		require.Empty(t, resp.Error, kw)
		assert.Equal(t, 1, resp.Meta.ClustersConsidered, kw)
		assert.NotEmpty(t, resp.Items, kw)
	}
}

// periodsFailStore fails Periods for one channel.
type periodsFailStore struct {
	store.Store
	channel string
}

func (f periodsFailStore) Periods(ctx context.Context, channelID string, limit int) ([]model.Period, error) {
	if channelID == f.channel {
		return nil, errors.New("periods unavailable")
	}
	return f.Store.Periods(ctx, channelID, limit)
}

func TestTimelineFailureIsBestEffort(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed(t, s, "c", t0, "cat here")
	seed(t, s, "d", t0, "cat there")
	require.NoError(t, s.UpsertPeriod(ctx, model.Period{ChannelID: "c", StartIdx: 1, EndIdx: 1, Summary: "s"}))

	e := NewEngine(periodsFailStore{Store: s, channel: "d"}, smallOptions(), nil)
	resp, err := e.Search(ctx, Request{ChannelID: "c", ExtraChannelIDs: []string{"d"}, Keywords: []string{"cat"}})
	require.NoError(t, err)
	require.Empty(t, resp.Error)

	assert.Len(t, resp.Items, 2)
	assert.Len(t, resp.Meta.Timeline["c"], 1)
	require.Contains(t, resp.Meta.Timeline, "d")
	assert.NotNil(t, resp.Meta.Timeline["d"])
	assert.Empty(t, resp.Meta.Timeline["d"])
	assert.Contains(t, resp.Meta.AlignmentNote, "Timeline unavailable for: d.")
}

func TestMaxTimelinePeriodsCapsTimeline(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed(t, s, "c", t0, "cat")
	for i := 0; i < 3; i++ {
		require.NoError(t, s.UpsertPeriod(ctx, model.Period{
			ChannelID: "c", StartIdx: i*10 + 1, EndIdx: i*10 + 10, Summary: "p",
		}))
	}

	opts := smallOptions()
	opts.MaxTimelinePeriods = 2
	e := NewEngine(s, opts, nil)
	resp, err := e.Search(ctx, Request{ChannelID: "c", Keywords: []string{"cat"}})
	require.NoError(t, err)

	require.Len(t, resp.Meta.Timeline["c"], 2)
	assert.Equal(t, 1, resp.Meta.Timeline["c"][0].StartIdx)
	assert.Equal(t, 11, resp.Meta.Timeline["c"][1].StartIdx)
	assert.NotContains(t, resp.Meta.AlignmentNote, "unavailable")
}
