package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/rcliao/channel-memory/internal/logging"
	"github.com/rcliao/channel-memory/internal/model"
	"github.com/rcliao/channel-memory/internal/rowtext"
	"github.com/rcliao/channel-memory/internal/store"
)

// Request is one keyword search.
type Request struct {
	ChannelID       string
	ExtraChannelIDs []string
	Groups          []GroupInput
	Keywords        []string
	// Options overrides the engine defaults when set.
	Options *Options
}

// Response is the search result. Validation problems are reported in Error
// rather than as a Go error.
type Response struct {
	Items []model.Item `json:"items"`
	Meta  Meta         `json:"meta"`
	Error string       `json:"error,omitempty"`
}

// Meta describes how a response was built.
type Meta struct {
	GroupsUsed         []Group                   `json:"groups_used"`
	ClusterSize        int                       `json:"cluster_size"`
	ClustersConsidered int                       `json:"clusters_considered"`
	ClustersSelected   int                       `json:"clusters_selected"`
	PrintedRows        int                       `json:"printed_rows"`
	Selected           []Cluster                 `json:"selected,omitempty"`
	Timeline           map[string][]model.Period `json:"timeline"`
	AlignmentNote      string                    `json:"alignment_note"`
}

// Engine runs keyword cluster searches against a store.
type Engine struct {
	store    store.Store
	opts     Options
	logger   *slog.Logger
	matchers *matcherCache
}

// NewEngine returns an Engine with default options opts.
func NewEngine(st store.Store, opts Options, logger *slog.Logger) *Engine {
	return &Engine{
		store:    st,
		opts:     opts.withDefaults(),
		logger:   logging.OrDiscard(logger),
		matchers: newMatcherCache(),
	}
}

// Search finds the clusters of rows that best cover the requested keyword
// groups and returns their padded rows in chronological order. A missing
// channel id and store failures are returned as errors; unusable keywords
// come back in Response.Error.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.ChannelID) == "" {
		return nil, model.MissingChannel()
	}
	opts := e.opts
	if req.Options != nil {
		opts = req.Options.withDefaults()
	}
	channels := requestChannels(req)

	groups, err := NormalizeGroups(req.Groups, req.Keywords, opts.MaxGroups)
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			return &Response{Items: []model.Item{}, Error: verr.Error()}, nil
		}
		return nil, err
	}
	compiled, err := compileGroups(e.matchers, groups)
	if err != nil {
		return &Response{Items: []model.Item{}, Error: (&model.ValidationError{Reason: err.Error()}).Error()}, nil
	}

	hits, err := e.findHits(ctx, channels, compiled)
	if err != nil {
		return nil, err
	}

	clusters := BuildClusters(hits, opts.RowsPerCluster)
	needTokens := false
	for _, g := range compiled {
		needTokens = needTokens || len(g.parts) > 0
	}
	policy := Policy{TokenWindow: opts.TokenWindow, PartialPromotion: opts.PartialPromotion}
	for i := range clusters {
		c := &clusters[i]
		rows, err := e.store.RowsInRange(ctx, c.ChannelID, c.StartRN, c.EndRN)
		if err != nil {
			return nil, err
		}
		scoreCluster(c, prepareRows(rows, needTokens), compiled, policy)
	}
	Rank(clusters)

	sel, err := e.selectRows(ctx, clusters, opts)
	if err != nil {
		return nil, err
	}
	extract := rowtext.Options{CollapseCode: opts.CollapseCode, MaxCodeLines: rowtext.DefaultMaxCodeLines}
	items := renderItems(presentBlocks(sel.blocks), opts.EventGapMinutes, extract)
	if items == nil {
		items = []model.Item{}
	}

	timeline, note := e.alignTimeline(ctx, channels, opts.MaxTimelinePeriods)

	e.logger.Debug("keyword search",
		"channel", req.ChannelID,
		"groups", len(groups),
		"hits", len(hits),
		"clusters", len(clusters),
		"selected", len(sel.selected),
		"rows", sel.rows)

	return &Response{
		Items: items,
		Meta: Meta{
			GroupsUsed:         groups,
			ClusterSize:        opts.RowsPerCluster,
			ClustersConsidered: len(clusters),
			ClustersSelected:   len(sel.selected),
			PrintedRows:        sel.rows,
			Selected:           sel.selected,
			Timeline:           timeline,
			AlignmentNote:      note,
		},
	}, nil
}

// findHits prefilters candidate rows in the store by substring and keeps
// those whose content has a whole-word match for some group variant.
func (e *Engine) findHits(ctx context.Context, channels []string, groups []compiledGroup) ([]model.Row, error) {
	var terms []string
	seen := make(map[string]bool)
	for _, g := range groups {
		for _, v := range g.Variants {
			if !seen[v] {
				seen[v] = true
				terms = append(terms, v)
			}
		}
	}
	if len(terms) == 0 {
		return nil, nil
	}

	candidates, err := e.store.HitRows(ctx, store.HitParams{ChannelIDs: channels, Terms: terms})
	if err != nil {
		return nil, err
	}
	var hits []model.Row
	for _, row := range candidates {
		content := rowtext.Content(rowtext.Parse(row.Payload), row.Record)
		for _, g := range groups {
			if matchWhole(g.re, content) {
				hits = append(hits, row)
				break
			}
		}
	}
	return hits, nil
}

// requestChannels returns the primary channel followed by the distinct
// extra channels.
func requestChannels(req Request) []string {
	channels := []string{req.ChannelID}
	seen := map[string]bool{req.ChannelID: true}
	for _, ch := range req.ExtraChannelIDs {
		ch = strings.TrimSpace(ch)
		if ch == "" || seen[ch] {
			continue
		}
		seen[ch] = true
		channels = append(channels, ch)
	}
	return channels
}
