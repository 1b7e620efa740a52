package search

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/channel-memory/internal/model"
)

func TestNormalizeStructuredGroups(t *testing.T) {
	groups, err := NormalizeGroups([]GroupInput{
		{Base: "Dog", Variants: []string{"DOG", "hound", " "}, Parts: []string{"Big", "big", ""}},
		{ID: "pets", Variants: []string{"Cat", "kitty"}},
		{Base: "  "},
	}, []string{"ignored"}, 0)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, Group{ID: "g1", Base: "dog", Variants: []string{"dog", "hound"}, Parts: []string{"big"}}, groups[0])
	assert.Equal(t, "pets", groups[1].ID)
	assert.Equal(t, "cat", groups[1].Base)
	assert.Equal(t, []string{"cat", "kitty"}, groups[1].Variants)
}

func TestNormalizeKeywords(t *testing.T) {
	groups, err := NormalizeGroups(nil, []string{"Dog", "dog", " ", "Big   Cat"}, 0)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, Group{ID: "k1", Base: "dog", Variants: []string{"dog"}}, groups[0])
	assert.Equal(t, Group{ID: "k2", Base: "big cat", Variants: []string{"big cat"}}, groups[1])
}

func TestNormalizeRejectsEmptyInput(t *testing.T) {
	_, err := NormalizeGroups(nil, []string{"", "  "}, 0)
	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))

	_, err = NormalizeGroups([]GroupInput{{Base: ""}}, nil, 0)
	assert.True(t, errors.As(err, &verr))
}

func TestNormalizeCapsGroups(t *testing.T) {
	var keywords []string
	for i := 0; i < 60; i++ {
		keywords = append(keywords, fmt.Sprintf("word%d", i))
	}
	groups, err := NormalizeGroups(nil, keywords, 0)
	require.NoError(t, err)
	assert.Len(t, groups, DefaultMaxGroups)

	groups, err = NormalizeGroups(nil, keywords, 5)
	require.NoError(t, err)
	assert.Len(t, groups, 5)
}
