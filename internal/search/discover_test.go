package search

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	soperrors "github.com/fasa-labs/sopindex/internal/errors"
	"github.com/fasa-labs/sopindex/internal/identity"
)

func TestEngineDiscover_GroupsByDocument(t *testing.T) {
	f := newEngineFixture(t)
	f.seedPassages(t,
		seed{id: "g1", title: "Gowning Procedure", status: identity.StatusActive,
			body: "Don sterile gloves before entering the airlock."},
		seed{id: "g2", title: "Gowning Procedure", status: identity.StatusActive,
			body: "Replace gloves whenever integrity is in doubt."},
		seed{id: "c1", title: "Equipment Cleaning", status: identity.StatusActive,
			body: "Wear utility gloves when handling caustic cleaning agents."},
	)

	groups, err := f.engine.Discover(context.Background(), "gloves")
	require.NoError(t, err)

	require.Len(t, groups, 2)
	titles := []string{groups[0].Title, groups[1].Title}
	assert.Contains(t, titles, "Gowning Procedure")
	assert.Contains(t, titles, "Equipment Cleaning")

	for _, g := range groups {
		assert.Greater(t, g.BestScore, 0.0)
		assert.NotEmpty(t, g.Snippets)
		for _, s := range g.Snippets {
			assert.Contains(t, strings.ToLower(s.Text), "gloves")
			assert.Equal(t, "General Section", s.SectionPath)
		}
	}

	gowning := groups[0]
	if gowning.Title != "Gowning Procedure" {
		gowning = groups[1]
	}
	assert.Equal(t, 2, gowning.Matches)
}

func TestEngineDiscover_SnippetCapPerDocument(t *testing.T) {
	f := newEngineFixture(t)
	seeds := make([]seed, 0, 5)
	for i := 0; i < 5; i++ {
		seeds = append(seeds, seed{
			id:     "s" + string(rune('0'+i)),
			title:  "Hand Hygiene",
			status: identity.StatusActive,
			body:   "Scrub hands with antiseptic soap for the prescribed duration.",
		})
	}
	f.seedPassages(t, seeds...)

	groups, err := f.engine.Discover(context.Background(), "antiseptic soap")
	require.NoError(t, err)

	require.Len(t, groups, 1)
	assert.Equal(t, 5, groups[0].Matches)
	assert.Len(t, groups[0].Snippets, 3)
}

func TestEngineDiscover_ExcludesInactive(t *testing.T) {
	f := newEngineFixture(t)
	f.seedPassages(t,
		seed{id: "i1", title: "Old Procedure", status: identity.StatusInactive,
			body: "Superseded autoclave loading pattern."},
		seed{id: "a1", title: "New Procedure", status: identity.StatusActive,
			body: "Current autoclave loading pattern with spacing rules."},
	)

	groups, err := f.engine.Discover(context.Background(), "autoclave")
	require.NoError(t, err)

	require.Len(t, groups, 1)
	assert.Equal(t, "New Procedure", groups[0].Title)
}

func TestEngineDiscover_NormalizesQuery(t *testing.T) {
	f := newEngineFixture(t)
	f.seedPassages(t, seed{id: "n1", title: "Sterilization", status: identity.StatusActive,
		body: "Record the sterilisation cycle parameters in the batch log."})

	groups, err := f.engine.Discover(context.Background(), "STÉRILISATION")
	require.NoError(t, err)

	require.Len(t, groups, 1)
	assert.Equal(t, "Sterilization", groups[0].Title)
}

func TestEngineDiscover_EmptyQueryRejected(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.Discover(context.Background(), " \t ")
	require.Error(t, err)
	assert.Equal(t, soperrors.ErrCodeQueryEmpty, soperrors.GetCode(err))
}

func TestExcerpt(t *testing.T) {
	body := strings.Repeat("lead ", 40) + "the autoclave cycle" + strings.Repeat(" tail", 40)

	got := excerpt(body, []string{"autoclave"}, 20)

	assert.Contains(t, got, "autoclave")
	assert.True(t, strings.HasPrefix(got, "…"))
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Less(t, len(got), 80)

	// No matched term falls back to the passage head.
	head := excerpt("short passage body", nil, 60)
	assert.Equal(t, "short passage body", head)
}
