package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronoguess/core"
)

func images(n int, ready bool, prefix string) []core.ImageMeta {
	out := make([]core.ImageMeta, n)
	for i := range out {
		out[i] = core.ImageMeta{ID: fmt.Sprintf("%s-%d", prefix, i), Year: 1900 + i, Ready: ready}
	}
	return out
}

type failingSource struct{}

func (failingSource) Images(context.Context, bool) ([]core.ImageMeta, error) {
	return nil, errors.New("catalog offline")
}

func TestChainPrefersReadyImages(t *testing.T) {
	src := NewMemory(append(images(5, true, "r"), images(3, false, "d")...)...)
	got, err := NewChain(src, nil).FetchCandidateImages(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	for _, img := range got {
		assert.True(t, img.Ready, img.ID)
	}
}

func TestChainWidensToAnyImage(t *testing.T) {
	src := NewMemory(append(images(2, true, "r"), images(3, false, "d")...)...)
	got, err := NewChain(src, nil).FetchCandidateImages(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestChainFallsBackToPlaceholders(t *testing.T) {
	for name, src := range map[string]Source{
		"too few": NewMemory(images(2, false, "d")...),
		"error":   failingSource{},
		"nil":     nil,
	} {
		t.Run(name, func(t *testing.T) {
			got, err := NewChain(src, nil).FetchCandidateImages(context.Background(), 5)
			require.NoError(t, err)
			assert.Equal(t, Placeholders(), got)
		})
	}
}

func TestChainCustomPlaceholders(t *testing.T) {
	got, err := NewChain(nil, nil).WithPlaceholders(images(1, true, "p")).FetchCandidateImages(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestChainDeduplicates(t *testing.T) {
	dup := images(3, true, "r")
	src := NewMemory(append(dup, dup...)...)
	got, err := NewChain(src, nil).FetchCandidateImages(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, Placeholders(), got)
}

func TestPlaceholdersPlayable(t *testing.T) {
	ph := Placeholders()
	require.GreaterOrEqual(t, len(ph), 5)
	seen := map[string]bool{}
	for _, img := range ph {
		assert.False(t, seen[img.ID], "duplicate id %s", img.ID)
		seen[img.ID] = true
		assert.True(t, img.Coordinates().Valid(), img.ID)
		assert.NotEmpty(t, img.LocationName)
		assert.NotEmpty(t, img.Title)
	}
}

func TestMemoryAddReplaces(t *testing.T) {
	m := NewMemory(core.ImageMeta{ID: "a", Ready: false})
	m.Add(core.ImageMeta{ID: "a", Ready: true}, core.ImageMeta{ID: "b"})
	all, _ := m.Images(context.Background(), false)
	ready, _ := m.Images(context.Background(), true)
	assert.Len(t, all, 2)
	assert.Len(t, ready, 1)
}
