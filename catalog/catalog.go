// Package catalog provides image-catalog collaborators: an in-memory source,
// the offline placeholder set and the fallback chain the engine consumes.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"chronoguess/core"
)

// Source lists images, optionally only those marked ready.
type Source interface {
	Images(ctx context.Context, readyOnly bool) ([]core.ImageMeta, error)
}

// Memory is an in-process Source.
type Memory struct {
	mu     sync.RWMutex
	images []core.ImageMeta
}

func NewMemory(images ...core.ImageMeta) *Memory {
	return &Memory{images: append([]core.ImageMeta(nil), images...)}
}

// Add appends or replaces images by ID.
func (m *Memory) Add(images ...core.ImageMeta) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, img := range images {
		_, idx, ok := lo.FindIndexOf(m.images, func(have core.ImageMeta) bool { return have.ID == img.ID })
		if ok {
			m.images[idx] = img
			continue
		}
		m.images = append(m.images, img)
	}
}

func (m *Memory) Images(_ context.Context, readyOnly bool) ([]core.ImageMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !readyOnly {
		return append([]core.ImageMeta(nil), m.images...), nil
	}
	return lo.Filter(m.images, func(img core.ImageMeta, _ int) bool { return img.Ready }), nil
}

// Chain is the engine's ImageCatalog. It asks the source for ready images,
// widens to any image when too few are ready, and finally serves the
// placeholder set so a game can always start.
type Chain struct {
	source       Source
	placeholders []core.ImageMeta
	logger       *slog.Logger
}

// NewChain builds a Chain. source may be nil for a fully offline catalog.
func NewChain(source Source, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{source: source, placeholders: Placeholders(), logger: logger}
}

// WithPlaceholders replaces the placeholder set.
func (c *Chain) WithPlaceholders(images []core.ImageMeta) *Chain {
	c.placeholders = append([]core.ImageMeta(nil), images...)
	return c
}

func (c *Chain) FetchCandidateImages(ctx context.Context, count int) ([]core.ImageMeta, error) {
	if c.source != nil {
		for _, readyOnly := range []bool{true, false} {
			images, err := c.source.Images(ctx, readyOnly)
			if err != nil {
				c.logger.Warn("image source failed", "ready_only", readyOnly, "error", err)
				if ctx.Err() != nil {
					return nil, fmt.Errorf("fetch images: %w", ctx.Err())
				}
				continue
			}
			images = lo.UniqBy(images, func(img core.ImageMeta) string { return img.ID })
			if len(images) >= count {
				return images, nil
			}
			c.logger.Info("image pool too small", "ready_only", readyOnly, "available", len(images), "needed", count)
		}
	}
	c.logger.Warn("serving placeholder images", "count", len(c.placeholders))
	return append([]core.ImageMeta(nil), c.placeholders...), nil
}
