package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"chronoguess/core"

	"github.com/redis/go-redis/v9"
)

const (
	imagesKey      = "images:all"
	readyImagesKey = "images:ready"
)

// ImageSource serves the image catalog from Redis.
// - images:all -> hash of image id -> JSON ImageMeta
// - images:ready -> set of ids whose image is ready to serve
type ImageSource struct {
	client *redis.Client
}

func NewImageSource(client *redis.Client) *ImageSource {
	return &ImageSource{client: client}
}

// Put stores images and maintains the ready index.
func (s *ImageSource) Put(ctx context.Context, images ...core.ImageMeta) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, img := range images {
			data, err := json.Marshal(img)
			if err != nil {
				return err
			}
			pipe.HSet(ctx, imagesKey, img.ID, data)
			if img.Ready {
				pipe.SAdd(ctx, readyImagesKey, img.ID)
			} else {
				pipe.SRem(ctx, readyImagesKey, img.ID)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("put images: %w", err)
	}
	return nil
}

func (s *ImageSource) Images(ctx context.Context, readyOnly bool) ([]core.ImageMeta, error) {
	var raw []string
	if readyOnly {
		ids, err := s.client.SMembers(ctx, readyImagesKey).Result()
		if err != nil {
			return nil, fmt.Errorf("list ready images: %w", err)
		}
		if len(ids) == 0 {
			return nil, nil
		}
		vals, err := s.client.HMGet(ctx, imagesKey, ids...).Result()
		if err != nil {
			return nil, fmt.Errorf("load ready images: %w", err)
		}
		for _, v := range vals {
			if str, ok := v.(string); ok {
				raw = append(raw, str)
			}
		}
	} else {
		all, err := s.client.HGetAll(ctx, imagesKey).Result()
		if err != nil {
			return nil, fmt.Errorf("list images: %w", err)
		}
		for _, v := range all {
			raw = append(raw, v)
		}
	}
	out := make([]core.ImageMeta, 0, len(raw))
	for _, r := range raw {
		var img core.ImageMeta
		if err := json.Unmarshal([]byte(r), &img); err != nil {
			continue // skip corrupt entries
		}
		out = append(out, img)
	}
	return out, nil
}
