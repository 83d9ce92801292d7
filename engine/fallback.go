package engine

import (
	"context"
	"errors"
	"fmt"
)

// Strategy is one named step in an ordered fallback chain.
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// FirstSuccess tries strategies in order and returns the first value produced
// without error, along with the name of the strategy that produced it. When
// every step fails the joined errors are returned.
func FirstSuccess[T any](ctx context.Context, strategies ...Strategy[T]) (T, string, error) {
	var zero T
	var errs []error
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		v, err := s.Run(ctx)
		if err == nil {
			return v, s.Name, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no strategies"))
	}
	return zero, "", errors.Join(errs...)
}
