package core

import (
	"fmt"
	"math"
	"slices"
)

// MaxPenalizedHints caps the hint count that affects the score.
const MaxPenalizedHints = 3

// FinalScore applies a 10% multiplicative penalty per hint, counting at most
// MaxPenalizedHints, and rounds to the nearest integer. The result never
// exceeds baseScore for non-negative scores.
func FinalScore(baseScore float64, hintsUsed int) float64 {
	n := max(0, min(hintsUsed, MaxPenalizedHints))
	multiplier := float64(10-n) / 10
	return math.Round(baseScore * multiplier)
}

// HintType is the kind of information a hint reveals.
type HintType string

const (
	HintWhere HintType = "where"
	HintWhen  HintType = "when"
	HintWhat  HintType = "what"
)

// HintTypes lists every selectable hint.
var HintTypes = []HintType{HintWhere, HintWhen, HintWhat}

// Valid reports whether t is a known hint type.
func (t HintType) Valid() bool { return slices.Contains(HintTypes, t) }

// Reveal returns the text shown for hint t about img.
func (t HintType) Reveal(img ImageMeta) string {
	switch t {
	case HintWhere:
		return img.LocationName
	case HintWhen:
		decade := img.Year - img.Year%10
		if img.Year < 0 && img.Year%10 != 0 {
			decade -= 10
		}
		return fmt.Sprintf("%ds", decade)
	case HintWhat:
		return img.Title
	}
	return ""
}

// HintTracker is the per-round hint state machine. A revealed hint cannot be
// withdrawn or swapped for another type.
type HintTracker struct {
	allowed int
	used    []HintType
}

// NewHintTracker allows up to allowed distinct hints in the round.
func NewHintTracker(allowed int) *HintTracker {
	return &HintTracker{allowed: max(0, allowed)}
}

// Select reveals hint t.
func (h *HintTracker) Select(t HintType) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownHint, t)
	}
	if h.Has(t) {
		return ErrHintAlreadyUsed
	}
	if h.Remaining() == 0 {
		return ErrHintUnavailable
	}
	h.used = append(h.used, t)
	return nil
}

// Has reports whether t was already revealed.
func (h *HintTracker) Has(t HintType) bool { return slices.Contains(h.used, t) }

// Used is the number of hints consumed.
func (h *HintTracker) Used() int { return len(h.used) }

// Remaining is how many more hints may be selected.
func (h *HintTracker) Remaining() int { return max(0, h.allowed-len(h.used)) }

// Types returns the revealed hint types in selection order.
func (h *HintTracker) Types() []HintType { return slices.Clone(h.used) }
