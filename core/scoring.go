package core

import "math"

const (
	// EarthRadiusKm is the mean radius used by the haversine formula.
	EarthRadiusKm = 6371.0
	// MaxDistanceKm is the distance at and beyond which location XP is 0.
	MaxDistanceKm = 5000.0
	// MaxTimeDiffYears is the year gap at and beyond which time XP is 0.
	MaxTimeDiffYears = 30
	// MaxAxisXP is the best score on one axis (where or when).
	MaxAxisXP = 100.0
	// MaxRoundXP is location XP plus time XP for a perfect round.
	MaxRoundXP = 2 * MaxAxisXP
	// MaxRoundScore is the pre-penalty score of a perfect round.
	MaxRoundScore = 1000.0
	// BullseyeDistanceKm is the strict upper bound for a location bullseye.
	BullseyeDistanceKm = 10.0
	// PerfectAxisXP is the XP at which an axis counts as effectively 100.
	PerfectAxisXP = 99.5
)

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

// DistanceKm returns the great-circle distance between two points.
func DistanceKm(guessLat, guessLng, truthLat, truthLng float64) float64 {
	dLat := toRadians(truthLat - guessLat)
	dLng := toRadians(truthLng - guessLng)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(guessLat))*math.Cos(toRadians(truthLat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	if a > 1 {
		a = 1
	}
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// LocationXP maps a distance to 0..100, linearly falling to 0 at MaxDistanceKm.
func LocationXP(distanceKm float64) float64 {
	if math.IsNaN(distanceKm) || distanceKm < 0 {
		distanceKm = 0
	}
	return math.Max(0, (1-math.Min(distanceKm, MaxDistanceKm)/MaxDistanceKm)*MaxAxisXP)
}

// TimeXP maps a year gap to 0..100, linearly falling to 0 at MaxTimeDiffYears.
func TimeXP(guessYear, truthYear int) float64 {
	diff := guessYear - truthYear
	if diff < 0 {
		diff = -diff
	}
	return math.Max(0, (1-float64(min(diff, MaxTimeDiffYears))/MaxTimeDiffYears)*MaxAxisXP)
}

// RoundXP sums both axes (0..200).
func RoundXP(locationXP, timeXP float64) float64 {
	return locationXP + timeXP
}

// RoundPercent converts round XP to a 0..100 accuracy.
func RoundPercent(roundXP float64) float64 {
	return ClampPercent(roundXP * 100 / MaxRoundXP)
}

// BaseScore converts round XP to the pre-penalty score (0..1000).
func BaseScore(roundXP float64) float64 {
	return roundXP * MaxRoundScore / MaxRoundXP
}

// ScorePercent expresses a score as a percentage of MaxRoundScore. The result
// is not capped; callers aggregating it cap per round.
func ScorePercent(score float64) float64 {
	return score * 100 / MaxRoundScore
}

// ClampPercent bounds v to [0, 100].
func ClampPercent(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// MeanAccuracy averages per-round percentages, each capped at 100 first, and
// rounds the mean to the nearest integer. Empty input yields 0.
func MeanAccuracy(percents []float64) int {
	if len(percents) == 0 {
		return 0
	}
	var sum float64
	for _, p := range percents {
		sum += ClampPercent(p)
	}
	mean := math.Round(sum / float64(len(percents)))
	return int(math.Min(mean, 100))
}

// ScoreRound turns a raw guess for a round into a finished result.
// A missing or out-of-bounds location scores zero location XP with no
// distance; a missing year scores zero time XP.
func ScoreRound(spec RoundSpec, g Guess, hintsUsed int) RoundResult {
	truth := spec.Image.Coordinates()
	res := RoundResult{
		RoundIndex:        spec.Index,
		ImageID:           spec.Image.ID,
		ActualCoordinates: truth,
		ActualYear:        spec.Image.Year,
		HintsUsed:         hintsUsed,
	}
	if g.Coordinates != nil && g.Coordinates.Valid() {
		c := *g.Coordinates
		d := DistanceKm(c.Lat, c.Lng, truth.Lat, truth.Lng)
		res.GuessCoordinates = &c
		res.DistanceKm = &d
		res.LocationXP = LocationXP(d)
	}
	if g.Year != nil {
		y := *g.Year
		res.GuessYear = &y
		res.TimeXP = TimeXP(y, spec.Image.Year)
	}
	xp := RoundXP(res.LocationXP, res.TimeXP)
	res.AccuracyPercent = RoundPercent(xp)
	res.Score = FinalScore(BaseScore(xp), hintsUsed)
	return res
}

// IsPerfect reports whether both axes are effectively 100.
func (r RoundResult) IsPerfect() bool {
	return r.LocationXP >= PerfectAxisXP && r.TimeXP >= PerfectAxisXP
}

// IsYearBullseye reports an exact-year guess.
func (r RoundResult) IsYearBullseye() bool {
	return r.GuessYear != nil && *r.GuessYear == r.ActualYear
}

// IsLocationBullseye reports a guess strictly within BullseyeDistanceKm.
func (r RoundResult) IsLocationBullseye() bool {
	return r.DistanceKm != nil && *r.DistanceKm < BullseyeDistanceKm
}
