package submdomain

import (
	"strings"
)

const (
	MetricScore        = "score"
	MetricUpsolveScore = "upsolveScore"
	MetricSolved       = "solved"
)

// LedgerWrite is the effect of one accepted metric update. Delta is added
// to the metric counter and to its level breakdown; Stored replaces the
// exercise entry of the per-level metric record.
type LedgerWrite struct {
	Metric     string
	Level      string
	ExerciseID string
	Delta      float64
	Stored     any
}

// ApplyDelta returns the write moving the contribution of an exercise
// from prev to cur. Contributions never decrease: when cur < prev there
// is nothing to write. An equal contribution still refreshes Stored.
func ApplyDelta(metric, level, exerciseID string, prev, cur float64, stored any) (LedgerWrite, bool) {
	if cur < prev {
		return LedgerWrite{}, false
	}
	return LedgerWrite{
		Metric:     metric,
		Level:      level,
		ExerciseID: exerciseID,
		Delta:      cur - prev,
		Stored:     stored,
	}, true
}

// LevelField is the name of the per-level breakdown map, e.g. levelScore.
func LevelField(metric string) string {
	return "level" + capitalize(metric)
}

// MetricCollection is the name of the per-level metric record collection,
// e.g. exerciseUpsolveScore.
func MetricCollection(metric string) string {
	return "exercise" + capitalize(metric)
}

// SolvedContribution maps a status onto the solved metric.
func SolvedContribution(status string) float64 {
	if status == StatusSolved {
		return 1
	}
	return 0
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
