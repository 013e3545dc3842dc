package submdomain

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// DayKey formats t as YYYY-MM-DD in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

func YearKey(t time.Time) string {
	return t.UTC().Format("2006")
}

// WeeklyScoreMetric is the metric name of the week bucket containing t,
// score_YYYY_MM_WW with calendar year and month and the ISO week number.
func WeeklyScoreMetric(t time.Time) string {
	t = t.UTC()
	_, week := t.ISOWeek()
	return fmt.Sprintf("%s_%s_%02d", MetricScore, t.Format("2006_01"), week)
}

// Level is the integral part of an exercise order, e.g. 3.07 -> "3".
func Level(order float64) string {
	return strconv.FormatFloat(math.Floor(order), 'f', -1, 64)
}
