package submrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/profound-academy/backend/docstore"
	"github.com/profound-academy/backend/submdomain"
)

// Activity counts solves per day in one document per user and year.
type Activity struct{}

func (Activity) Ref(userID, year string) docstore.Ref {
	return docstore.Collection("users", userID, "activity").Doc(year)
}

// Increment adds one to the day of t. The caller guards against repeats.
func (a Activity) Increment(tx docstore.Tx, userID string, t time.Time) {
	tx.Set(a.Ref(userID, submdomain.YearKey(t)), docstore.Fields{
		submdomain.DayKey(t): docstore.Increment(1),
	}, docstore.Merge())
}

func (a Activity) Get(ctx context.Context, rd docstore.Reader, userID, year string) (map[string]float64, error) {
	doc, err := rd.Get(ctx, a.Ref(userID, year))
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	res := make(map[string]float64)
	if !doc.Exists() {
		return res, nil
	}
	for day, v := range doc.Data {
		res[day] = docstore.Number(v)
	}
	return res, nil
}

const (
	InsightSubmissions = "submissions"
	InsightTotalScore  = "totalScore"
	InsightSolved      = "solved"
	InsightRuns        = "runs"
)

// Insights are day-bucketed course counters with a per-exercise breakdown.
type Insights struct{}

func (Insights) Ref(courseID, day string) docstore.Ref {
	return docstore.Collection("courses", courseID, "insights").Doc(day)
}

func (i Insights) Record(tx docstore.Tx, metric, courseID, exerciseID string, t time.Time, n float64) {
	day := submdomain.DayKey(t)
	tx.Set(i.Ref(courseID, day), docstore.Fields{
		"courseId": courseID,
		"date":     day,
		metric:     docstore.Increment(n),
		"exercises": map[string]any{
			exerciseID: map[string]any{metric: docstore.Increment(n)},
		},
	}, docstore.Merge())
}

type DayInsights struct {
	CourseID  string                        `doc:"courseId"`
	Date      string                        `doc:"date"`
	Runs      float64                       `doc:"runs"`
	Submitted float64                       `doc:"submissions"`
	Score     float64                       `doc:"totalScore"`
	Solved    float64                       `doc:"solved"`
	Exercises map[string]map[string]float64 `doc:"exercises"`
}

func (i Insights) Get(ctx context.Context, rd docstore.Reader, courseID, day string) (*DayInsights, error) {
	doc, err := rd.Get(ctx, i.Ref(courseID, day))
	if err != nil {
		return nil, fmt.Errorf("failed to get insights: %w", err)
	}
	if !doc.Exists() {
		return &DayInsights{CourseID: courseID, Date: day}, nil
	}
	var res DayInsights
	if err := doc.DataTo(&res); err != nil {
		return nil, err
	}
	return &res, nil
}
