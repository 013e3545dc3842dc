package submrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/profound-academy/backend/docstore"
	"github.com/profound-academy/backend/submdomain"
)

// UserProgress is the course-wide aggregate of one user. Metric counters
// are dynamic (weekly metrics), so the raw fields are kept.
type UserProgress struct {
	CourseID        string
	UserID          string
	UserDisplayName string
	UserImageUrl    string
	Fields          docstore.Fields
}

func (p UserProgress) Metric(metric string) float64 {
	return docstore.Number(p.Fields[metric])
}

func (p UserProgress) LevelMetric(metric, level string) float64 {
	levels, _ := p.Fields[submdomain.LevelField(metric)].(map[string]any)
	return docstore.Number(levels[level])
}

func progressFromDoc(doc *docstore.Doc) UserProgress {
	// courses/{courseId}/progress
	p := UserProgress{
		UserID: doc.Ref.ID,
		Fields: doc.Data,
	}
	if parts := strings.Split(doc.Ref.CollPath, "/"); len(parts) == 3 {
		p.CourseID = parts[1]
	}
	p.UserDisplayName, _ = doc.Data["userDisplayName"].(string)
	p.UserImageUrl, _ = doc.Data["userImageUrl"].(string)
	return p
}

type Progress struct{}

func (Progress) Ref(courseID, userID string) docstore.Ref {
	return docstore.Collection("courses", courseID, "progress").Doc(userID)
}

func (p Progress) Get(ctx context.Context, rd docstore.Reader, courseID, userID string) (*UserProgress, error) {
	doc, err := rd.Get(ctx, p.Ref(courseID, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	if !doc.Exists() {
		return nil, nil
	}
	res := progressFromDoc(doc)
	return &res, nil
}

// Ranking orders the users of a course by a metric, highest first.
func (p Progress) Ranking(ctx context.Context, rd docstore.Reader, courseID, metric string, limit int) ([]UserProgress, error) {
	q := docstore.Collection("courses", courseID, "progress").Query().
		OrderBy(metric, docstore.Desc).
		Limit(limit)
	docs, err := rd.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking: %w", err)
	}
	res := make([]UserProgress, 0, len(docs))
	for _, d := range docs {
		res = append(res, progressFromDoc(d))
	}
	return res, nil
}

// ListByUser returns the progress documents of a user across all courses.
func (p Progress) ListByUser(ctx context.Context, rd docstore.Reader, userID string) ([]*docstore.Doc, error) {
	docs, err := rd.Query(ctx, docstore.CollectionGroup("progress").Where("userId", userID))
	if err != nil {
		return nil, fmt.Errorf("failed to query user progress: %w", err)
	}
	return docs, nil
}

// Apply adds the ledger delta to the course-wide counter and its level
// breakdown and stores the exercise contribution in the per-level record.
func (p Progress) Apply(tx docstore.Tx, courseID, userID string, w submdomain.LedgerWrite) {
	tx.Set(p.Ref(courseID, userID), docstore.Fields{
		"userId":   userID,
		"courseId": courseID,
		w.Metric:   docstore.Increment(w.Delta),
		submdomain.LevelField(w.Metric): map[string]any{
			w.Level: docstore.Increment(w.Delta),
		},
	}, docstore.Merge())

	tx.Set(Metrics{}.Ref(courseID, userID, w.Metric, w.Level), docstore.Fields{
		"userId":   userID,
		"courseId": courseID,
		"level":    w.Level,
		"progress": map[string]any{w.ExerciseID: w.Stored},
	}, docstore.Merge())
}

// MergeDisplay copies the user's display fields into the progress
// document. Empty values are skipped so a missing profile never clears
// what an earlier write stored.
func (p Progress) MergeDisplay(tx docstore.Tx, courseID, userID, displayName, imageUrl string) {
	fields := docstore.Fields{
		"userId":   userID,
		"courseId": courseID,
	}
	if displayName != "" {
		fields["userDisplayName"] = displayName
	}
	if imageUrl != "" {
		fields["userImageUrl"] = imageUrl
	}
	tx.Set(p.Ref(courseID, userID), fields, docstore.Merge())
}

// MetricRecord is the per-level index of one metric for one user.
type MetricRecord struct {
	UserID   string         `doc:"userId"`
	CourseID string         `doc:"courseId"`
	Level    string         `doc:"level"`
	Progress map[string]any `doc:"progress"`
}

// Contribution is the numeric value credited for the exercise, 0 if none.
func (m *MetricRecord) Contribution(exerciseID string) float64 {
	if m == nil {
		return 0
	}
	return docstore.Number(m.Progress[exerciseID])
}

// SolvedContribution reads a solved-metric entry, which stores a status.
func (m *MetricRecord) SolvedContribution(exerciseID string) float64 {
	if m == nil {
		return 0
	}
	status, _ := m.Progress[exerciseID].(string)
	return submdomain.SolvedContribution(status)
}

type Metrics struct{}

func (Metrics) Ref(courseID, userID, metric, level string) docstore.Ref {
	return Progress{}.Ref(courseID, userID).Collection(submdomain.MetricCollection(metric)).Doc(level)
}

func (m Metrics) Get(ctx context.Context, rd docstore.Reader, courseID, userID, metric, level string) (*MetricRecord, error) {
	doc, err := rd.Get(ctx, m.Ref(courseID, userID, metric, level))
	if err != nil {
		return nil, fmt.Errorf("failed to get %s metric: %w", metric, err)
	}
	if !doc.Exists() {
		return nil, nil
	}
	var rec MetricRecord
	if err := doc.DataTo(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ForLevel queries the metric records of every user of a course at a level.
func (m Metrics) ForLevel(ctx context.Context, rd docstore.Reader, courseID, level, metric string) ([]MetricRecord, error) {
	q := docstore.CollectionGroup(submdomain.MetricCollection(metric)).
		Where("courseId", courseID).
		Where("level", level)
	docs, err := rd.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query level metrics: %w", err)
	}
	res := make([]MetricRecord, 0, len(docs))
	for _, d := range docs {
		var rec MetricRecord
		if err := d.DataTo(&rec); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, nil
}
