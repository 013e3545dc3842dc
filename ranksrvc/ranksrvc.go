// Package ranksrvc answers read queries over the aggregates maintained by
// result processing: course rankings, per-level metric records, daily
// insights, exercise leaderboards and user activity.
package ranksrvc

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/profound-academy/backend/docstore"
	"github.com/profound-academy/backend/submdomain"
	"github.com/profound-academy/backend/submrepo"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

var (
	metricPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,63}$`)
	levelPattern  = regexp.MustCompile(`^-?[0-9]{1,6}$`)
	yearPattern   = regexp.MustCompile(`^[0-9]{4}$`)
)

type RankService struct {
	logger *slog.Logger
	store  docstore.Store
	repos  submrepo.Repos
}

func NewRankService(store docstore.Store) *RankService {
	return &RankService{
		logger: slog.Default().With("module", "rank"),
		store:  store,
		repos:  submrepo.New(),
	}
}

type RankEntry struct {
	Rank            int     `json:"rank"`
	UserID          string  `json:"userId"`
	UserDisplayName string  `json:"userDisplayName"`
	UserImageUrl    string  `json:"userImageUrl"`
	Value           float64 `json:"value"`
}

func normalizeLimit(limit int) (int, error) {
	if limit == 0 {
		return DefaultLimit, nil
	}
	if limit < 0 || limit > MaxLimit {
		return 0, newErrInvalidQuery("limit must be between 1 and %d", MaxLimit)
	}
	return limit, nil
}

// Ranking lists the users of a course by metric, highest first. Equal
// values share a rank and the next rank skips accordingly.
func (s *RankService) Ranking(ctx context.Context, courseID, metric string, limit int) ([]RankEntry, error) {
	if !metricPattern.MatchString(metric) {
		return nil, newErrInvalidQuery("unknown metric %q", metric)
	}
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	progress, err := s.repos.Progress.Ranking(ctx, s.store, courseID, metric, limit)
	if err != nil {
		return nil, err
	}

	res := make([]RankEntry, 0, len(progress))
	for i, p := range progress {
		e := RankEntry{
			Rank:            i + 1,
			UserID:          p.UserID,
			UserDisplayName: p.UserDisplayName,
			UserImageUrl:    p.UserImageUrl,
			Value:           p.Metric(metric),
		}
		if i > 0 && res[i-1].Value == e.Value {
			e.Rank = res[i-1].Rank
		}
		res = append(res, e)
	}
	return res, nil
}

// LevelMetrics returns every user's per-exercise contributions to metric
// at one level of the course.
func (s *RankService) LevelMetrics(ctx context.Context, courseID, level, metric string) ([]submrepo.MetricRecord, error) {
	if !metricPattern.MatchString(metric) {
		return nil, newErrInvalidQuery("unknown metric %q", metric)
	}
	if !levelPattern.MatchString(level) {
		return nil, newErrInvalidQuery("level must be a non-negative integer")
	}
	return s.repos.Metrics.ForLevel(ctx, s.store, courseID, level, metric)
}

func (s *RankService) Insights(ctx context.Context, courseID, date string) (*submrepo.DayInsights, error) {
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return nil, newErrInvalidQuery("date must look like 2006-01-02").SetDebug(err)
	}
	return s.repos.Insights.Get(ctx, s.store, courseID, date)
}

// Leaderboard lists the solved best submissions of an exercise by score,
// then time, then memory.
func (s *RankService) Leaderboard(ctx context.Context, exerciseID string, limit int) ([]submdomain.Record, error) {
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	return s.repos.Best.Leaderboard(ctx, s.store, exerciseID, limit)
}

// Activity maps each day of the year to the number of newly solved exercises.
func (s *RankService) Activity(ctx context.Context, userID, year string) (map[string]float64, error) {
	if !yearPattern.MatchString(year) {
		return nil, newErrInvalidQuery("year must have four digits")
	}
	return s.repos.Activity.Get(ctx, s.store, userID, year)
}
