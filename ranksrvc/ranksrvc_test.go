package ranksrvc_test

import (
	"context"
	"testing"
	"time"

	"github.com/profound-academy/backend/docstore"
	"github.com/profound-academy/backend/ranksrvc"
	"github.com/profound-academy/backend/srvcerror"
	"github.com/profound-academy/backend/submdomain"
	"github.com/profound-academy/backend/submrepo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func applyScore(t *testing.T, store docstore.Store, userID, name, exerciseID string, score float64) {
	t.Helper()
	repos := submrepo.New()
	w, ok := submdomain.ApplyDelta(submdomain.MetricScore, "1", exerciseID, 0, score, score)
	require.True(t, ok)
	require.NoError(t, store.RunTransaction(context.Background(), func(ctx context.Context, tx docstore.Tx) error {
		repos.Progress.Apply(tx, "c1", userID, w)
		repos.Progress.MergeDisplay(tx, "c1", userID, name, "")
		return nil
	}))
}

func TestRankingSharesRanksOnTies(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemStore()
	applyScore(t, store, "u1", "Ada", "e1", 50)
	applyScore(t, store, "u2", "Bob", "e1", 90)
	applyScore(t, store, "u3", "Cy", "e1", 50)
	applyScore(t, store, "u4", "Di", "e1", 10)
	srvc := ranksrvc.NewRankService(store)

	ranking, err := srvc.Ranking(ctx, "c1", submdomain.MetricScore, 0)
	require.NoError(t, err)
	require.Len(t, ranking, 4)
	assert.Equal(t, "u2", ranking[0].UserID)
	assert.Equal(t, "Bob", ranking[0].UserDisplayName)
	assert.Equal(t, 90.0, ranking[0].Value)
	assert.Equal(t, []int{1, 2, 2, 4}, []int{ranking[0].Rank, ranking[1].Rank, ranking[2].Rank, ranking[3].Rank})

	top, err := srvc.Ranking(ctx, "c1", submdomain.MetricScore, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	_, err = srvc.Ranking(ctx, "c1", "score; drop", 10)
	assert.True(t, srvcerror.HasCode(err, ranksrvc.ErrCodeInvalidQuery))
	_, err = srvc.Ranking(ctx, "c1", submdomain.MetricScore, ranksrvc.MaxLimit+1)
	assert.True(t, srvcerror.HasCode(err, ranksrvc.ErrCodeInvalidQuery))
}

func TestLevelMetrics(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemStore()
	applyScore(t, store, "u1", "Ada", "e1", 50)
	applyScore(t, store, "u1", "Ada", "e2", 70)
	applyScore(t, store, "u2", "Bob", "e1", 90)
	srvc := ranksrvc.NewRankService(store)

	recs, err := srvc.LevelMetrics(ctx, "c1", "1", submdomain.MetricScore)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	byUser := map[string]submrepo.MetricRecord{}
	for _, r := range recs {
		byUser[r.UserID] = r
	}
	u1, u2 := byUser["u1"], byUser["u2"]
	assert.Equal(t, 50.0, u1.Contribution("e1"))
	assert.Equal(t, 70.0, u1.Contribution("e2"))
	assert.Equal(t, 90.0, u2.Contribution("e1"))

	_, err = srvc.LevelMetrics(ctx, "c1", "one", submdomain.MetricScore)
	assert.True(t, srvcerror.HasCode(err, ranksrvc.ErrCodeInvalidQuery))
}

func TestLevelMetricsNegativeLevel(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemStore()
	repos := submrepo.New()
	level := submdomain.Level(-0.5)
	require.Equal(t, "-1", level)
	w, ok := submdomain.ApplyDelta(submdomain.MetricScore, level, "e0", 0, 30, 30.0)
	require.True(t, ok)
	require.NoError(t, store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		repos.Progress.Apply(tx, "c1", "u1", w)
		return nil
	}))

	recs, err := ranksrvc.NewRankService(store).LevelMetrics(ctx, "c1", level, submdomain.MetricScore)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 30.0, recs[0].Contribution("e0"))

	_, err = ranksrvc.NewRankService(store).LevelMetrics(ctx, "c1", "--1", submdomain.MetricScore)
	assert.True(t, srvcerror.HasCode(err, ranksrvc.ErrCodeInvalidQuery))
}

func TestInsightsAndActivity(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemStore()
	repos := submrepo.New()
	require.NoError(t, store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		repos.Insights.Record(tx, submrepo.InsightSubmissions, "c1", "e1", day, 1)
		repos.Insights.Record(tx, submrepo.InsightTotalScore, "c1", "e1", day, 80)
		repos.Activity.Increment(tx, "u1", day)
		return nil
	}))
	srvc := ranksrvc.NewRankService(store)

	ins, err := srvc.Insights(ctx, "c1", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 1.0, ins.Submitted)
	assert.Equal(t, 80.0, ins.Score)
	assert.Equal(t, 80.0, ins.Exercises["e1"][submrepo.InsightTotalScore])

	empty, err := srvc.Insights(ctx, "c1", "2024-03-02")
	require.NoError(t, err)
	assert.Zero(t, empty.Submitted)

	_, err = srvc.Insights(ctx, "c1", "yesterday")
	assert.True(t, srvcerror.HasCode(err, ranksrvc.ErrCodeInvalidQuery))

	act, err := srvc.Activity(ctx, "u1", "2024")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"2024-03-01": 1}, act)

	_, err = srvc.Activity(ctx, "u1", "24")
	assert.True(t, srvcerror.HasCode(err, ranksrvc.ErrCodeInvalidQuery))
}

func TestLeaderboard(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemStore()
	repos := submrepo.New()
	bests := []submdomain.Record{
		{ID: "s1", UserID: "u1", ExerciseID: "e1", CreatedAt: day, Status: submdomain.StatusSolved, Score: 100, Time: 0.5, Memory: 10},
		{ID: "s2", UserID: "u2", ExerciseID: "e1", CreatedAt: day, Status: submdomain.StatusSolved, Score: 100, Time: 0.2, Memory: 30},
		{ID: "s3", UserID: "u3", ExerciseID: "e1", CreatedAt: day, Status: submdomain.StatusWrongAnswer, Score: 40},
		{ID: "s4", UserID: "u4", ExerciseID: "e1", CreatedAt: day, Status: submdomain.StatusSolved, Score: 100, Time: 0.2, Memory: 20},
	}
	require.NoError(t, store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		for _, b := range bests {
			repos.Best.Put(tx, b)
		}
		return nil
	}))
	srvc := ranksrvc.NewRankService(store)

	board, err := srvc.Leaderboard(ctx, "e1", 10)
	require.NoError(t, err)
	ids := make([]string, 0, len(board))
	for _, r := range board {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"s4", "s2", "s1"}, ids)
}
