package submdomain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/profound-academy/backend/submdomain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduceStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     string
	}{
		{"all solved", []string{"Solved", "Solved"}, "Solved"},
		{"one failure", []string{"Solved", "Wrong answer", "Solved"}, "Wrong answer"},
		{"last failure wins", []string{"Time limit exceeded", "Solved", "Runtime error"}, "Runtime error"},
		{"empty", nil, "Solved"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, submdomain.ReduceStatus(tt.statuses))
		})
	}
}

func TestJudgeStatusJSON(t *testing.T) {
	var res submdomain.JudgeResult
	err := json.Unmarshal([]byte(`{"status":"Solved","score":100,"time":0.5,"memory":1024}`), &res)
	require.NoError(t, err)
	assert.Equal(t, "Solved", res.Status.Reduce())
	assert.Nil(t, res.Status.PerTest)

	err = json.Unmarshal([]byte(`{"status":["Solved","Wrong answer"],"score":50}`), &res)
	require.NoError(t, err)
	assert.Equal(t, "Wrong answer", res.Status.Reduce())
	assert.Equal(t, []string{"Solved", "Wrong answer"}, res.Status.PerTest)

	out, err := json.Marshal(res.Status)
	require.NoError(t, err)
	assert.JSONEq(t, `["Solved","Wrong answer"]`, string(out))

	err = json.Unmarshal([]byte(`{"status":42}`), &res)
	assert.Error(t, err)
}

func TestJudgeResultValidate(t *testing.T) {
	ok := submdomain.JudgeResult{Status: submdomain.JudgeStatus{Overall: "Solved"}, Score: 100, Time: 1, Memory: 10}
	assert.NoError(t, ok.Validate())

	noStatus := ok
	noStatus.Status = submdomain.JudgeStatus{}
	assert.Error(t, noStatus.Validate())

	emptyList := ok
	emptyList.Status = submdomain.JudgeStatus{PerTest: []string{}}
	assert.Error(t, emptyList.Validate())

	tooHigh := ok
	tooHigh.Score = 101
	assert.Error(t, tooHigh.Validate())

	negativeTime := ok
	negativeTime.Time = -1
	assert.Error(t, negativeTime.Validate())
}

func TestSelectBest(t *testing.T) {
	rec := func(id string, score, time float64) submdomain.Record {
		return submdomain.Record{ID: id, Score: score, Time: time}
	}

	t.Run("no current best", func(t *testing.T) {
		d := submdomain.SelectBest(rec("s1", 10, 5), nil)
		assert.True(t, d.CandidateIsBest)
		assert.Empty(t, d.Demoted)
		assert.Equal(t, []submdomain.BestWrite{{SubmissionID: "s1", IsBest: true}}, d.Writes)
	})

	t.Run("higher score wins", func(t *testing.T) {
		cur := rec("s1", 60, 1)
		d := submdomain.SelectBest(rec("s2", 80, 9), &cur)
		assert.True(t, d.CandidateIsBest)
		assert.Equal(t, "s1", d.Demoted)
		assert.Equal(t, []submdomain.BestWrite{
			{SubmissionID: "s1", IsBest: false},
			{SubmissionID: "s2", IsBest: true},
		}, d.Writes)
	})

	t.Run("equal score faster wins", func(t *testing.T) {
		cur := rec("s1", 80, 20)
		d := submdomain.SelectBest(rec("s2", 80, 15), &cur)
		assert.True(t, d.CandidateIsBest)
		assert.Equal(t, "s1", d.Demoted)
	})

	t.Run("equal score equal time loses", func(t *testing.T) {
		cur := rec("s1", 80, 15)
		d := submdomain.SelectBest(rec("s2", 80, 15), &cur)
		assert.False(t, d.CandidateIsBest)
		assert.Equal(t, []submdomain.BestWrite{{SubmissionID: "s2", IsBest: false}}, d.Writes)
	})

	t.Run("lower score loses", func(t *testing.T) {
		cur := rec("s1", 80, 15)
		d := submdomain.SelectBest(rec("s2", 70, 1), &cur)
		assert.False(t, d.CandidateIsBest)
		assert.Empty(t, d.Demoted)
	})

	t.Run("repeated callback stays best", func(t *testing.T) {
		cur := rec("s1", 80, 15)
		d := submdomain.SelectBest(rec("s1", 80, 15), &cur)
		assert.True(t, d.CandidateIsBest)
		assert.Empty(t, d.Demoted)
	})
}

func TestReelect(t *testing.T) {
	rec := func(id string, score, time float64) submdomain.Record {
		return submdomain.Record{ID: id, Score: score, Time: time}
	}

	t.Run("lower result hands the flag to the next record", func(t *testing.T) {
		cand := rec("s2", 10, 1)
		d := submdomain.Reelect(cand, []submdomain.Record{rec("s1", 50, 1), rec("s2", 100, 1), rec("s3", 50, 3)})
		assert.False(t, d.CandidateIsBest)
		require.NotNil(t, d.Promoted)
		assert.Equal(t, "s1", d.Promoted.ID)
		assert.True(t, d.Promoted.IsBest)
		assert.Equal(t, []submdomain.BestWrite{
			{SubmissionID: "s2", IsBest: false},
			{SubmissionID: "s1", IsBest: true},
		}, d.Writes)
	})

	t.Run("candidate still leads", func(t *testing.T) {
		d := submdomain.Reelect(rec("s2", 70, 1), []submdomain.Record{rec("s1", 50, 1), rec("s2", 100, 1)})
		assert.True(t, d.CandidateIsBest)
		assert.Nil(t, d.Promoted)
	})

	t.Run("tie keeps the candidate", func(t *testing.T) {
		d := submdomain.Reelect(rec("s2", 50, 1), []submdomain.Record{rec("s1", 50, 1)})
		assert.True(t, d.CandidateIsBest)
	})

	t.Run("no other records", func(t *testing.T) {
		d := submdomain.Reelect(rec("s1", 0, 9), nil)
		assert.True(t, d.CandidateIsBest)
	})
}

func TestSameRank(t *testing.T) {
	a := submdomain.Record{ID: "s1", Score: 50, Time: 1}
	b := submdomain.Record{ID: "s1", Score: 50, Time: 1, Status: submdomain.StatusWrongAnswer}
	assert.True(t, submdomain.SameRank(a, b))
	b.Time = 2
	assert.False(t, submdomain.SameRank(a, b))
}

func TestClassify(t *testing.T) {
	freeze := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, submdomain.StreamScored, submdomain.Classify(freeze, freeze.Add(-time.Second)))
	assert.Equal(t, submdomain.StreamUpsolve, submdomain.Classify(freeze, freeze))
	assert.Equal(t, submdomain.StreamUpsolve, submdomain.Classify(freeze, freeze.Add(time.Hour)))
	assert.Equal(t, submdomain.StreamScored, submdomain.Classify(time.Time{}, freeze))
}

func TestApplyDelta(t *testing.T) {
	w, ok := submdomain.ApplyDelta("score", "2", "ex1", 60, 80, 80.0)
	require.True(t, ok)
	assert.Equal(t, submdomain.LedgerWrite{Metric: "score", Level: "2", ExerciseID: "ex1", Delta: 20, Stored: 80.0}, w)

	_, ok = submdomain.ApplyDelta("score", "2", "ex1", 80, 60, 60.0)
	assert.False(t, ok)

	w, ok = submdomain.ApplyDelta("solved", "2", "ex1", 1, 1, "Solved")
	require.True(t, ok)
	assert.Equal(t, 0.0, w.Delta)
	assert.Equal(t, "Solved", w.Stored)

	assert.Equal(t, 1.0, submdomain.SolvedContribution("Solved"))
	assert.Equal(t, 0.0, submdomain.SolvedContribution("Wrong answer"))
	assert.Equal(t, "levelUpsolveScore", submdomain.LevelField("upsolveScore"))
	assert.Equal(t, "exerciseScore_2024_03_09", submdomain.MetricCollection("score_2024_03_09"))
}

func TestKeys(t *testing.T) {
	ts := time.Date(2024, 3, 1, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600))
	assert.Equal(t, "2024-03-02", submdomain.DayKey(ts))
	assert.Equal(t, "2024", submdomain.YearKey(ts))
	assert.Equal(t, "score_2024_03_09", submdomain.WeeklyScoreMetric(ts))

	// ISO week 1 of 2025 starts in December 2024
	assert.Equal(t, "score_2024_12_01", submdomain.WeeklyScoreMetric(time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, "3", submdomain.Level(3.07))
	assert.Equal(t, "0", submdomain.Level(0.5))
	assert.Equal(t, "12", submdomain.Level(12))
}

func TestNewRecord(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	subm := submdomain.Submission{
		ID: "s1", UserID: "u1", CourseID: "c1", ExerciseID: "e1",
		Language: "python", Code: "print(1)", CreatedAt: created,
	}
	res := submdomain.JudgeResult{
		Status: submdomain.JudgeStatus{PerTest: []string{"Solved", "Wrong answer"}},
		Score:  50, Time: 0.2, Memory: 1 << 20,
	}
	rec := submdomain.NewRecord(subm, res)
	assert.Equal(t, "Wrong answer", rec.Status)
	assert.Equal(t, []string{"Solved", "Wrong answer"}, rec.TestStatuses)
	assert.False(t, rec.IsSolved())
	assert.False(t, rec.IsBest)
	assert.Equal(t, created, rec.CreatedAt)
}
