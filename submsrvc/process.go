package submsrvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/profound-academy/backend/docstore"
	"github.com/profound-academy/backend/logger"
	"github.com/profound-academy/backend/srvcerror"
	"github.com/profound-academy/backend/stats"
	"github.com/profound-academy/backend/submdomain"
	"github.com/profound-academy/backend/submrepo"
	"golang.org/x/sync/errgroup"
)

// ProcessResult applies one judge result to the submission it belongs to.
//
// Test runs are stored in the user's run area and affect nothing else.
// Scored submissions go through two independent transactions: the first
// decides the best submission and writes the record, the source code,
// insight counters and activity; the second moves the monotonic progress
// metrics.
func (s *SubmissionSrvc) ProcessResult(ctx context.Context, res *submdomain.JudgeResult, userID, submissionID string) (err error) {
	start := time.Now()
	kind := "unknown"
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = srvcerror.Code(err)
			if outcome == "" {
				outcome = "error"
			}
		}
		stats.ResultsProcessed().WithLabelValues(kind, outcome).Inc()
		stats.ResultLatency().WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	ctx = logger.WithLogger(ctx, logger.FromContextOr(ctx, s.logger).
		With("user_id", userID, "submission_id", submissionID))
	log := logger.FromContext(ctx)

	if res == nil {
		return ErrInvalidResult()
	}
	if err := res.Validate(); err != nil {
		return ErrInvalidResult().SetDebug(err)
	}

	subm, err := s.repos.Queue.Get(ctx, s.store, userID, submissionID)
	if err != nil {
		return err
	}
	if subm == nil {
		return ErrSubmissionNotFound(submissionID)
	}
	log.Info("loaded submission", "course_id", subm.CourseID, "exercise_id", subm.ExerciseID,
		"is_test_run", subm.IsTestRun, "status", res.Status.Reduce(), "score", res.Score)

	rec := submdomain.NewRecord(*subm, *res)
	if subm.IsTestRun {
		kind = "run"
		return s.storeRun(ctx, rec)
	}
	kind = "scored"

	var (
		course   *submdomain.Course
		exercise *submdomain.Exercise
		profile  *submdomain.Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		course, err = s.repos.Courses.Get(gctx, s.store, rec.CourseID)
		return err
	})
	g.Go(func() error {
		var err error
		exercise, err = s.repos.Exercises.Get(gctx, s.store, rec.CourseID, rec.ExerciseID)
		return err
	})
	g.Go(func() error {
		var err error
		profile, err = s.repos.Profiles.Get(gctx, s.store, rec.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load submission dependencies: %w", err)
	}
	if course == nil {
		return ErrCourseMissing(rec.CourseID)
	}
	if exercise == nil {
		return ErrExerciseMissing(rec.CourseID, rec.ExerciseID)
	}

	if profile != nil {
		rec.UserDisplayName = profile.DisplayName
		rec.UserImageUrl = profile.ImageUrl
	} else {
		log.Warn("user profile not found, storing record without display info")
	}
	rec.CourseTitle = course.Title
	rec.ExerciseTitle = exercise.Title
	level := submdomain.Level(exercise.Order)
	log.Info("loaded dependencies", "level", level, "freeze_at", course.FreezeAt)

	if err := s.updateBest(ctx, rec, subm.Code); err != nil {
		return err
	}
	if err := s.updateMetrics(ctx, rec, *course, level); err != nil {
		return err
	}
	return nil
}

func (s *SubmissionSrvc) storeRun(ctx context.Context, rec submdomain.Record) error {
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		s.repos.Runs.Put(tx, rec)
		s.repos.Insights.Record(tx, submrepo.InsightRuns, rec.CourseID, rec.ExerciseID, rec.CreatedAt, 1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store test run: %w", err)
	}
	logger.FromContext(ctx).Info("stored test run")
	return nil
}

type bestOutcome struct {
	decision      submdomain.BestDecision
	alreadySolved bool
	activity      bool
}

// updateBest is transaction A. The best pointer is read first so that all
// attempts on one (user, exercise) contend on the same document.
func (s *SubmissionSrvc) updateBest(ctx context.Context, rec submdomain.Record, code string) error {
	var out bestOutcome
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if _, err := s.repos.Best.Get(ctx, tx, rec.ExerciseID, rec.UserID); err != nil {
			return err
		}
		bests, err := s.repos.Records.FindBest(ctx, tx, rec.UserID, rec.ExerciseID)
		if err != nil {
			return err
		}
		if len(bests) > 1 {
			return ErrDuplicateBest(rec.UserID, rec.ExerciseID, len(bests))
		}
		var current *submdomain.Record
		if len(bests) == 1 {
			current = &bests[0]
		}

		// must come from the stored best, before this record is written
		out.alreadySolved = current != nil && current.IsSolved()
		if current != nil && current.ID == rec.ID && !submdomain.SameRank(rec, *current) {
			// the best itself came back with another result
			recs, err := s.repos.Records.ListForExercise(ctx, tx, rec.UserID, rec.ExerciseID)
			if err != nil {
				return err
			}
			out.decision = submdomain.Reelect(rec, recs)
		} else {
			out.decision = submdomain.SelectBest(rec, current)
		}

		cand := rec
		cand.IsBest = out.decision.CandidateIsBest
		for _, w := range out.decision.Writes {
			if w.SubmissionID != cand.ID {
				s.repos.Records.SetIsBest(tx, w.SubmissionID, w.IsBest)
			}
		}
		s.repos.Records.Put(tx, cand)
		switch {
		case cand.IsBest:
			s.repos.Best.Put(tx, cand)
		case out.decision.Promoted != nil:
			s.repos.Best.Put(tx, *out.decision.Promoted)
		}
		s.repos.Sensitive.Put(tx, cand.ID, cand.UserID, code, cand.SubmissionFileURL)

		s.repos.Insights.Record(tx, submrepo.InsightSubmissions, cand.CourseID, cand.ExerciseID, cand.CreatedAt, 1)
		s.repos.Insights.Record(tx, submrepo.InsightTotalScore, cand.CourseID, cand.ExerciseID, cand.CreatedAt, cand.Score)
		if cand.IsSolved() {
			s.repos.Insights.Record(tx, submrepo.InsightSolved, cand.CourseID, cand.ExerciseID, cand.CreatedAt, 1)
		}

		out.activity = !out.alreadySolved && cand.IsSolved()
		if out.activity {
			s.repos.Activity.Increment(tx, cand.UserID, cand.CreatedAt)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update best submission: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info("updated best submission",
		"is_best", out.decision.CandidateIsBest,
		"demoted", out.decision.Demoted,
		"already_solved", out.alreadySolved)
	if p := out.decision.Promoted; p != nil {
		log.Warn("best submission judged again with a lower result, flag moved", "promoted", p.ID)
	}
	if out.activity {
		stats.ActivityIncrements().Inc()
		log.Info("recorded activity", "day", submdomain.DayKey(rec.CreatedAt))
	} else {
		log.Debug("skipped activity", "status", rec.Status)
	}
	return nil
}

// updateMetrics is transaction B.
func (s *SubmissionSrvc) updateMetrics(ctx context.Context, rec submdomain.Record, course submdomain.Course, level string) error {
	stream := submdomain.Classify(course.FreezeAt, rec.CreatedAt)
	scoreMetric := submdomain.MetricScore
	if stream == submdomain.StreamUpsolve {
		scoreMetric = submdomain.MetricUpsolveScore
	}

	type decision struct {
		metric  string
		prev    float64
		cur     float64
		written bool
	}
	var decisions []decision

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		decisions = decisions[:0]
		prevSolved, err := s.repos.Metrics.Get(ctx, tx, rec.CourseID, rec.UserID, submdomain.MetricSolved, level)
		if err != nil {
			return err
		}
		prevScore, err := s.repos.Metrics.Get(ctx, tx, rec.CourseID, rec.UserID, scoreMetric, level)
		if err != nil {
			return err
		}

		var writes []submdomain.LedgerWrite
		apply := func(metric string, prev, cur float64, stored any) {
			w, ok := submdomain.ApplyDelta(metric, level, rec.ExerciseID, prev, cur, stored)
			decisions = append(decisions, decision{metric: metric, prev: prev, cur: cur, written: ok})
			if ok {
				writes = append(writes, w)
			}
		}

		prev := prevScore.Contribution(rec.ExerciseID)
		apply(scoreMetric, prev, rec.Score, rec.Score)
		if stream == submdomain.StreamScored {
			// weekly buckets share the all-time previous contribution
			apply(submdomain.WeeklyScoreMetric(rec.CreatedAt), prev, rec.Score, rec.Score)
		}
		apply(submdomain.MetricSolved,
			prevSolved.SolvedContribution(rec.ExerciseID),
			submdomain.SolvedContribution(rec.Status),
			rec.Status)

		for _, w := range writes {
			s.repos.Progress.Apply(tx, rec.CourseID, rec.UserID, w)
		}
		s.repos.Progress.MergeDisplay(tx, rec.CourseID, rec.UserID, rec.UserDisplayName, rec.UserImageUrl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update progress metrics: %w", err)
	}

	log := logger.FromContext(ctx)
	for _, d := range decisions {
		metricKind := d.metric
		if metricKind != submdomain.MetricScore && metricKind != submdomain.MetricUpsolveScore && metricKind != submdomain.MetricSolved {
			metricKind = "weekly"
		}
		stats.LedgerUpdates().WithLabelValues(metricKind, fmt.Sprint(d.written)).Inc()
		lvl := slog.LevelInfo
		msg := "updated metric"
		if !d.written {
			lvl = slog.LevelDebug
			msg = "metric not updated, contribution would decrease"
		}
		log.Log(ctx, lvl, msg, "metric", d.metric, "prev", d.prev, "cur", d.cur, "stream", stream)
	}
	return nil
}
