package submsrvc

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/profound-academy/backend/logger"
	"github.com/profound-academy/backend/planglist"
	"github.com/profound-academy/backend/stats"
	"github.com/profound-academy/backend/submdomain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type EnqueueParams struct {
	UserID     string `validate:"required"`
	CourseID   string `validate:"required"`
	ExerciseID string `validate:"required"`
	Code       string `validate:"required"`
	Language   string `validate:"required"`
	IsTestRun  bool
	TestCases  []submdomain.TestCase
}

// Enqueue stores a new submission and hands it to the judge. The judge
// later calls back with the result, which ends up in ProcessResult.
func (s *SubmissionSrvc) Enqueue(ctx context.Context, params EnqueueParams) (*submdomain.Submission, error) {
	if err := validate.Struct(params); err != nil {
		return nil, ErrInvalidSubmission().SetDebug(err)
	}
	if !params.IsTestRun && len(params.TestCases) > 0 {
		return nil, ErrFinalSubmissionWithTestCases()
	}
	lang, err := planglist.Get(params.Language)
	if err != nil {
		return nil, err
	}

	exercise, err := s.repos.Exercises.Get(ctx, s.store, params.CourseID, params.ExerciseID)
	if err != nil {
		return nil, err
	}
	if exercise == nil {
		return nil, ErrExerciseMissing(params.CourseID, params.ExerciseID)
	}

	subm := submdomain.Submission{
		ID:         s.newID(),
		UserID:     params.UserID,
		CourseID:   params.CourseID,
		ExerciseID: params.ExerciseID,
		Language:   params.Language,
		Code:       params.Code,
		CreatedAt:  s.now().UTC(),
		IsTestRun:  params.IsTestRun,
		TestCases:  params.TestCases,
	}
	log := logger.FromContextOr(ctx, s.logger).With("user_id", subm.UserID, "submission_id", subm.ID)

	if s.sources != nil {
		key := fmt.Sprintf("%s/%s.%s", subm.UserID, subm.ID, lang.Extension)
		url, err := s.sources.Upload(ctx, key, []byte(subm.Code), "text/plain")
		if err != nil {
			return nil, fmt.Errorf("failed to archive source code: %w", err)
		}
		subm.SubmissionFileURL = url
	}

	if err := s.repos.Queue.Put(ctx, s.store, subm); err != nil {
		return nil, err
	}
	log.Info("enqueued submission", "exercise_id", subm.ExerciseID, "is_test_run", subm.IsTestRun)

	if s.judge == nil {
		log.Warn("no judge configured, submission stays queued")
		return &subm, nil
	}
	if err := s.judge.Submit(ctx, subm, *exercise); err != nil {
		stats.JudgeSubmits().WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to submit to judge: %w", err)
	}
	stats.JudgeSubmits().WithLabelValues("ok").Inc()
	return &subm, nil
}
