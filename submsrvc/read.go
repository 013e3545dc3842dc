package submsrvc

import (
	"context"

	"github.com/profound-academy/backend/submdomain"
)

func (s *SubmissionSrvc) GetRecord(ctx context.Context, submissionID string) (*submdomain.Record, error) {
	rec, err := s.repos.Records.Get(ctx, s.store, submissionID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrSubmissionNotFound(submissionID)
	}
	return rec, nil
}

func (s *SubmissionSrvc) GetRun(ctx context.Context, userID, submissionID string) (*submdomain.Record, error) {
	run, err := s.repos.Runs.Get(ctx, s.store, userID, submissionID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrSubmissionNotFound(submissionID)
	}
	return run, nil
}

// ListUserRecords returns the user's judged submissions, newest first.
func (s *SubmissionSrvc) ListUserRecords(ctx context.Context, userID string) ([]submdomain.Record, error) {
	return s.repos.Records.ListByUser(ctx, s.store, userID)
}

// GetBest returns the user's best submission for the exercise, nil if the
// user has no judged submission for it.
func (s *SubmissionSrvc) GetBest(ctx context.Context, userID, exerciseID string) (*submdomain.Record, error) {
	return s.repos.Best.Get(ctx, s.store, exerciseID, userID)
}
