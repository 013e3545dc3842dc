package submsrvc

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/profound-academy/backend/docstore"
	"github.com/profound-academy/backend/submdomain"
	"github.com/profound-academy/backend/submrepo"
)

// Judge sends a stored submission to be graded. It returns once the judge
// acknowledged the request, not when grading finishes.
type Judge interface {
	Submit(ctx context.Context, subm submdomain.Submission, ex submdomain.Exercise) error
}

// SourceArchive stores submitted source code and returns its URL.
type SourceArchive interface {
	Upload(ctx context.Context, key string, content []byte, contentType string) (string, error)
}

type SubmissionSrvc struct {
	logger *slog.Logger
	store  docstore.Store
	repos  submrepo.Repos

	judge   Judge         // optional
	sources SourceArchive // optional

	now   func() time.Time
	newID func() string
}

type Option func(*SubmissionSrvc)

func WithJudge(j Judge) Option {
	return func(s *SubmissionSrvc) { s.judge = j }
}

func WithSourceArchive(a SourceArchive) Option {
	return func(s *SubmissionSrvc) { s.sources = a }
}

func WithClock(now func() time.Time) Option {
	return func(s *SubmissionSrvc) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *SubmissionSrvc) { s.newID = newID }
}

func NewSubmSrvc(store docstore.Store, opts ...Option) *SubmissionSrvc {
	s := &SubmissionSrvc{
		logger: slog.Default().With("module", "subm"),
		store:  store,
		repos:  submrepo.New(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
