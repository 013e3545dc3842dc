package usersrvc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/profound-academy/backend/docstore"
	"github.com/profound-academy/backend/submdomain"
	"github.com/profound-academy/backend/submrepo"
	"golang.org/x/sync/errgroup"
)

// at most this many denormalized copies are rewritten at once
const propagationWorkers = 8

type UserService struct {
	logger   *slog.Logger
	store    docstore.Store
	repos    submrepo.Repos
	validate *validator.Validate
}

func NewUserService(store docstore.Store) *UserService {
	return &UserService{
		logger:   slog.Default().With("module", "user"),
		store:    store,
		repos:    submrepo.New(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*submdomain.Profile, error) {
	prof, err := s.repos.Profiles.Get(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	if prof == nil {
		return nil, newErrUserNotFound(userID)
	}
	return prof, nil
}

// UserInfoUpdate holds the fields to change. Nil fields are left as they are.
type UserInfoUpdate struct {
	DisplayName *string `json:"displayName" validate:"omitnil,min=1,max=100"`
	ImageUrl    *string `json:"imageUrl" validate:"omitnil,url"`
}

func (u UserInfoUpdate) displayFields() docstore.Fields {
	fields := docstore.Fields{}
	if u.DisplayName != nil {
		fields["userDisplayName"] = *u.DisplayName
	}
	if u.ImageUrl != nil {
		fields["userImageUrl"] = *u.ImageUrl
	}
	return fields
}

// UpdateUserInfo changes the profile and rewrites the display fields copied
// into the user's progress documents, submission records and best pointers.
// Each copy is merged on its own; a failed run can be repeated safely.
func (s *UserService) UpdateUserInfo(ctx context.Context, userID string, upd UserInfoUpdate) error {
	if upd.DisplayName == nil && upd.ImageUrl == nil {
		return newErrNothingToUpdate()
	}
	if err := s.validate.Struct(upd); err != nil {
		return newErrInvalidUserInfo().SetDebug(err)
	}
	log := s.logger.With("user_id", userID)

	progress, err := s.repos.Progress.ListByUser(ctx, s.store, userID)
	if err != nil {
		return err
	}
	records, err := s.repos.Records.ListByUser(ctx, s.store, userID)
	if err != nil {
		return err
	}

	display := upd.displayFields()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(propagationWorkers)
	for _, doc := range progress {
		ref := doc.Ref
		g.Go(func() error {
			return s.store.Set(gctx, ref, display, docstore.Merge())
		})
	}
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			if err := s.repos.Records.MergeDisplay(gctx, s.store, rec.ID, display); err != nil {
				return err
			}
			if !rec.IsBest {
				return nil
			}
			return s.store.Set(gctx, s.repos.Best.Ref(rec.ExerciseID, rec.UserID), display, docstore.Merge())
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to propagate user info: %w", err)
	}

	profile := docstore.Fields{}
	if upd.DisplayName != nil {
		profile["displayName"] = *upd.DisplayName
	}
	if upd.ImageUrl != nil {
		profile["imageUrl"] = *upd.ImageUrl
	}
	if err := s.repos.Profiles.Merge(ctx, s.store, userID, profile); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	log.Info("updated user info",
		"progress_docs", len(progress),
		"records", len(records),
		"display_name_changed", upd.DisplayName != nil,
		"image_changed", upd.ImageUrl != nil)
	return nil
}
