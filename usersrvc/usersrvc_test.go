package usersrvc_test

import (
	"context"
	"testing"
	"time"

	"github.com/profound-academy/backend/docstore"
	"github.com/profound-academy/backend/srvcerror"
	"github.com/profound-academy/backend/submdomain"
	"github.com/profound-academy/backend/submrepo"
	"github.com/profound-academy/backend/usersrvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func seed(t *testing.T, store docstore.Store) {
	t.Helper()
	ctx := context.Background()
	repos := submrepo.New()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repos.Profiles.Merge(ctx, store, "u1", docstore.Fields{"displayName": "Ada", "imageUrl": "https://img/ada.png"}))
	require.NoError(t, store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		best := submdomain.Record{ID: "s1", UserID: "u1", CourseID: "c1", ExerciseID: "e1",
			CreatedAt: created, Status: submdomain.StatusSolved, Score: 100, UserDisplayName: "Ada", IsBest: true}
		other := submdomain.Record{ID: "s2", UserID: "u1", CourseID: "c1", ExerciseID: "e1",
			CreatedAt: created.Add(time.Minute), Status: submdomain.StatusWrongAnswer, Score: 10, UserDisplayName: "Ada"}
		foreign := submdomain.Record{ID: "s3", UserID: "u2", CourseID: "c1", ExerciseID: "e1",
			CreatedAt: created, Status: submdomain.StatusSolved, Score: 100, UserDisplayName: "Bob", IsBest: true}
		repos.Records.Put(tx, best)
		repos.Records.Put(tx, other)
		repos.Records.Put(tx, foreign)
		repos.Best.Put(tx, best)
		repos.Best.Put(tx, foreign)
		repos.Progress.MergeDisplay(tx, "c1", "u1", "Ada", "https://img/ada.png")
		repos.Progress.MergeDisplay(tx, "c2", "u1", "Ada", "https://img/ada.png")
		repos.Progress.MergeDisplay(tx, "c1", "u2", "Bob", "")
		return nil
	}))
}

func TestUpdateUserInfoPropagates(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemStore()
	seed(t, store)
	repos := submrepo.New()
	srvc := usersrvc.NewUserService(store)

	err := srvc.UpdateUserInfo(ctx, "u1", usersrvc.UserInfoUpdate{DisplayName: strPtr("Ada L.")})
	require.NoError(t, err)

	prof, err := srvc.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", prof.DisplayName)
	assert.Equal(t, "https://img/ada.png", prof.ImageUrl)

	for _, cid := range []string{"c1", "c2"} {
		p, err := repos.Progress.Get(ctx, store, cid, "u1")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "Ada L.", p.UserDisplayName)
		assert.Equal(t, "https://img/ada.png", p.UserImageUrl)
	}
	for _, sid := range []string{"s1", "s2"} {
		rec, err := repos.Records.Get(ctx, store, sid)
		require.NoError(t, err)
		assert.Equal(t, "Ada L.", rec.UserDisplayName)
	}
	best, err := repos.Best.Get(ctx, store, "e1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", best.UserDisplayName)

	// other users keep their display info
	bob, err := repos.Progress.Get(ctx, store, "c1", "u2")
	require.NoError(t, err)
	assert.Equal(t, "Bob", bob.UserDisplayName)
	rec, err := repos.Records.Get(ctx, store, "s3")
	require.NoError(t, err)
	assert.Equal(t, "Bob", rec.UserDisplayName)
}

func TestUpdateUserInfoRejects(t *testing.T) {
	ctx := context.Background()
	srvc := usersrvc.NewUserService(docstore.NewMemStore())

	err := srvc.UpdateUserInfo(ctx, "u1", usersrvc.UserInfoUpdate{})
	assert.True(t, srvcerror.HasCode(err, usersrvc.ErrCodeInvalidUserInfo))

	err = srvc.UpdateUserInfo(ctx, "u1", usersrvc.UserInfoUpdate{ImageUrl: strPtr("not a url")})
	assert.True(t, srvcerror.HasCode(err, usersrvc.ErrCodeInvalidUserInfo))

	err = srvc.UpdateUserInfo(ctx, "u1", usersrvc.UserInfoUpdate{DisplayName: strPtr("")})
	assert.True(t, srvcerror.HasCode(err, usersrvc.ErrCodeInvalidUserInfo))
}

func TestGetProfileNotFound(t *testing.T) {
	srvc := usersrvc.NewUserService(docstore.NewMemStore())
	_, err := srvc.GetProfile(context.Background(), "ghost")
	assert.True(t, srvcerror.HasCode(err, usersrvc.ErrCodeUserNotFound))
}
