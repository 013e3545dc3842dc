package submrepo

import (
	"context"
	"fmt"

	"github.com/profound-academy/backend/docstore"
	"github.com/profound-academy/backend/submdomain"
)

type Records struct{}

// Indexes are the record lookups a store should serve per user instead of
// from the whole submissions collection.
func (Records) Indexes() []docstore.Index {
	return []docstore.Index{
		{Collection: "submissions", Fields: []string{"userId", "exerciseId"}},
		{Collection: "submissions", Fields: []string{"userId"}},
	}
}

func (Records) Ref(submissionID string) docstore.Ref {
	return docstore.Collection("submissions").Doc(submissionID)
}

func (r Records) Get(ctx context.Context, rd docstore.Reader, submissionID string) (*submdomain.Record, error) {
	doc, err := rd.Get(ctx, r.Ref(submissionID))
	if err != nil {
		return nil, fmt.Errorf("failed to get submission record: %w", err)
	}
	if !doc.Exists() {
		return nil, nil
	}
	return decodeRecord(doc)
}

// FindBest lists the records flagged best for the user and exercise.
// More than one means the records are corrupt; the caller decides.
func (r Records) FindBest(ctx context.Context, rd docstore.Reader, userID, exerciseID string) ([]submdomain.Record, error) {
	q := docstore.Collection("submissions").Query().
		Where("isBest", true).
		Where("userId", userID).
		Where("exerciseId", exerciseID)
	docs, err := rd.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query best submissions: %w", err)
	}
	return decodeRecords(docs)
}

// ListForExercise lists every record of the user for the exercise.
func (r Records) ListForExercise(ctx context.Context, rd docstore.Reader, userID, exerciseID string) ([]submdomain.Record, error) {
	q := docstore.Collection("submissions").Query().
		Where("userId", userID).
		Where("exerciseId", exerciseID)
	docs, err := rd.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercise submissions: %w", err)
	}
	return decodeRecords(docs)
}

func (r Records) ListByUser(ctx context.Context, rd docstore.Reader, userID string) ([]submdomain.Record, error) {
	q := docstore.Collection("submissions").Query().
		Where("userId", userID).
		OrderBy("createdAt", docstore.Desc)
	docs, err := rd.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list user submissions: %w", err)
	}
	return decodeRecords(docs)
}

func (r Records) Put(tx docstore.Tx, rec submdomain.Record) {
	tx.Set(r.Ref(rec.ID), recordFields(rec))
}

func (r Records) SetIsBest(tx docstore.Tx, submissionID string, isBest bool) {
	tx.Set(r.Ref(submissionID), docstore.Fields{"isBest": isBest}, docstore.Merge())
}

func (r Records) MergeDisplay(ctx context.Context, store docstore.Store, submissionID string, display docstore.Fields) error {
	return store.Set(ctx, r.Ref(submissionID), display, docstore.Merge())
}

// BestPointers keep a copy of the current best record per exercise and
// user. Every best decision reads the pointer, so concurrent decisions for
// the same pair always conflict on it.
type BestPointers struct{}

func (BestPointers) Ref(exerciseID, userID string) docstore.Ref {
	return docstore.Collection("bestSubmissions", exerciseID, "users").Doc(userID)
}

func (b BestPointers) Get(ctx context.Context, rd docstore.Reader, exerciseID, userID string) (*submdomain.Record, error) {
	doc, err := rd.Get(ctx, b.Ref(exerciseID, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get best pointer: %w", err)
	}
	if !doc.Exists() {
		return nil, nil
	}
	return decodeRecord(doc)
}

func (b BestPointers) Put(tx docstore.Tx, rec submdomain.Record) {
	tx.Set(b.Ref(rec.ExerciseID, rec.UserID), recordFields(rec))
}

// Leaderboard lists solved best submissions of an exercise, highest score
// first, then fastest, then smallest memory.
func (b BestPointers) Leaderboard(ctx context.Context, rd docstore.Reader, exerciseID string, limit int) ([]submdomain.Record, error) {
	q := docstore.Collection("bestSubmissions", exerciseID, "users").Query().
		Where("status", submdomain.StatusSolved).
		OrderBy("score", docstore.Desc).
		OrderBy("time", docstore.Asc).
		OrderBy("memory", docstore.Asc).
		Limit(limit)
	docs, err := rd.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query best submissions: %w", err)
	}
	return decodeRecords(docs)
}
