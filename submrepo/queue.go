package submrepo

import (
	"context"
	"fmt"

	"github.com/profound-academy/backend/docstore"
	"github.com/profound-academy/backend/submdomain"
)

// SubmissionQueue holds enqueued submissions until the judge calls back.
type SubmissionQueue struct{}

func (SubmissionQueue) Ref(userID, submissionID string) docstore.Ref {
	return docstore.Collection("submissionQueue", userID, "private").Doc(submissionID)
}

// Get returns nil if the submission was never enqueued.
func (q SubmissionQueue) Get(ctx context.Context, rd docstore.Reader, userID, submissionID string) (*submdomain.Submission, error) {
	doc, err := rd.Get(ctx, q.Ref(userID, submissionID))
	if err != nil {
		return nil, fmt.Errorf("failed to get queued submission: %w", err)
	}
	if !doc.Exists() {
		return nil, nil
	}
	var subm submdomain.Submission
	if err := doc.DataTo(&subm); err != nil {
		return nil, err
	}
	subm.ID = submissionID
	if subm.UserID == "" {
		subm.UserID = userID
	}
	return &subm, nil
}

func (q SubmissionQueue) Put(ctx context.Context, store docstore.Store, subm submdomain.Submission) error {
	err := store.Set(ctx, q.Ref(subm.UserID, subm.ID), submissionFields(subm))
	if err != nil {
		return fmt.Errorf("failed to enqueue submission: %w", err)
	}
	return nil
}

// Runs holds judged test runs. Test runs never become submission records.
type Runs struct{}

func (Runs) Ref(userID, submissionID string) docstore.Ref {
	return docstore.Collection("runs", userID, "private").Doc(submissionID)
}

func (r Runs) Put(tx docstore.Tx, rec submdomain.Record) {
	tx.Set(r.Ref(rec.UserID, rec.ID), recordFields(rec))
}

func (r Runs) Get(ctx context.Context, rd docstore.Reader, userID, submissionID string) (*submdomain.Record, error) {
	doc, err := rd.Get(ctx, r.Ref(userID, submissionID))
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if !doc.Exists() {
		return nil, nil
	}
	return decodeRecord(doc)
}

// SensitiveRecords keep the source code apart from the public record.
type SensitiveRecords struct{}

func (SensitiveRecords) Ref(submissionID, userID string) docstore.Ref {
	return docstore.Collection("submissions", submissionID, "private").Doc(userID)
}

func (s SensitiveRecords) Put(tx docstore.Tx, submissionID, userID, code, fileURL string) {
	fields := docstore.Fields{"code": code}
	if fileURL != "" {
		fields["submissionFileURL"] = fileURL
	}
	tx.Set(s.Ref(submissionID, userID), fields)
}

// Code returns the stored source code, "" if there is none.
func (s SensitiveRecords) Code(ctx context.Context, rd docstore.Reader, submissionID, userID string) (string, error) {
	doc, err := rd.Get(ctx, s.Ref(submissionID, userID))
	if err != nil {
		return "", fmt.Errorf("failed to get sensitive record: %w", err)
	}
	if !doc.Exists() {
		return "", nil
	}
	code, _ := doc.Data["code"].(string)
	return code, nil
}
