package submrepo

import (
	"github.com/profound-academy/backend/docstore"
	"github.com/profound-academy/backend/submdomain"
)

func stringList(ss []string) []any {
	if ss == nil {
		return nil
	}
	res := make([]any, len(ss))
	for i, s := range ss {
		res[i] = s
	}
	return res
}

func testCaseList(tcs []submdomain.TestCase) []any {
	res := make([]any, len(tcs))
	for i, tc := range tcs {
		res[i] = map[string]any{"input": tc.Input, "target": tc.Target}
	}
	return res
}

func submissionFields(s submdomain.Submission) docstore.Fields {
	f := docstore.Fields{
		"id":         s.ID,
		"userId":     s.UserID,
		"courseId":   s.CourseID,
		"exerciseId": s.ExerciseID,
		"language":   s.Language,
		"code":       s.Code,
		"createdAt":  s.CreatedAt,
		"isTestRun":  s.IsTestRun,
	}
	if s.SubmissionFileURL != "" {
		f["submissionFileURL"] = s.SubmissionFileURL
	}
	if len(s.TestCases) > 0 {
		f["testCases"] = testCaseList(s.TestCases)
	}
	return f
}

func recordFields(r submdomain.Record) docstore.Fields {
	f := docstore.Fields{
		"id":              r.ID,
		"userId":          r.UserID,
		"courseId":        r.CourseID,
		"exerciseId":      r.ExerciseID,
		"language":        r.Language,
		"createdAt":       r.CreatedAt,
		"isTestRun":       r.IsTestRun,
		"status":          r.Status,
		"score":           r.Score,
		"time":            r.Time,
		"memory":          r.Memory,
		"userDisplayName": r.UserDisplayName,
		"userImageUrl":    r.UserImageUrl,
		"courseTitle":     r.CourseTitle,
		"exerciseTitle":   r.ExerciseTitle,
		"isBest":          r.IsBest,
	}
	if r.SubmissionFileURL != "" {
		f["submissionFileURL"] = r.SubmissionFileURL
	}
	if len(r.TestCases) > 0 {
		f["testCases"] = testCaseList(r.TestCases)
	}
	if r.TestStatuses != nil {
		f["testStatuses"] = stringList(r.TestStatuses)
	}
	if r.Outputs != nil {
		f["outputs"] = stringList(r.Outputs)
	}
	return f
}

func decodeRecord(doc *docstore.Doc) (*submdomain.Record, error) {
	var rec submdomain.Record
	if err := doc.DataTo(&rec); err != nil {
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = doc.Ref.ID
	}
	return &rec, nil
}

func decodeRecords(docs []*docstore.Doc) ([]submdomain.Record, error) {
	res := make([]submdomain.Record, 0, len(docs))
	for _, d := range docs {
		rec, err := decodeRecord(d)
		if err != nil {
			return nil, err
		}
		res = append(res, *rec)
	}
	return res, nil
}
