package http

import (
	"time"

	"github.com/profound-academy/backend/submdomain"
	"github.com/profound-academy/backend/submrepo"
)

type Submission struct {
	ID                string                `json:"id"`
	UserID            string                `json:"userId"`
	CourseID          string                `json:"courseId"`
	ExerciseID        string                `json:"exerciseId"`
	Language          string                `json:"language"`
	SubmissionFileURL string                `json:"submissionFileURL,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
	IsTestRun         bool                  `json:"isTestRun"`
	TestCases         []submdomain.TestCase `json:"testCases,omitempty"`

	Status       string   `json:"status,omitempty"`
	TestStatuses []string `json:"testStatuses,omitempty"`
	Score        float64  `json:"score"`
	Time         float64  `json:"time"`
	Memory       float64  `json:"memory"`
	Outputs      []string `json:"outputs,omitempty"`
	IsBest       bool     `json:"isBest"`

	UserDisplayName string `json:"userDisplayName,omitempty"`
	UserImageUrl    string `json:"userImageUrl,omitempty"`
	CourseTitle     string `json:"courseTitle,omitempty"`
	ExerciseTitle   string `json:"exerciseTitle,omitempty"`
}

func mapRecord(r submdomain.Record) Submission {
	return Submission{
		ID:                r.ID,
		UserID:            r.UserID,
		CourseID:          r.CourseID,
		ExerciseID:        r.ExerciseID,
		Language:          r.Language,
		SubmissionFileURL: r.SubmissionFileURL,
		CreatedAt:         r.CreatedAt,
		IsTestRun:         r.IsTestRun,
		TestCases:         r.TestCases,
		Status:            r.Status,
		TestStatuses:      r.TestStatuses,
		Score:             r.Score,
		Time:              r.Time,
		Memory:            r.Memory,
		Outputs:           r.Outputs,
		IsBest:            r.IsBest,
		UserDisplayName:   r.UserDisplayName,
		UserImageUrl:      r.UserImageUrl,
		CourseTitle:       r.CourseTitle,
		ExerciseTitle:     r.ExerciseTitle,
	}
}

func mapRecords(rs []submdomain.Record) []Submission {
	res := make([]Submission, 0, len(rs))
	for _, r := range rs {
		res = append(res, mapRecord(r))
	}
	return res
}

func mapQueued(s submdomain.Submission) Submission {
	return Submission{
		ID:                s.ID,
		UserID:            s.UserID,
		CourseID:          s.CourseID,
		ExerciseID:        s.ExerciseID,
		Language:          s.Language,
		SubmissionFileURL: s.SubmissionFileURL,
		CreatedAt:         s.CreatedAt,
		IsTestRun:         s.IsTestRun,
		TestCases:         s.TestCases,
		Status:            submdomain.StatusChecking,
	}
}

type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	ImageUrl    string `json:"imageUrl"`
}

type LevelMetric struct {
	UserID   string         `json:"userId"`
	Level    string         `json:"level"`
	Progress map[string]any `json:"progress"`
}

func mapLevelMetrics(recs []submrepo.MetricRecord) []LevelMetric {
	res := make([]LevelMetric, 0, len(recs))
	for _, r := range recs {
		res = append(res, LevelMetric{UserID: r.UserID, Level: r.Level, Progress: r.Progress})
	}
	return res
}

type Insights struct {
	CourseID    string                        `json:"courseId"`
	Date        string                        `json:"date"`
	Runs        float64                       `json:"runs"`
	Submissions float64                       `json:"submissions"`
	TotalScore  float64                       `json:"totalScore"`
	Solved      float64                       `json:"solved"`
	Exercises   map[string]map[string]float64 `json:"exercises"`
}

func mapInsights(d submrepo.DayInsights) Insights {
	ex := d.Exercises
	if ex == nil {
		ex = map[string]map[string]float64{}
	}
	return Insights{
		CourseID:    d.CourseID,
		Date:        d.Date,
		Runs:        d.Runs,
		Submissions: d.Submitted,
		TotalScore:  d.Score,
		Solved:      d.Solved,
		Exercises:   ex,
	}
}
