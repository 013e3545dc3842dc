package submdomain

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	StatusSolved            = "Solved"
	StatusWrongAnswer       = "Wrong answer"
	StatusTimeLimitExceeded = "Time limit exceeded"
	StatusRuntimeError      = "Runtime error"
	StatusCompilationError  = "Compilation error"
	StatusChecking          = "Checking"
	StatusUnavailable       = "Unavailable"
)

type TestCase struct {
	Input  string `json:"input" doc:"input"`
	Target string `json:"target" doc:"target"`
}

// Submission is the enqueued, not yet judged submission.
type Submission struct {
	ID                string     `json:"id" doc:"id"`
	UserID            string     `json:"userId" doc:"userId"`
	CourseID          string     `json:"courseId" doc:"courseId"`
	ExerciseID        string     `json:"exerciseId" doc:"exerciseId"`
	Language          string     `json:"language" doc:"language"`
	Code              string     `json:"code,omitempty" doc:"code"`
	SubmissionFileURL string     `json:"submissionFileURL,omitempty" doc:"submissionFileURL"`
	CreatedAt         time.Time  `json:"createdAt" doc:"createdAt"`
	IsTestRun         bool       `json:"isTestRun" doc:"isTestRun"`
	TestCases         []TestCase `json:"testCases,omitempty" doc:"testCases"`
}

// JudgeStatus is either one overall status or one status per test case.
type JudgeStatus struct {
	Overall string
	PerTest []string
}

func (s JudgeStatus) IsZero() bool {
	return s.Overall == "" && len(s.PerTest) == 0
}

// Reduce returns the single overall status.
func (s JudgeStatus) Reduce() string {
	if s.PerTest != nil {
		return ReduceStatus(s.PerTest)
	}
	return s.Overall
}

func (s *JudgeStatus) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = JudgeStatus{Overall: single}
		return nil
	}
	var perTest []string
	if err := json.Unmarshal(data, &perTest); err != nil {
		return fmt.Errorf("status must be a string or a list of strings: %w", err)
	}
	if perTest == nil {
		perTest = []string{}
	}
	*s = JudgeStatus{PerTest: perTest}
	return nil
}

func (s JudgeStatus) MarshalJSON() ([]byte, error) {
	if s.PerTest != nil {
		return json.Marshal(s.PerTest)
	}
	return json.Marshal(s.Overall)
}

// JudgeResult is the grading outcome posted back by the judge.
type JudgeResult struct {
	Status  JudgeStatus `json:"status"`
	Score   float64     `json:"score" validate:"gte=0,lte=100"`
	Time    float64     `json:"time" validate:"gte=0"`   // seconds
	Memory  float64     `json:"memory" validate:"gte=0"` // bytes
	Outputs []string    `json:"outputs,omitempty"`
}

// Record is a judged submission: the submission merged with its result
// and display fields. The source code lives in the sensitive record.
type Record struct {
	ID                string     `doc:"id"`
	UserID            string     `doc:"userId"`
	CourseID          string     `doc:"courseId"`
	ExerciseID        string     `doc:"exerciseId"`
	Language          string     `doc:"language"`
	SubmissionFileURL string     `doc:"submissionFileURL"`
	CreatedAt         time.Time  `doc:"createdAt"`
	IsTestRun         bool       `doc:"isTestRun"`
	TestCases         []TestCase `doc:"testCases"`

	Status       string   `doc:"status"`
	TestStatuses []string `doc:"testStatuses"`
	Score        float64  `doc:"score"`
	Time         float64  `doc:"time"`
	Memory       float64  `doc:"memory"`
	Outputs      []string `doc:"outputs"`

	UserDisplayName string `doc:"userDisplayName"`
	UserImageUrl    string `doc:"userImageUrl"`
	CourseTitle     string `doc:"courseTitle"`
	ExerciseTitle   string `doc:"exerciseTitle"`

	IsBest bool `doc:"isBest"`
}

// NewRecord merges the submission with the judge result. The status is
// reduced to one overall value; per-test statuses are kept alongside.
func NewRecord(subm Submission, res JudgeResult) Record {
	return Record{
		ID:                subm.ID,
		UserID:            subm.UserID,
		CourseID:          subm.CourseID,
		ExerciseID:        subm.ExerciseID,
		Language:          subm.Language,
		SubmissionFileURL: subm.SubmissionFileURL,
		CreatedAt:         subm.CreatedAt,
		IsTestRun:         subm.IsTestRun,
		TestCases:         subm.TestCases,
		Status:            res.Status.Reduce(),
		TestStatuses:      res.Status.PerTest,
		Score:             res.Score,
		Time:              res.Time,
		Memory:            res.Memory,
		Outputs:           res.Outputs,
	}
}

func (r Record) IsSolved() bool {
	return r.Status == StatusSolved
}

type Course struct {
	ID       string    `doc:"id"`
	Title    string    `doc:"title"`
	FreezeAt time.Time `doc:"freezeAt"` // zero means never frozen
}

type Exercise struct {
	ID             string  `doc:"id"`
	Title          string  `doc:"title"`
	Order          float64 `doc:"order"`
	MemoryLimit    float64 `doc:"memoryLimit"`
	TimeLimit      float64 `doc:"timeLimit"`
	OutputLimit    float64 `doc:"outputLimit"`
	ComparisonMode string  `doc:"comparisonMode"`
	FloatPrecision float64 `doc:"floatPrecision"`
}

type Profile struct {
	ID          string `doc:"id"`
	DisplayName string `doc:"displayName"`
	ImageUrl    string `doc:"imageUrl"`
}
