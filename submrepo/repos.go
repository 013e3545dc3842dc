// Package submrepo maps the engine's entities onto document paths.
// Read methods take a docstore.Reader so they serve both plain reads and
// transactions; write methods that must be atomic take a docstore.Tx.
package submrepo

// Repos bundles the per-entity repositories.
type Repos struct {
	Queue     SubmissionQueue
	Runs      Runs
	Records   Records
	Best      BestPointers
	Sensitive SensitiveRecords
	Courses   Courses
	Exercises Exercises
	Profiles  Profiles
	Progress  Progress
	Metrics   Metrics
	Activity  Activity
	Insights  Insights
}

func New() Repos {
	return Repos{}
}
