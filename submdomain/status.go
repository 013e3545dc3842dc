package submdomain

// ReduceStatus folds per-test statuses into one. Any status other than
// Solved overrides Solved, the last such status wins. No statuses at all
// reduce to Solved.
func ReduceStatus(statuses []string) string {
	res := StatusSolved
	for _, s := range statuses {
		if s != StatusSolved {
			res = s
		}
	}
	return res
}
