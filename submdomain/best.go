package submdomain

// BestWrite sets the isBest flag of one submission record.
type BestWrite struct {
	SubmissionID string
	IsBest       bool
}

type BestDecision struct {
	CandidateIsBest bool
	// Demoted is the id of the previous best when the candidate replaces it.
	Demoted string
	// Promoted is set when the candidate loses its own best flag to another
	// record of the user.
	Promoted *Record
	// Writes lists the flag changes in the order they must be applied:
	// the demotion first, then the promotion.
	Writes []BestWrite
}

// SelectBest decides whether candidate becomes the best submission given
// the current best, nil if there is none. Higher score wins, on equal
// score the faster submission wins. A candidate that is already the
// current best (repeated callback) stays best; if it comes back with a
// different result use Reelect instead.
func SelectBest(candidate Record, current *Record) BestDecision {
	switch {
	case current == nil, current.ID == candidate.ID:
		return BestDecision{
			CandidateIsBest: true,
			Writes:          []BestWrite{{SubmissionID: candidate.ID, IsBest: true}},
		}
	case beats(candidate, *current):
		return BestDecision{
			CandidateIsBest: true,
			Demoted:         current.ID,
			Writes: []BestWrite{
				{SubmissionID: current.ID, IsBest: false},
				{SubmissionID: candidate.ID, IsBest: true},
			},
		}
	default:
		return BestDecision{
			Writes: []BestWrite{{SubmissionID: candidate.ID, IsBest: false}},
		}
	}
}

// Reelect decides again when the current best is judged a second time with
// a different result. The candidate competes with the user's other records
// for the exercise and keeps the flag on a tie.
func Reelect(candidate Record, records []Record) BestDecision {
	winner := candidate
	for _, r := range records {
		if r.ID != candidate.ID && beats(r, winner) {
			winner = r
		}
	}
	if winner.ID == candidate.ID {
		return BestDecision{
			CandidateIsBest: true,
			Writes:          []BestWrite{{SubmissionID: candidate.ID, IsBest: true}},
		}
	}
	winner.IsBest = true
	return BestDecision{
		Promoted: &winner,
		Writes: []BestWrite{
			{SubmissionID: candidate.ID, IsBest: false},
			{SubmissionID: winner.ID, IsBest: true},
		},
	}
}

// SameRank reports whether neither record beats the other.
func SameRank(a, b Record) bool {
	return !beats(a, b) && !beats(b, a)
}

func beats(a, b Record) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Time < b.Time
}
