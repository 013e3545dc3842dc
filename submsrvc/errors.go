package submsrvc

import (
	"fmt"
	"net/http"

	"github.com/profound-academy/backend/srvcerror"
)

const ErrCodeInvalidResult = "invalid_result"

func ErrInvalidResult() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeInvalidResult,
		"judge result is missing or malformed",
	).SetHttpStatusCode(http.StatusBadRequest)
}

const ErrCodeSubmissionNotFound = "submission_not_found"

func ErrSubmissionNotFound(submissionID string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeSubmissionNotFound,
		fmt.Sprintf("submission %s was not found", submissionID),
	).SetHttpStatusCode(http.StatusNotFound)
}

const ErrCodeDependencyMissing = "dependency_missing"

func ErrCourseMissing(courseID string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeDependencyMissing,
		fmt.Sprintf("course %s does not exist", courseID),
	).SetHttpStatusCode(http.StatusUnprocessableEntity)
}

func ErrExerciseMissing(courseID, exerciseID string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeDependencyMissing,
		fmt.Sprintf("exercise %s does not exist in course %s", exerciseID, courseID),
	).SetHttpStatusCode(http.StatusUnprocessableEntity)
}

const ErrCodeInvariantViolation = "invariant_violation"

func ErrDuplicateBest(userID, exerciseID string, n int) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeInvariantViolation,
		fmt.Sprintf("found %d best submissions of user %s for exercise %s", n, userID, exerciseID),
	).SetHttpStatusCode(http.StatusInternalServerError)
}

const ErrCodeInvalidSubmission = "invalid_submission"

func ErrInvalidSubmission() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeInvalidSubmission,
		"submission is missing required fields",
	).SetHttpStatusCode(http.StatusBadRequest)
}

func ErrFinalSubmissionWithTestCases() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeInvalidSubmission,
		"final submissions cannot have test cases",
	).SetHttpStatusCode(http.StatusBadRequest)
}
