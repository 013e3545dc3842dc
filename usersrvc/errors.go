package usersrvc

import (
	"fmt"
	"net/http"

	"github.com/profound-academy/backend/srvcerror"
)

const ErrCodeUserNotFound = "user_not_found"

func newErrUserNotFound(userID string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeUserNotFound,
		fmt.Sprintf("user %s was not found", userID),
	).SetHttpStatusCode(http.StatusNotFound)
}

const ErrCodeInvalidUserInfo = "invalid_user_info"

func newErrInvalidUserInfo() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeInvalidUserInfo,
		"display name or image url is invalid",
	).SetHttpStatusCode(http.StatusBadRequest)
}

func newErrNothingToUpdate() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeInvalidUserInfo,
		"neither display name nor image url was given",
	).SetHttpStatusCode(http.StatusBadRequest)
}
