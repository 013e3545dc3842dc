package ranksrvc

import (
	"fmt"
	"net/http"

	"github.com/profound-academy/backend/srvcerror"
)

const ErrCodeInvalidQuery = "invalid_query"

func newErrInvalidQuery(format string, args ...any) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeInvalidQuery,
		fmt.Sprintf(format, args...),
	).SetHttpStatusCode(http.StatusBadRequest)
}
