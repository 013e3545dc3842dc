package planglist

import (
	"fmt"
	"net/http"

	"github.com/profound-academy/backend/srvcerror"
)

const ErrCodeInvalidProgLang = "invalid_programming_language"

func ErrInvalidProgLang(id string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeInvalidProgLang,
		fmt.Sprintf("programming language %q is not supported", id),
	).SetHttpStatusCode(http.StatusBadRequest)
}
