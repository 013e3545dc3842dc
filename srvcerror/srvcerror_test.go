package srvcerror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/profound-academy/backend/srvcerror"
	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	cause := errors.New("disk on fire")
	err := srvcerror.New("some_code", "something failed").
		SetHttpStatusCode(http.StatusConflict).
		SetDebug(cause)
	wrapped := fmt.Errorf("processing: %w", err)

	assert.True(t, srvcerror.HasCode(wrapped, "some_code"))
	assert.False(t, srvcerror.HasCode(wrapped, "other_code"))
	assert.False(t, srvcerror.HasCode(cause, "some_code"))
	assert.Equal(t, "some_code", srvcerror.Code(wrapped))
	assert.Equal(t, "", srvcerror.Code(cause))
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, http.StatusConflict, err.HttpStatusCode())
	assert.Equal(t, "something failed", err.Error())
}

func TestDefaultStatus(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, srvcerror.New("x", "y").HttpStatusCode())
	assert.Equal(t, http.StatusUnauthorized, srvcerror.ErrUnauthorized("no token").HttpStatusCode())
	assert.Equal(t, http.StatusForbidden, srvcerror.ErrForbidden("not yours").HttpStatusCode())
}
