package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/profound-academy/backend/auth"
	"github.com/profound-academy/backend/httpjson"
	"github.com/profound-academy/backend/logger"
	"github.com/profound-academy/backend/srvcerror"
	"github.com/profound-academy/backend/submdomain"
	"github.com/profound-academy/backend/submsrvc"
)

// postResult is the judge callback. The token query parameter must have
// been issued for this user and submission.
func (httpserver *HttpServer) postResult(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	submissionID := chi.URLParam(r, "submissionId")
	ctx := logger.With(r.Context(), "route", "result")
	log := logger.FromContext(ctx)

	token := r.URL.Query().Get("token")
	if err := auth.VerifyCallback(httpserver.callbackKey, token, userID, submissionID); err != nil {
		httpjson.HandleError(log, w, srvcerror.ErrUnauthorized("invalid callback token").SetDebug(err))
		return
	}

	var res *submdomain.JudgeResult
	if err := httpjson.DecodeBody(r, &res); err != nil {
		httpjson.HandleError(log, w, submsrvc.ErrInvalidResult().SetDebug(err))
		return
	}

	if err := httpserver.submSrvc.ProcessResult(ctx, res, userID, submissionID); err != nil {
		httpjson.HandleError(log, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, map[string]string{"submissionId": submissionID})
}
