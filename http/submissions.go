package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/profound-academy/backend/auth"
	"github.com/profound-academy/backend/httpjson"
	"github.com/profound-academy/backend/planglist"
	"github.com/profound-academy/backend/srvcerror"
	"github.com/profound-academy/backend/submdomain"
	"github.com/profound-academy/backend/submsrvc"
)

func (httpserver *HttpServer) createSubmission(w http.ResponseWriter, r *http.Request) {
	type createSubmissionRequest struct {
		CourseID   string                `json:"courseId"`
		ExerciseID string                `json:"exerciseId"`
		Code       string                `json:"code"`
		Language   string                `json:"language"`
		IsTestRun  bool                  `json:"isTestRun"`
		TestCases  []submdomain.TestCase `json:"testCases"`
	}

	var request createSubmissionRequest
	if err := httpjson.DecodeBody(r, &request); err != nil {
		httpjson.HandleError(httpserver.logger, w, err)
		return
	}

	claims := auth.ClaimsFromContext(r.Context())
	subm, err := httpserver.submSrvc.Enqueue(r.Context(), submsrvc.EnqueueParams{
		UserID:     claims.UserID(),
		CourseID:   request.CourseID,
		ExerciseID: request.ExerciseID,
		Code:       request.Code,
		Language:   request.Language,
		IsTestRun:  request.IsTestRun,
		TestCases:  request.TestCases,
	})
	if err != nil {
		httpjson.HandleError(httpserver.logger, w, err)
		return
	}

	httpjson.WriteSuccessJsonStatus(w, http.StatusCreated, mapQueued(*subm))
}

func (httpserver *HttpServer) getSubmission(w http.ResponseWriter, r *http.Request) {
	rec, err := httpserver.submSrvc.GetRecord(r.Context(), chi.URLParam(r, "submissionId"))
	if err != nil {
		httpjson.HandleError(httpserver.logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, mapRecord(*rec))
}

func (httpserver *HttpServer) listUserSubmissions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if err := requireSelf(r, userID); err != nil {
		httpjson.HandleError(httpserver.logger, w, err)
		return
	}
	recs, err := httpserver.submSrvc.ListUserRecords(r.Context(), userID)
	if err != nil {
		httpjson.HandleError(httpserver.logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, mapRecords(recs))
}

func (httpserver *HttpServer) getRun(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if err := requireSelf(r, userID); err != nil {
		httpjson.HandleError(httpserver.logger, w, err)
		return
	}
	run, err := httpserver.submSrvc.GetRun(r.Context(), userID, chi.URLParam(r, "submissionId"))
	if err != nil {
		httpjson.HandleError(httpserver.logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, mapRecord(*run))
}

func requireSelf(r *http.Request, userID string) error {
	if auth.ClaimsFromContext(r.Context()).UserID() != userID {
		return srvcerror.ErrForbidden("only the user themselves may do this")
	}
	return nil
}

func (httpserver *HttpServer) listLanguages(w http.ResponseWriter, r *http.Request) {
	httpjson.WriteSuccessJson(w, planglist.List())
}
