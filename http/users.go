package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/profound-academy/backend/httpjson"
	"github.com/profound-academy/backend/usersrvc"
)

func (httpserver *HttpServer) getUser(w http.ResponseWriter, r *http.Request) {
	prof, err := httpserver.userSrvc.GetProfile(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		httpjson.HandleError(httpserver.logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, User{ID: prof.ID, DisplayName: prof.DisplayName, ImageUrl: prof.ImageUrl})
}

func (httpserver *HttpServer) updateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if err := requireSelf(r, userID); err != nil {
		httpjson.HandleError(httpserver.logger, w, err)
		return
	}

	var upd usersrvc.UserInfoUpdate
	if err := httpjson.DecodeBody(r, &upd); err != nil {
		httpjson.HandleError(httpserver.logger, w, err)
		return
	}
	if err := httpserver.userSrvc.UpdateUserInfo(r.Context(), userID, upd); err != nil {
		httpjson.HandleError(httpserver.logger, w, err)
		return
	}

	prof, err := httpserver.userSrvc.GetProfile(r.Context(), userID)
	if err != nil {
		httpjson.HandleError(httpserver.logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, User{ID: prof.ID, DisplayName: prof.DisplayName, ImageUrl: prof.ImageUrl})
}

func (httpserver *HttpServer) getActivity(w http.ResponseWriter, r *http.Request) {
	act, err := httpserver.rankSrvc.Activity(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "year"))
	if err != nil {
		httpjson.HandleError(httpserver.logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, act)
}
