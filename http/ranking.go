package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/profound-academy/backend/httpjson"
	"github.com/profound-academy/backend/ranksrvc"
	"github.com/profound-academy/backend/srvcerror"
	"github.com/profound-academy/backend/submdomain"
)

func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, srvcerror.New(ranksrvc.ErrCodeInvalidQuery, "limit must be a number").
			SetHttpStatusCode(http.StatusBadRequest).
			SetDebug(err)
	}
	return n, nil
}

func (httpserver *HttpServer) getRanking(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		httpjson.HandleError(httpserver.logger, w, err)
		return
	}
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = submdomain.MetricScore
	}
	ranking, err := httpserver.rankSrvc.Ranking(r.Context(), chi.URLParam(r, "courseId"), metric, limit)
	if err != nil {
		httpjson.HandleError(httpserver.logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, ranking)
}

func (httpserver *HttpServer) getLevelMetrics(w http.ResponseWriter, r *http.Request) {
	recs, err := httpserver.rankSrvc.LevelMetrics(r.Context(),
		chi.URLParam(r, "courseId"), chi.URLParam(r, "level"), chi.URLParam(r, "metric"))
	if err != nil {
		httpjson.HandleError(httpserver.logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, mapLevelMetrics(recs))
}

func (httpserver *HttpServer) getInsights(w http.ResponseWriter, r *http.Request) {
	ins, err := httpserver.rankSrvc.Insights(r.Context(), chi.URLParam(r, "courseId"), chi.URLParam(r, "date"))
	if err != nil {
		httpjson.HandleError(httpserver.logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, mapInsights(*ins))
}

func (httpserver *HttpServer) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		httpjson.HandleError(httpserver.logger, w, err)
		return
	}
	recs, err := httpserver.rankSrvc.Leaderboard(r.Context(), chi.URLParam(r, "exerciseId"), limit)
	if err != nil {
		httpjson.HandleError(httpserver.logger, w, err)
		return
	}
	httpjson.WriteSuccessJson(w, mapRecords(recs))
}
