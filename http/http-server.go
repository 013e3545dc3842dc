package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/profound-academy/backend/auth"
	"github.com/profound-academy/backend/ranksrvc"
	"github.com/profound-academy/backend/submsrvc"
	"github.com/profound-academy/backend/usersrvc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	Env            string
	Version        string
	AllowedOrigins []string
	// CallbackKey verifies the tokens on judge result callbacks. Without
	// it every callback is rejected.
	CallbackKey []byte
}

type HttpServer struct {
	submSrvc    *submsrvc.SubmissionSrvc
	userSrvc    *usersrvc.UserService
	rankSrvc    *ranksrvc.RankService
	callbackKey []byte
	router      *chi.Mux
	logger      *slog.Logger
}

func NewHttpServer(
	submSrvc *submsrvc.SubmissionSrvc,
	userSrvc *usersrvc.UserService,
	rankSrvc *ranksrvc.RankService,
	jwtKey []byte,
	opts Options,
) *HttpServer {
	router := chi.NewRouter()

	logger := httplog.NewLogger("profound", httplog.Options{
		LogLevel:         slog.LevelDebug,
		Concise:          true,
		RequestHeaders:   true,
		MessageFieldName: "message",
		Tags: map[string]string{
			"version": opts.Version,
			"env":     opts.Env,
		},
	})
	router.Use(middleware.RequestID)
	router.Use(httplog.RequestLogger(logger))
	router.Use(requestStats)
	router.Use(contextLogger)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           3000,
	}))

	router.Use(auth.GetJwtAuthMiddleware(jwtKey))

	server := &HttpServer{
		submSrvc:    submSrvc,
		userSrvc:    userSrvc,
		rankSrvc:    rankSrvc,
		callbackKey: opts.CallbackKey,
		router:      router,
		logger:      slog.Default().With("module", "http"),
	}

	server.routes()

	return server
}

func (httpserver *HttpServer) Handler() http.Handler {
	return httpserver.router
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (httpserver *HttpServer) Start(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           httpserver.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (httpserver *HttpServer) routes() {
	r := httpserver.router
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/results/{userId}/{submissionId}", httpserver.postResult)
	r.Get("/languages", httpserver.listLanguages)

	r.With(auth.RequireUser).Post("/submissions", httpserver.createSubmission)
	r.Get("/submissions/{submissionId}", httpserver.getSubmission)

	r.Get("/users/{userId}", httpserver.getUser)
	r.With(auth.RequireUser).Put("/users/{userId}", httpserver.updateUser)
	r.With(auth.RequireUser).Get("/users/{userId}/submissions", httpserver.listUserSubmissions)
	r.With(auth.RequireUser).Get("/users/{userId}/runs/{submissionId}", httpserver.getRun)
	r.Get("/users/{userId}/activity/{year}", httpserver.getActivity)

	r.Get("/courses/{courseId}/ranking", httpserver.getRanking)
	r.Get("/courses/{courseId}/levels/{level}/{metric}", httpserver.getLevelMetrics)
	r.Get("/courses/{courseId}/insights/{date}", httpserver.getInsights)
	r.Get("/exercises/{exerciseId}/best", httpserver.getLeaderboard)
}
