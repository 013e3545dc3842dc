package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/profound-academy/backend/auth"
	"github.com/profound-academy/backend/docstore"
	backendhttp "github.com/profound-academy/backend/http"
	"github.com/profound-academy/backend/planglist"
	"github.com/profound-academy/backend/ranksrvc"
	"github.com/profound-academy/backend/srvcerror"
	"github.com/profound-academy/backend/submdomain"
	"github.com/profound-academy/backend/submrepo"
	"github.com/profound-academy/backend/submsrvc"
	"github.com/profound-academy/backend/usersrvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jwtKey      = []byte("test")
	callbackKey = []byte("callback")
	now         = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
)

type response struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	ErrCode string          `json:"code"`
	ErrMsg  string          `json:"message"`
}

func setup(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	store := docstore.NewMemStore(docstore.WithMaxAttempts(50))
	repos := submrepo.New()
	require.NoError(t, repos.Courses.Put(ctx, store, submdomain.Course{ID: "c1", Title: "Intro"}))
	require.NoError(t, repos.Exercises.Put(ctx, store, "c1", submdomain.Exercise{ID: "e1", Title: "Sum", Order: 1.01}))
	require.NoError(t, repos.Profiles.Merge(ctx, store, "u1", docstore.Fields{"displayName": "Ada"}))

	n := 0
	submSrvc := submsrvc.NewSubmSrvc(store,
		submsrvc.WithClock(func() time.Time { return now }),
		submsrvc.WithIDGenerator(func() string {
			n++
			return "s" + string(rune('0'+n))
		}))
	server := backendhttp.NewHttpServer(submSrvc,
		usersrvc.NewUserService(store),
		ranksrvc.NewRankService(store),
		jwtKey, backendhttp.Options{Env: "test", CallbackKey: callbackKey})
	return server.Handler()
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.GenerateJWT(userID, "", time.Hour, jwtKey)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, h http.Handler, method, path, tok string, body any) (int, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp response
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	}
	return rec.Code, resp
}

func resultPath(t *testing.T, userID, submissionID string) string {
	t.Helper()
	tok, err := auth.SignCallback(callbackKey, userID, submissionID)
	require.NoError(t, err)
	return "/results/" + userID + "/" + submissionID + "?token=" + tok
}

func submit(t *testing.T, h http.Handler) string {
	t.Helper()
	code, resp := do(t, h, http.MethodPost, "/submissions", token(t, "u1"), map[string]any{
		"courseId": "c1", "exerciseId": "e1", "code": "print(3)", "language": "python",
	})
	require.Equal(t, http.StatusCreated, code, resp.ErrMsg)
	var subm backendhttp.Submission
	require.NoError(t, json.Unmarshal(resp.Data, &subm))
	assert.Equal(t, submdomain.StatusChecking, subm.Status)
	return subm.ID
}

func TestResultCallbackFlow(t *testing.T) {
	h := setup(t)
	id := submit(t, h)

	code, resp := do(t, h, http.MethodPost, resultPath(t, "u1", id), "", map[string]any{
		"status": []string{"Solved", "Solved"}, "score": 100, "time": 0.2, "memory": 1024,
	})
	require.Equal(t, http.StatusOK, code, resp.ErrMsg)

	code, resp = do(t, h, http.MethodGet, "/submissions/"+id, "", nil)
	require.Equal(t, http.StatusOK, code)
	var rec backendhttp.Submission
	require.NoError(t, json.Unmarshal(resp.Data, &rec))
	assert.Equal(t, submdomain.StatusSolved, rec.Status)
	assert.Equal(t, []string{"Solved", "Solved"}, rec.TestStatuses)
	assert.True(t, rec.IsBest)
	assert.Equal(t, "Ada", rec.UserDisplayName)

	code, resp = do(t, h, http.MethodGet, "/courses/c1/ranking?limit=10", "", nil)
	require.Equal(t, http.StatusOK, code)
	var ranking []ranksrvc.RankEntry
	require.NoError(t, json.Unmarshal(resp.Data, &ranking))
	require.Len(t, ranking, 1)
	assert.Equal(t, "u1", ranking[0].UserID)
	assert.Equal(t, 100.0, ranking[0].Value)

	code, resp = do(t, h, http.MethodGet, "/courses/c1/ranking?metric=solved", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &ranking))
	require.Len(t, ranking, 1)
	assert.Equal(t, 1.0, ranking[0].Value)

	code, resp = do(t, h, http.MethodGet, "/courses/c1/levels/1/score", "", nil)
	require.Equal(t, http.StatusOK, code)
	var levels []backendhttp.LevelMetric
	require.NoError(t, json.Unmarshal(resp.Data, &levels))
	require.Len(t, levels, 1)
	assert.Equal(t, 100.0, levels[0].Progress["e1"])

	code, resp = do(t, h, http.MethodGet, "/courses/c1/insights/2024-03-01", "", nil)
	require.Equal(t, http.StatusOK, code)
	var ins backendhttp.Insights
	require.NoError(t, json.Unmarshal(resp.Data, &ins))
	assert.Equal(t, 1.0, ins.Submissions)
	assert.Equal(t, 1.0, ins.Solved)

	code, resp = do(t, h, http.MethodGet, "/exercises/e1/best", "", nil)
	require.Equal(t, http.StatusOK, code)
	var best []backendhttp.Submission
	require.NoError(t, json.Unmarshal(resp.Data, &best))
	require.Len(t, best, 1)
	assert.Equal(t, id, best[0].ID)

	code, resp = do(t, h, http.MethodGet, "/users/u1/activity/2024", "", nil)
	require.Equal(t, http.StatusOK, code)
	var act map[string]float64
	require.NoError(t, json.Unmarshal(resp.Data, &act))
	assert.Equal(t, map[string]float64{"2024-03-01": 1}, act)

	code, resp = do(t, h, http.MethodGet, "/users/u1/submissions", token(t, "u1"), nil)
	require.Equal(t, http.StatusOK, code)
	var list []backendhttp.Submission
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list, 1)
}

func TestResultCallbackErrors(t *testing.T) {
	h := setup(t)
	id := submit(t, h)

	req := httptest.NewRequest(http.MethodPost, resultPath(t, "u1", id), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	code, resp := do(t, h, http.MethodPost, resultPath(t, "u1", id), "", map[string]any{
		"status": "Solved", "score": 140,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, submsrvc.ErrCodeInvalidResult, resp.ErrCode)

	code, resp = do(t, h, http.MethodPost, resultPath(t, "u1", "missing"), "", map[string]any{
		"status": "Solved", "score": 100,
	})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, submsrvc.ErrCodeSubmissionNotFound, resp.ErrCode)
}

func TestResultCallbackRequiresToken(t *testing.T) {
	h := setup(t)
	id := submit(t, h)
	body := map[string]any{"status": "Solved", "score": 100}

	code, resp := do(t, h, http.MethodPost, "/results/u1/"+id, "", body)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, srvcerror.ErrCodeUnauthorized, resp.ErrCode)

	// a token issued for another submission does not carry over
	other, err := auth.SignCallback(callbackKey, "u1", "s9")
	require.NoError(t, err)
	code, _ = do(t, h, http.MethodPost, "/results/u1/"+id+"?token="+other, "", body)
	assert.Equal(t, http.StatusUnauthorized, code)

	// neither does a login token of the submitting user
	code, _ = do(t, h, http.MethodPost, "/results/u1/"+id+"?token="+token(t, "u1"), "", body)
	assert.Equal(t, http.StatusUnauthorized, code)

	// nothing was judged
	code, resp = do(t, h, http.MethodGet, "/submissions/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, submsrvc.ErrCodeSubmissionNotFound, resp.ErrCode)
}

func TestAuthRequired(t *testing.T) {
	h := setup(t)

	code, _ := do(t, h, http.MethodPost, "/submissions", "", map[string]any{"courseId": "c1"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, h, http.MethodGet, "/users/u1/submissions", token(t, "u2"), nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = do(t, h, http.MethodPut, "/users/u1", token(t, "u2"), map[string]any{"displayName": "Eve"})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestUpdateUser(t *testing.T) {
	h := setup(t)

	code, resp := do(t, h, http.MethodPut, "/users/u1", token(t, "u1"), map[string]any{"displayName": "Ada L."})
	require.Equal(t, http.StatusOK, code, resp.ErrMsg)
	var user backendhttp.User
	require.NoError(t, json.Unmarshal(resp.Data, &user))
	assert.Equal(t, "Ada L.", user.DisplayName)

	code, resp = do(t, h, http.MethodPut, "/users/u1", token(t, "u1"), map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, usersrvc.ErrCodeInvalidUserInfo, resp.ErrCode)
}

func TestMetricsEndpoint(t *testing.T) {
	h := setup(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListLanguages(t *testing.T) {
	h := setup(t)
	code, resp := do(t, h, http.MethodGet, "/languages", "", nil)
	require.Equal(t, http.StatusOK, code)
	var langs []planglist.ProgrammingLang
	require.NoError(t, json.Unmarshal(resp.Data, &langs))
	assert.NotEmpty(t, langs)
}
