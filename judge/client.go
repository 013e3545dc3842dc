package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/profound-academy/backend/auth"
	"github.com/profound-academy/backend/submdomain"
)

const (
	defaultMemoryLimit    = 512 // MB
	defaultTimeLimit      = 2   // seconds
	defaultOutputLimit    = 1   // MB
	defaultComparisonMode = "token"
	defaultFloatPrecision = 0.001
)

type SubmitPayload struct {
	Problem          string                `json:"problem,omitempty"`
	TestCases        []submdomain.TestCase `json:"testCases,omitempty"`
	Code             string                `json:"code"`
	Language         string                `json:"language"`
	MemoryLimit      float64               `json:"memoryLimit"`
	TimeLimit        float64               `json:"timeLimit"`
	OutputLimit      float64               `json:"outputLimit"`
	AggregateResults bool                  `json:"aggregateResults"`
	ReturnOutputs    bool                  `json:"returnOutputs"`
	StopOnFirstFail  bool                  `json:"stopOnFirstFail"`
	ComparisonMode   string                `json:"comparisonMode"`
	FloatPrecision   float64               `json:"floatPrecision"`
	CallbackURL      string                `json:"callbackUrl"`
}

// CallbackURL is where the judge posts the result of subm. The URL carries
// a token only this server can issue, so results cannot be posted by anyone
// who merely knows the submission id.
func CallbackURL(callbackBase string, key []byte, subm submdomain.Submission) (string, error) {
	tok, err := auth.SignCallback(key, subm.UserID, subm.ID)
	if err != nil {
		return "", fmt.Errorf("failed to sign callback url: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s?token=%s", strings.TrimRight(callbackBase, "/"),
		url.PathEscape(subm.UserID), url.PathEscape(subm.ID), url.QueryEscape(tok)), nil
}

// NewSubmitPayload builds the judge request. Exercise limits fall back to
// defaults; a submission with its own test cases is judged against those
// instead of the exercise's problem.
func NewSubmitPayload(subm submdomain.Submission, ex submdomain.Exercise, callbackURL string) SubmitPayload {
	p := SubmitPayload{
		TestCases:        subm.TestCases,
		Code:             subm.Code,
		Language:         subm.Language,
		MemoryLimit:      orDefault(ex.MemoryLimit, defaultMemoryLimit),
		TimeLimit:        orDefault(ex.TimeLimit, defaultTimeLimit),
		OutputLimit:      orDefault(ex.OutputLimit, defaultOutputLimit),
		AggregateResults: !subm.IsTestRun,
		ReturnOutputs:    subm.IsTestRun,
		StopOnFirstFail:  !subm.IsTestRun,
		ComparisonMode:   ex.ComparisonMode,
		FloatPrecision:   orDefault(ex.FloatPrecision, defaultFloatPrecision),
		CallbackURL:      callbackURL,
	}
	if len(subm.TestCases) == 0 {
		p.Problem = subm.ExerciseID
	}
	if p.ComparisonMode == "" {
		p.ComparisonMode = defaultComparisonMode
	}
	return p
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// Client submits code to the judge without waiting for the grading.
type Client struct {
	logger       *slog.Logger
	httpClient   *http.Client
	url          string
	callbackBase string
	callbackKey  []byte
	timeout      time.Duration
}

func NewClient(url, callbackBase string, callbackKey []byte, timeout time.Duration) *Client {
	return &Client{
		logger:       slog.Default().With("module", "judge"),
		httpClient:   &http.Client{},
		url:          url,
		callbackBase: callbackBase,
		callbackKey:  callbackKey,
		timeout:      timeout,
	}
}

// Submit posts the submission to the judge. The judge only answers after
// grading, so once the request has been written a timeout counts as
// accepted. A non-2xx answer is an error.
func (c *Client) Submit(ctx context.Context, subm submdomain.Submission, ex submdomain.Exercise) error {
	callbackURL, err := CallbackURL(c.callbackBase, c.callbackKey, subm)
	if err != nil {
		return err
	}
	payload := NewSubmitPayload(subm, ex, callbackURL)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal judge payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var written atomic.Bool
	trace := &httptrace.ClientTrace{
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			if info.Err == nil {
				written.Store(true)
			}
		},
	}
	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace),
		http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create judge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if written.Load() && isTimeout(err) {
			c.logger.Debug("judge did not answer in time, treating as accepted",
				"submission_id", subm.ID)
			return nil
		}
		return fmt.Errorf("failed to send submission to judge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("judge responded with %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	c.logger.Info("submitted to judge", "submission_id", subm.ID, "status", resp.StatusCode)
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
