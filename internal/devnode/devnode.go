// This package contains the HTTP API of the privora development node.
// It emulates the remote Privora API so applications can develop against
// a local endpoint.
package devnode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/privora/privora-go/internal/model"
	"github.com/tidwall/gjson"
)

// 2^20 bytes, enough for any development payload.
const PayloadSizeLimit = 1_048_576

const DefaultListLimit = 100

// Model is the devnode interface for the privora model.
type Model interface {
	AddSubmission(ctx context.Context, payload []byte) (*model.Submission, error)
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)
	ListSubmissions(ctx context.Context, limit int) ([]model.Submission, error)
	CountSubmissions(ctx context.Context) (uint64, error)
}

// Register the devnode API to echo.
func Register(e *echo.Echo, model Model) {
	api := &devnodeAPI{model}
	e.POST("/submit", api.Submit)
	e.GET("/submissions", api.ListSubmissions)
	e.GET("/submissions/:id", api.GetSubmission)
	e.GET("/health", api.Health)
}

// Shared struct for request handlers.
type devnodeAPI struct {
	model Model
}

type SubmitResponse struct {
	Id     string `json:"id"`
	Status string `json:"status"`
}

type SubmissionResponse struct {
	Id        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	Status    string          `json:"status"`
	CreatedAt string          `json:"created_at"`
}

type ListSubmissionsResponse struct {
	TotalCount  int                  `json:"totalCount"`
	Submissions []SubmissionResponse `json:"submissions"`
}

// Handle POST requests to /submit.
func (a *devnodeAPI) Submit(c echo.Context) error {
	body := c.Request().Body
	defer body.Close()
	payload, err := io.ReadAll(io.LimitReader(body, PayloadSizeLimit+1))
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	if len(payload) > PayloadSizeLimit {
		return c.String(http.StatusBadRequest, "Payload reached size limit")
	}
	if !gjson.ValidBytes(payload) {
		return c.String(http.StatusBadRequest, "Invalid JSON body")
	}
	inner := gjson.GetBytes(payload, "payload")
	if !inner.Exists() {
		return c.String(http.StatusBadRequest, "Missing payload key")
	}
	submission, err := a.model.AddSubmission(c.Request().Context(), []byte(inner.Raw))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, SubmitResponse{
		Id:     submission.Id,
		Status: submission.Status,
	})
}

// Handle GET requests to /submissions/:id.
func (a *devnodeAPI) GetSubmission(c echo.Context) error {
	id := c.Param("id")
	submission, err := a.model.GetSubmission(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if submission == nil {
		return c.String(http.StatusNotFound, "Submission not found")
	}
	return c.JSON(http.StatusOK, convertSubmission(*submission))
}

// Handle GET requests to /submissions.
func (a *devnodeAPI) ListSubmissions(c echo.Context) error {
	limit := DefaultListLimit
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
		return c.String(http.StatusBadRequest, "Invalid limit")
	}
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	submissions, err := a.model.ListSubmissions(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	totalCount, err := a.model.CountSubmissions(c.Request().Context())
	if err != nil {
		return err
	}
	resp := ListSubmissionsResponse{
		TotalCount:  int(totalCount),
		Submissions: make([]SubmissionResponse, len(submissions)),
	}
	for i, submission := range submissions {
		resp.Submissions[i] = convertSubmission(submission)
	}
	return c.JSON(http.StatusOK, resp)
}

// Handle GET requests to /health.
func (a *devnodeAPI) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func convertSubmission(submission model.Submission) SubmissionResponse {
	return SubmissionResponse{
		Id:        submission.Id,
		Payload:   json.RawMessage(submission.Payload),
		Status:    submission.Status,
		CreatedAt: submission.CreatedAt.Format(time.RFC3339),
	}
}
