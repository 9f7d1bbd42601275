package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	terrors "github.com/hrygo/timenorm/internal/errors"
	"github.com/hrygo/timenorm/internal/observability"
	"github.com/hrygo/timenorm/plugin/timenorm"
	"github.com/hrygo/timenorm/plugin/timenorm/resolver"
)

// headerRequestID lets callers correlate logs with their own request ids.
const headerRequestID = "X-Request-Id"

// maxBatchSize bounds a single batch request.
const maxBatchSize = 256

// ResolveRequest is the body of POST /api/v1/resolve.
type ResolveRequest struct {
	// Tagged is the tagger output.
	Tagged string `json:"tagged"`
	// Reference is the anchor instant, e.g. 2025-01-21T08:00:00Z.
	Reference string `json:"reference"`
	// Source is the original text; when present the ambiguity filter runs.
	Source string `json:"source,omitempty"`
}

// ResolveResponse carries the resolved values in output order.
type ResolveResponse struct {
	RequestID string            `json:"request_id"`
	Results   []resolver.Result `json:"results"`
}

// BatchRequest is the body of POST /api/v1/resolve/batch.
type BatchRequest struct {
	Items []ResolveRequest `json:"items"`
}

// BatchResponse keeps the order of BatchRequest.Items.
type BatchResponse struct {
	RequestID string              `json:"request_id"`
	Results   [][]resolver.Result `json:"results"`
}

// ErrorResponse is returned for tier (a) failures.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// Resolve normalizes one tagged text.
// POST /api/v1/resolve
func (s *APIV1Service) Resolve(c echo.Context) error {
	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: string(terrors.ErrCodeInvalidArgument), Error: "invalid request body"})
	}

	reqCtx := s.requestContext(c, "resolve")
	ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)

	var (
		results []resolver.Result
		err     error
	)
	if req.Source != "" {
		results, err = s.Service.ResolveText(ctx, req.Source, req.Tagged, req.Reference)
	} else {
		results, err = s.Service.Resolve(ctx, req.Tagged, req.Reference)
	}
	if err != nil {
		return s.writeError(c, err)
	}
	if results == nil {
		results = []resolver.Result{}
	}
	reqCtx.Info("resolve request served", slog.Int(observability.LogFieldResultCount, len(results)), slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return c.JSON(http.StatusOK, ResolveResponse{RequestID: reqCtx.RequestID, Results: results})
}

// ResolveBatch normalizes several tagged texts concurrently.
// POST /api/v1/resolve/batch
func (s *APIV1Service) ResolveBatch(c echo.Context) error {
	var req BatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: string(terrors.ErrCodeInvalidArgument), Error: "invalid request body"})
	}
	if len(req.Items) > maxBatchSize {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:  string(terrors.ErrCodeInvalidArgument),
			Error: "batch too large",
		})
	}

	reqCtx := s.requestContext(c, "resolve_batch")
	ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)

	if err := s.batchSemaphore.Acquire(ctx, 1); err != nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Code: "UNAVAILABLE", Error: "request cancelled while waiting for a batch slot"})
	}
	defer s.batchSemaphore.Release(1)

	items := make([]timenorm.Request, len(req.Items))
	for i, item := range req.Items {
		items[i] = timenorm.Request{Source: item.Source, Tagged: item.Tagged, Reference: item.Reference}
	}
	results, err := s.Service.ResolveBatch(ctx, items)
	if err != nil {
		return s.writeError(c, err)
	}
	for i := range results {
		if results[i] == nil {
			results[i] = []resolver.Result{}
		}
	}
	reqCtx.Info("batch request served", slog.Int("batch_size", len(items)), slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return c.JSON(http.StatusOK, BatchResponse{RequestID: reqCtx.RequestID, Results: results})
}

func (s *APIV1Service) requestContext(c echo.Context, operation string) *observability.RequestContext {
	if id := c.Request().Header.Get(headerRequestID); id != "" {
		return observability.NewRequestContextWithID(slog.Default(), id, operation, s.Service.Locale())
	}
	return observability.NewRequestContext(slog.Default(), operation, s.Service.Locale())
}

// writeError maps tier (a) errors to 400 and everything else to 500.
func (s *APIV1Service) writeError(c echo.Context, err error) error {
	code := terrors.GetCodeFromError(errors.Cause(err), "INTERNAL")
	status := http.StatusInternalServerError
	switch code {
	case terrors.ErrCodeMalformedInput, terrors.ErrCodeInvalidArgument:
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		slog.Error("resolve failed", slog.String("error", err.Error()))
	}
	return c.JSON(status, ErrorResponse{Code: string(code), Error: err.Error()})
}
