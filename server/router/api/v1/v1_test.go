package v1

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/timenorm/internal/observability"
	"github.com/hrygo/timenorm/internal/profile"
	"github.com/hrygo/timenorm/plugin/timenorm"
)

func newTestServer(t *testing.T, rateLimit float64, burst int) *echo.Echo {
	t.Helper()
	metrics := observability.NewMetrics(100)
	svc, err := timenorm.NewService(timenorm.WithLocale("en"), timenorm.WithMetrics(metrics))
	require.NoError(t, err)
	p := &profile.Profile{Version: "test", RateLimit: rateLimit, RateBurst: burst}
	return NewEchoServer(NewAPIV1Service(p, svc, metrics))
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.RemoteAddr = "192.0.2.1:4000"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	e := newTestServer(t, 100, 100)
	rec := do(e, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","locale":"en","version":"test"}`, rec.Body.String())
}

func TestResolve(t *testing.T) {
	e := newTestServer(t, 100, 100)

	tests := []struct {
		name   string
		body   string
		status int
		want   string
		code   string
	}{
		{
			name:   "tomorrow",
			body:   `{"tagged":"time_relative { offset_day: 1 }","reference":"2025-01-21T08:00:00Z"}`,
			status: http.StatusOK,
			want:   `[["2025-01-22T00:00:00Z","2025-01-22T23:59:59Z"]]`,
		},
		{
			name:   "unresolvable token",
			body:   `{"tagged":"time_utc { hour: 25 }","reference":"2025-01-21T08:00:00Z"}`,
			status: http.StatusOK,
			want:   `[]`,
		},
		{
			name:   "malformed input",
			body:   `{"tagged":"time_utc { year \"2025\" }","reference":"2025-01-21T08:00:00Z"}`,
			status: http.StatusBadRequest,
			code:   "MALFORMED_INPUT",
		},
		{
			name:   "bad reference",
			body:   `{"tagged":"time_relative { offset_day: 1 }","reference":"tomorrow"}`,
			status: http.StatusBadRequest,
			code:   "INVALID_ARGUMENT",
		},
		{
			name:   "bad body",
			body:   `{"tagged":`,
			status: http.StatusBadRequest,
			code:   "INVALID_ARGUMENT",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/api/v1/resolve", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			if tt.status == http.StatusOK {
				var resp struct {
					RequestID string          `json:"request_id"`
					Results   json.RawMessage `json:"results"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.RequestID)
				assert.JSONEq(t, tt.want, string(resp.Results))
				return
			}
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestResolve_RequestIDHeader(t *testing.T) {
	e := newTestServer(t, 100, 100)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/resolve",
		strings.NewReader(`{"tagged":"time_relative { offset_day: 1 }","reference":"2025-01-21T08:00:00Z"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(headerRequestID, "trace-42")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		RequestID string `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "trace-42", resp.RequestID)
}

func TestResolveBatch(t *testing.T) {
	e := newTestServer(t, 100, 100)

	body := `{"items":[
		{"tagged":"time_relative { offset_day: 1 }","reference":"2025-01-21T08:00:00Z"},
		{"tagged":"time_utc { hour: 25 }","reference":"2025-01-21T08:00:00Z"}
	]}`
	rec := do(e, http.MethodPost, "/api/v1/resolve/batch", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Results json.RawMessage `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.JSONEq(t, `[[["2025-01-22T00:00:00Z","2025-01-22T23:59:59Z"]],[]]`, string(resp.Results))

	rec = do(e, http.MethodPost, "/api/v1/resolve/batch", `{"items":[{"tagged":"time_utc {","reference":"2025-01-21T08:00:00Z"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "MALFORMED_INPUT")
}

func TestRateLimited(t *testing.T) {
	e := newTestServer(t, 1, 1)
	body := `{"tagged":"time_relative { offset_day: 1 }","reference":"2025-01-21T08:00:00Z"}`

	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/api/v1/resolve", body).Code)
	rec := do(e, http.MethodPost, "/api/v1/resolve", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")

	// health checks are not limited
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/healthz", "").Code)
}

func TestMetricsOverview(t *testing.T) {
	e := newTestServer(t, 100, 100)
	do(e, http.MethodPost, "/api/v1/resolve", `{"tagged":"time_relative { offset_day: 1 }","reference":"2025-01-21T08:00:00Z"}`)

	rec := do(e, http.MethodGet, "/api/v1/system/metrics/overview", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MetricsOverviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "en", resp.Locale)
	assert.Equal(t, int64(1), resp.TotalRequests)
	assert.Equal(t, int64(1), resp.ResultTotal)
	assert.Equal(t, 100.0, resp.SuccessRate)
}
