package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respond(t *testing.T, err error) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, AppErrorResponse(c, err))

	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestAppErrorResponse(t *testing.T) {
	rec, body := respond(t, TooManyRequestsError("slow down").WithParam("retry_after_ms", 1500))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, http.StatusTooManyRequests, body.Status)
	assert.Contains(t, rec.Body.String(), `"code":"ERR_RATE_LIMITED"`)
	assert.Contains(t, rec.Body.String(), `"retry_after_ms":1500`)

	// errors without a status never leak their text
	rec, body = respond(t, errors.New("dial tcp: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Something went wrong", body.Data)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
