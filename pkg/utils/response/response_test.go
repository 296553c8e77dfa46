package response

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

type testAPIError struct{}

func (testAPIError) Error() string         { return "tasks: row 7 missing" }
func (testAPIError) HTTPStatus() int       { return http.StatusNotFound }
func (testAPIError) ErrorType() string     { return NotFoundException }
func (testAPIError) PublicMessage() string { return "No task found" }

func recordFromError(t *testing.T, err error) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, FromError(c, err))

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestFromError_APIError(t *testing.T) {
	rec, body := recordFromError(t, testAPIError{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, NotFoundException, body.ErrorType)
	assert.Equal(t, "No task found", body.Message)
}

func TestFromError_PlainErrorIsHidden(t *testing.T) {
	rec, body := recordFromError(t, errors.New("dial tcp 10.0.0.3:5432: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ServerException, body.ErrorType)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
}

func TestCreatedResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	require.NoError(t, CreatedResponse(c, map[string]string{"message": "ok"}))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"status":"success","data":{"message":"ok"}}`, rec.Body.String())
}
