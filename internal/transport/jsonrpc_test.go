package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type testCodedError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *testCodedError) Error() string        { return e.Code + ": " + e.Message }
func (e *testCodedError) CodeValue() string    { return e.Code }
func (e *testCodedError) MessageValue() string { return e.Message }

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestParseRequest(t *testing.T) {
	body := bytes.NewBufferString(`{"jsonrpc":"2.0","method":"classify","params":{"identifiers":["it1"]},"id":1}`)
	req, err := ParseRequest(body)
	require.NoError(t, err)
	require.Equal(t, "2.0", req.JSONRPC)
	require.Equal(t, "classify", req.Method)
	require.Equal(t, json.RawMessage(`{"identifiers":["it1"]}`), req.Params)
}

func TestParseRequest_Invalid(t *testing.T) {
	_, err := ParseRequest(bytes.NewBufferString(`{"jsonrpc":"2.0","id":1}`))
	require.ErrorIs(t, err, errInvalidRequest)

	_, err = ParseRequest(bytes.NewBufferString(`{"jsonrpc":`))
	require.Error(t, err)
	require.NotErrorIs(t, err, errInvalidRequest)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, 1, ErrInvalidParams, "bad params", nil)

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), `"error"`)
}

func TestWriteHandlerError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteHandlerError(rec, 1, &testCodedError{Code: "METHOD_NOT_FOUND", Message: "method not found: x"})
	require.Equal(t, ErrMethodNotFound, decodeResponse(t, rec).Error.Code)

	rec = httptest.NewRecorder()
	WriteHandlerError(rec, 1, &testCodedError{Code: "INVALID_PARAMS", Message: "bad"})
	require.Equal(t, ErrInvalidParams, decodeResponse(t, rec).Error.Code)

	rec = httptest.NewRecorder()
	WriteHandlerError(rec, 1, &testCodedError{Code: "CATALOG_UNREACHABLE", Message: "down"})
	resp := decodeResponse(t, rec)
	require.Equal(t, ErrApplication, resp.Error.Code)
	require.Equal(t, map[string]any{"code": "CATALOG_UNREACHABLE", "message": "down"}, resp.Error.Data)

	rec = httptest.NewRecorder()
	WriteHandlerError(rec, 1, errors.New("boom"))
	require.Equal(t, ErrInternal, decodeResponse(t, rec).Error.Code)
}
