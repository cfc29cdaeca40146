package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type testHandler struct {
	method string
	params json.RawMessage
	err    error
}

func (h *testHandler) Handle(_ context.Context, method string, params json.RawMessage) (any, error) {
	h.method = method
	h.params = params
	if h.err != nil {
		return nil, h.err
	}
	return map[string]string{"method": method}, nil
}

func postRPC(t *testing.T, url, token, body string) Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/rpc", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHTTPServer_RPC(t *testing.T) {
	handler := &testHandler{}
	server := httptest.NewServer(NewServer(handler, Options{Token: "secret"}))
	t.Cleanup(server.Close)

	resp := postRPC(t, server.URL, "secret", `{"jsonrpc":"2.0","method":"classify","params":{"text":"it1"},"id":1}`)
	require.Nil(t, resp.Error)
	require.Equal(t, "classify", handler.method)
	require.JSONEq(t, `{"text":"it1"}`, string(handler.params))
	require.Equal(t, float64(1), resp.ID)
}

func TestHTTPServer_RPCRequiresToken(t *testing.T) {
	server := httptest.NewServer(NewServer(&testHandler{}, Options{Token: "secret"}))
	t.Cleanup(server.Close)

	resp, err := http.Post(server.URL+"/rpc", "application/json", bytes.NewBufferString(`{"jsonrpc":"2.0","method":"classify","id":1}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTPServer_RPCErrors(t *testing.T) {
	handler := &testHandler{err: &testCodedError{Code: "JOB_NOT_FOUND", Message: "job not found"}}
	server := httptest.NewServer(NewServer(handler, Options{}))
	t.Cleanup(server.Close)

	resp := postRPC(t, server.URL, "", `{"jsonrpc":"2.0","method":"get_job","params":{"id":"x"},"id":"a"}`)
	require.NotNil(t, resp.Error)
	require.Equal(t, ErrApplication, resp.Error.Code)
	require.Equal(t, "a", resp.ID)

	resp = postRPC(t, server.URL, "", `{"jsonrpc":"1.0","method":"get_job"}`)
	require.Equal(t, ErrInvalidReq, resp.Error.Code)

	resp = postRPC(t, server.URL, "", `not json`)
	require.Equal(t, ErrParseCode, resp.Error.Code)
}

func TestHTTPServer_HealthAndMCPMount(t *testing.T) {
	var mcpHits int
	mcp := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mcpHits++
		w.WriteHeader(http.StatusAccepted)
	})
	server := httptest.NewServer(NewServer(&testHandler{}, Options{Token: "secret", MCP: mcp}))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(server.URL+"/mcp", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, 1, mcpHits)
}

func TestRequestLogger(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rpc", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, logs.String(), "path=/rpc")
	require.Contains(t, logs.String(), "status=202")
}
