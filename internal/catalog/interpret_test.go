package catalog

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticConn bool

func (s staticConn) Online(context.Context) bool { return bool(s) }

func TestInterpret_StatusTable(t *testing.T) {
	ctx := context.Background()
	interp := NewInterpreter(nil, nil)

	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, body []byte, err error)
	}{
		{"ok", 200, `{"id":"x"}`, func(t *testing.T, body []byte, err error) {
			require.NoError(t, err)
			require.JSONEq(t, `{"id":"x"}`, string(body))
		}},
		{"no content", 204, ``, func(t *testing.T, body []byte, err error) {
			require.NoError(t, err)
			require.Empty(t, body)
		}},
		{"malformed", 400, `bad cql`, func(t *testing.T, _ []byte, err error) {
			var ce *ClientError
			require.ErrorAs(t, err, &ce)
			require.Equal(t, "malformed request", ce.Message)
		}},
		{"unauthorized", 401, ``, func(t *testing.T, _ []byte, err error) {
			var ce *ClientError
			require.ErrorAs(t, err, &ce)
			require.Equal(t, "not authorized", ce.Message)
		}},
		{"forbidden", 403, ``, func(t *testing.T, _ []byte, err error) {
			var ce *ClientError
			require.ErrorAs(t, err, &ce)
			require.Equal(t, "not authorized", ce.Message)
		}},
		{"not found", 404, ``, func(t *testing.T, _ []byte, err error) {
			require.True(t, IsNotFound(err))
		}},
		{"conflict", 409, `optimistic locking`, func(t *testing.T, _ []byte, err error) {
			var se *ServerError
			require.ErrorAs(t, err, &se)
			require.Equal(t, "optimistic locking", se.Body)
		}},
		{"validation", 422, `{"errors":[{"message":"barcode taken"},{"message":"hrid missing"}]}`, func(t *testing.T, _ []byte, err error) {
			var ce *ClientError
			require.ErrorAs(t, err, &ce)
			require.Equal(t, []string{"barcode taken", "hrid missing"}, ce.Details)
		}},
		{"rate limited", 429, ``, func(t *testing.T, _ []byte, err error) {
			require.ErrorIs(t, err, ErrRateLimited)
		}},
		{"server", 500, `boom`, func(t *testing.T, _ []byte, err error) {
			require.True(t, IsServerError(err))
		}},
		{"not implemented", 501, ``, func(t *testing.T, _ []byte, err error) {
			require.True(t, IsServerError(err))
		}},
		{"teapot", 418, `short and stout`, func(t *testing.T, _ []byte, err error) {
			var ue *UnexpectedStatusError
			require.ErrorAs(t, err, &ue)
			require.Equal(t, 418, ue.Status)
			require.Equal(t, "short and stout", ue.Body)
		}},
		{"bad gateway", 502, ``, func(t *testing.T, _ []byte, err error) {
			var ue *UnexpectedStatusError
			require.ErrorAs(t, err, &ue)
			require.True(t, IsServerFault(err))
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, err := interp.Interpret(ctx, &Response{StatusCode: tc.status, Header: http.Header{}, Body: []byte(tc.body)}, nil)
			tc.check(t, body, err)
		})
	}
}

func TestInterpret_TransportErrors(t *testing.T) {
	interp := NewInterpreter(nil, nil)

	_, err := interp.Interpret(context.Background(), nil, context.Canceled)
	require.ErrorIs(t, err, ErrCancelled)

	_, err = interp.Interpret(context.Background(), nil, &net.OpError{Op: "dial", Err: errors.New("connection refused")})
	require.ErrorIs(t, err, ErrTransportDown)

	_, err = interp.Interpret(context.Background(), nil, ErrRateLimited)
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestInterpret_NilResponse(t *testing.T) {
	_, err := NewInterpreter(staticConn(false), nil).Interpret(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrTransportDown)

	_, err = NewInterpreter(staticConn(true), nil).Interpret(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrInconsistent)
}
