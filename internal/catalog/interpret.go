package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// ConnectivityChecker reports whether the network path to the service is up.
type ConnectivityChecker interface {
	Online(ctx context.Context) bool
}

// Interpreter maps raw transport results onto the outcome taxonomy.
type Interpreter struct {
	conn ConnectivityChecker
	log  *slog.Logger
}

// NewInterpreter creates an interpreter. conn may be nil, in which case the
// network is assumed to be up.
func NewInterpreter(conn ConnectivityChecker, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Interpreter{conn: conn, log: logger}
}

// Interpret returns the success body or a taxonomy error.
func (i *Interpreter) Interpret(ctx context.Context, resp *Response, transportErr error) ([]byte, error) {
	if transportErr != nil {
		switch {
		case errors.Is(transportErr, ErrCancelled),
			errors.Is(transportErr, context.Canceled),
			errors.Is(transportErr, context.DeadlineExceeded) && ctx.Err() != nil:
			return nil, cancelled(transportErr)
		case errors.Is(transportErr, ErrRateLimited):
			return nil, transportErr
		default:
			i.log.WarnContext(ctx, "catalog transport failure", slog.String("error", transportErr.Error()))
			return nil, errors.Join(ErrTransportDown, transportErr)
		}
	}

	if resp == nil {
		if i.conn != nil && !i.conn.Online(ctx) {
			return nil, ErrTransportDown
		}
		i.log.ErrorContext(ctx, "catalog returned neither response nor error")
		return nil, ErrInconsistent
	}

	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return resp.Body, nil
	case code == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case code == http.StatusBadRequest:
		return nil, &ClientError{Status: code, Message: "malformed request", Details: plainDetail(resp.Body)}
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return nil, &ClientError{Status: code, Message: "not authorized"}
	case code == http.StatusNotFound:
		return nil, &ClientError{Status: code, Message: "not found"}
	case code == http.StatusUnprocessableEntity:
		return nil, &ClientError{Status: code, Message: "validation failed", Details: validationMessages(resp.Body)}
	case code == http.StatusConflict, code == http.StatusInternalServerError, code == http.StatusNotImplemented:
		i.log.ErrorContext(ctx, "catalog server error", slog.Int("status", code), slog.String("body", truncate(string(resp.Body), 500)))
		return nil, &ServerError{Status: code, Body: string(resp.Body)}
	default:
		i.log.ErrorContext(ctx, "unexpected catalog status", slog.Int("status", code), slog.String("body", string(resp.Body)))
		return nil, &UnexpectedStatusError{Status: code, Body: string(resp.Body)}
	}
}

func validationMessages(body []byte) []string {
	var payload struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return plainDetail(body)
	}
	out := make([]string, 0, len(payload.Errors))
	for _, e := range payload.Errors {
		if e.Message != "" {
			out = append(out, e.Message)
		}
	}
	return out
}

func plainDetail(body []byte) []string {
	if len(body) == 0 {
		return nil
	}
	return []string{truncate(string(body), 200)}
}
