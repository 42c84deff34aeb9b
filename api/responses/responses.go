package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/shopstack/shopstack-backend/pkg/errors"
	"github.com/shopstack/shopstack-backend/pkg/logger"
	"github.com/shopstack/shopstack-backend/pkg/types"
)

// WriteSuccess renders the flat envelope with status/is_error merged alongside
// the payload fields at the top level.
func WriteSuccess(w http.ResponseWriter, status int, message string, payload map[string]any) {
	body := map[string]any{
		"status":   status,
		"is_error": false,
	}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// WriteError renders the error envelope. Soft failures keep HTTP 200 with
// is_error=true; hard failures use the code's HTTP status. Infra errors
// surface their raw message so callers can see what broke.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	switch typed.Code() {
	case pkgerrors.CodeValidation,
		pkgerrors.CodeForbidden,
		pkgerrors.CodeUnauthorized,
		pkgerrors.CodeNotFound,
		pkgerrors.CodeConflict,
		pkgerrors.CodeIdempotency:
		if m := typed.Message(); m != "" {
			msg = m
		}
	case pkgerrors.CodeInternal, pkgerrors.CodeDependency:
		if cause := typed.Unwrap(); cause != nil {
			msg = cause.Error()
		} else if m := typed.Message(); m != "" {
			msg = m
		}
	}

	status := meta.HTTPStatus
	if typed.IsSoft() {
		status = http.StatusOK
	}

	body := struct {
		types.Envelope
		Details any `json:"details,omitempty"`
	}{
		Envelope: types.Envelope{Status: status, IsError: true, Message: msg},
	}
	if meta.DetailsAllowed {
		body.Details = typed.Details()
	}

	if logg != nil {
		dump := pkgerrors.Dump(err)

		fields := map[string]any{
			"error":         dump.TopMessage,
			"error_code":    dump.Code,
			"error_chain":   dump.Chain,
			"pg_code":       dump.PGCode,
			"pg_detail":     dump.PGDetail,
			"pg_message":    dump.PGMessage,
			"pg_table":      dump.PGTable,
			"pg_column":     dump.PGColumn,
			"pg_constraint": dump.PGConstraint,
		}

		ctx = logg.WithFields(ctx, fields)
		if typed.IsSoft() {
			logg.Warn(ctx, "request.soft_error")
		} else {
			logg.Error(ctx, "request.error", err)
		}
	}

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
