// Package shared centralizes JSON response and error envelope rendering so
// every handler package speaks the same wire shape.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	domainerrors "voucher-ledger/pkg/domain-errors"
)

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the stable machine code and a human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON renders v with the given status. Encoding failures are swallowed;
// by then the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError translates a domain error into its HTTP status and envelope.
// Errors without a domain code render as internal errors with a generic
// message so wrapped store detail never leaks to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := domainerrors.CodeInternal
	message := "internal error"
	var derr *domainerrors.Error
	if errors.As(err, &derr) {
		code = derr.Code
		message = derr.Message
	}
	WriteJSON(w, toStatus(code), ErrorBody{Error: ErrorDetail{Code: string(code), Message: message}})
}

func toStatus(code domainerrors.Code) int {
	switch code {
	case domainerrors.CodeBadRequest:
		return http.StatusBadRequest
	case domainerrors.CodeNotFound:
		return http.StatusNotFound
	case domainerrors.CodeConflict:
		return http.StatusConflict
	case domainerrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
