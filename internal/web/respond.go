package web

import (
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/kvadminer/kvadminer/internal/kverr"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind kverr.Kind) int {
	switch kind {
	case kverr.KindInvalidEndpoint, kverr.KindInvalid:
		return http.StatusBadRequest
	case kverr.KindType:
		return http.StatusUnprocessableEntity
	case kverr.KindNotFound:
		return http.StatusNotFound
	case kverr.KindStore:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":{"code":"internal","message":"encoding response"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError renders err as {"error":{"code","message"}}. Internal errors
// are not echoed to the client.
func writeError(w http.ResponseWriter, err error) {
	kind := kverr.KindOf(err)
	msg := err.Error()
	if kind == kverr.KindInternal {
		msg = "internal server error"
	}
	writeJSON(w, statusFor(kind), errorBody{Error: errorDetail{Code: kind.String(), Message: msg}})
}
