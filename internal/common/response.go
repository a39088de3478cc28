package common

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// ErrorBody is the object under "error" in every failed response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

type dataEnvelope struct {
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// JSON encodes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Data writes {"data": v}.
func Data(w http.ResponseWriter, status int, v any) {
	JSON(w, status, dataEnvelope{Data: v})
}

// Page writes one page of a list with its pagination block and X-Total-Count.
// A nil slice is rendered as [].
func Page[T any](w http.ResponseWriter, items []T, p Pagination, total int) {
	if items == nil {
		items = []T{}
	}
	p.TotalItems = total
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	JSON(w, http.StatusOK, dataEnvelope{Data: items, Pagination: &p})
}

// JSONError writes {"error": {code, message, details}}.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, errorEnvelope{Error: ErrorBody{Code: code, Message: message, Details: details}})
}
