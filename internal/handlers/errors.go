package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"learnstack/internal/apperr"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 20

type errorBody struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// respondWithError maps err to its status and writes the error envelope.
// Internal errors are logged and replaced by a generic message.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	body := errorBody{Retryable: apperr.Retryable(err)}
	var ae *apperr.Error
	if kind != apperr.Internal && errors.As(err, &ae) {
		body.Message = ae.Message
		body.Code = ae.Code
	} else {
		body.Message = "Internal server error"
	}

	log := requestLogger(r)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		log.Debug("request rejected", "path", r.URL.Path, "status", status, "kind", kind, "error", err)
	}
	respondJSON(w, status, errorEnvelope{Error: body})
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

type message struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func respondMessage(w http.ResponseWriter, status int, text string) {
	respondJSON(w, status, message{Success: true, Message: text})
}

// decodeJSON reads a JSON body into dst. Malformed bodies are a Validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid request body", err)
	}
	return nil
}

// pathID parses a numeric path value
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validationf("invalid %s", name).WithCode(name)
	}
	return id, nil
}
