// Package handlers maps HTTP requests onto the command and query buses.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	pkgerrors "optio-backend/pkg/errors"

	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; contents are capped well below this
const maxBodyBytes = 64 * 1024

type responder struct {
	errors *pkgerrors.ErrorHandler
	logger *zap.Logger
}

func (h responder) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h responder) respondError(w http.ResponseWriter, r *http.Request, err error) {
	h.errors.Handle(w, r, err)
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func (h responder) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return pkgerrors.NewValidationError("Invalid request body: " + err.Error())
	}
	return nil
}
