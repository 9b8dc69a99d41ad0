package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/harlequingg/project-tracker/internal/tracker"
)

const maxBodyBytes = 1 << 20

func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	heathCheck := struct {
		Status      string `json:"status"`
		Environment string `json:"environment"`
		Version     string `json:"version"`
	}{
		Status:      "available",
		Environment: app.config.Env,
		Version:     version,
	}
	app.writeJSON(w, http.StatusOK, heathCheck)
}

// readJSON decodes a single JSON object from the request body into dst.
// Unknown fields are rejected.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &syntaxErr):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxErr.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &typeErr):
			if typeErr.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", typeErr.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", typeErr.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return fmt.Errorf("body contains unknown field %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		case errors.As(err, &maxBytesErr):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesErr.Limit)
		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

func (app *application) writeJSON(w http.ResponseWriter, status int, data any) {
	js, err := json.Marshal(data)
	if err != nil {
		app.serverError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(js, '\n'))
}

func composeJSONError(err error) string {
	jsonError := map[string]string{
		"error": err.Error(),
	}
	result, err := json.Marshal(jsonError)
	if err != nil {
		return `{"error":"internal server error"}`
	}
	return string(result)
}

func writeError(w http.ResponseWriter, err error, statusCode int) {
	h := w.Header()
	h.Del("Content-Length")
	h.Set("Content-Type", "application/json")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	fmt.Fprintln(w, composeJSONError(err))
}

// serverError logs err and answers 500. The detail is only sent to the
// client in development.
func (app *application) serverError(w http.ResponseWriter, err error) {
	app.logger.Output(2, err.Error())
	if app.config.IsDevelopment() {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeError(w, errors.New("internal server error"), http.StatusInternalServerError)
}

// serviceError maps a tracker error kind to its HTTP status.
func (app *application) serviceError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, tracker.ErrValidation), errors.Is(err, tracker.ErrConflict):
		status = http.StatusBadRequest
	case errors.Is(err, tracker.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, tracker.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, tracker.ErrNotFound):
		status = http.StatusNotFound
	default:
		app.serverError(w, err)
		return
	}

	var te *tracker.Error
	if errors.As(err, &te) && len(te.Fields) > 0 {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		app.writeJSON(w, status, envelope{"error": te.Fields})
		return
	}
	writeError(w, err, status)
}
