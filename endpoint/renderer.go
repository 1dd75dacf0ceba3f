package endpoint

import (
	"encoding/json"
	"net/http"
)

// JSONRenderer writes Value as JSON with Content-Type "application/json".
//
// Status defaults to 200. The encoder does not escape HTML and appends a
// trailing newline. An encoding error is returned, but the status line has
// already been sent by then.
type JSONRenderer struct {
	Status int
	Value  any
}

func (jr *JSONRenderer) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	status := jr.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(jr.Value)
}

// NoContentRenderer writes a status with no body. Status defaults to 204.
type NoContentRenderer struct {
	Status int
}

func (ncr *NoContentRenderer) Render(w http.ResponseWriter, _ *http.Request) error {
	status := ncr.Status
	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
	return nil
}

// StringRenderer writes Body as plain text unless ContentType says otherwise.
type StringRenderer struct {
	Status      int
	Body        string
	ContentType string
}

func (sr *StringRenderer) Render(w http.ResponseWriter, _ *http.Request) error {
	ct := sr.ContentType
	if ct == "" {
		ct = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", ct)
	status := sr.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if sr.Body == "" {
		return nil
	}
	_, err := w.Write([]byte(sr.Body))
	return err
}
