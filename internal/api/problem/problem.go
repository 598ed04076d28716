// Package problem writes RFC 7807 error bodies.
package problem

import (
	"encoding/json"
	"net/http"
)

const (
	contentType = "application/problem+json"
	baseTypeURL = "https://errors.betflow.dev/"
)

// Details is an RFC 7807 problem. InvalidParams is the extension member used
// for request validation failures.
type Details struct {
	Type          string         `json:"type"`
	Title         string         `json:"title"`
	Status        int            `json:"status"`
	Detail        string         `json:"detail"`
	Instance      string         `json:"instance"`
	RequestID     string         `json:"request_id"`
	InvalidParams []InvalidParam `json:"invalid_params,omitempty"`
}

// InvalidParam names one rejected input field.
type InvalidParam struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

func Type(slug string) string {
	return baseTypeURL + slug
}

// Write sends a problem with the given status, type and detail.
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail string) {
	write(w, r, Details{Type: problemType, Title: title, Status: status, Detail: detail})
}

// WriteValidation answers 400 and lists the offending fields.
func WriteValidation(w http.ResponseWriter, r *http.Request, detail string, params ...InvalidParam) {
	write(w, r, Details{
		Type:          Type("request/validation"),
		Status:        http.StatusBadRequest,
		Detail:        detail,
		InvalidParams: params,
	})
}

func write(w http.ResponseWriter, r *http.Request, d Details) {
	if d.Title == "" {
		d.Title = http.StatusText(d.Status)
	}
	if d.Type == "" {
		d.Type = "about:blank"
	}
	if r != nil {
		d.Instance = r.URL.Path
		d.RequestID = r.Header.Get("X-Trace-ID")
	}
	if d.RequestID == "" {
		d.RequestID = w.Header().Get("X-Trace-ID")
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(d.Status)
	_ = json.NewEncoder(w).Encode(d)
}
