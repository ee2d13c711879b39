package api

import (
	"encoding/json"
	"net/http"
)

// Problem is the RFC7807 body every non-2xx response carries. Type is a
// relative reference under /problems so clients can switch on it without
// parsing Detail.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     "/problems/" + title,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}
