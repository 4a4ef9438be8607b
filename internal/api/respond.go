package api

import (
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"

	"gwi.com/botchat/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// envelope is the shape of every JSON response except /user/update.
type envelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(r.Context()).Warn("failed to encode response", slog.Any("error", err))
	}
}

func writeOK(w http.ResponseWriter, r *http.Request, message string, data any) {
	writeJSON(w, r, http.StatusOK, envelope{Status: true, Message: message, Data: data})
}

func writeFail(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, envelope{Status: false, Message: message})
}

func writeInternal(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger.FromContext(r.Context()).Error(op+" failed", slog.Any("error", err))
	writeFail(w, r, http.StatusInternalServerError, "Internal server error.")
}

func renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		logger.FromContext(r.Context()).Error("failed to render page", slog.String("page", name), slog.Any("error", err))
	}
}

type authPage struct {
	Mode    string
	Message string
	Error   bool
	Email   string
}

type dashboardPage struct {
	DisplayName   string
	Fullname      string
	Model         string
	Conversations any
}
