package api

import (
	"embed"
	"net/http"

	"audix/internal/session"
)

//go:embed static/*.html
var staticFiles embed.FS

type StaticHandler struct {
	sessions *session.Service
}

func NewStaticHandler(sessions *session.Service) *StaticHandler {
	return &StaticHandler{sessions: sessions}
}

func (h *StaticHandler) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *StaticHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.serve(w, "static/login.html")
}

func (h *StaticHandler) Setup(w http.ResponseWriter, r *http.Request) {
	h.serve(w, "static/setup.html")
}

// App redirects to /login when no valid session cookie is present; the
// embedded page itself only ever renders for an authenticated flat.
func (h *StaticHandler) App(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sessions.Resolve(r); err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	h.serve(w, "static/app.html")
}

func (h *StaticHandler) serve(w http.ResponseWriter, name string) {
	data, err := staticFiles.ReadFile(name)
	if err != nil {
		internalError(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}
