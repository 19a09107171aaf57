package handler

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed pages
var pagesFS embed.FS

// PageHandler serves the browser pages and their static assets.
type PageHandler struct {
	home   []byte
	login  []byte
	static http.Handler
}

// NewPageHandler loads the embedded pages.
func NewPageHandler() (*PageHandler, error) {
	home, err := pagesFS.ReadFile("pages/home.html")
	if err != nil {
		return nil, err
	}
	login, err := pagesFS.ReadFile("pages/login.html")
	if err != nil {
		return nil, err
	}
	sub, err := fs.Sub(pagesFS, "pages")
	if err != nil {
		return nil, err
	}

	return &PageHandler{
		home:   home,
		login:  login,
		static: http.StripPrefix("/static/", http.FileServer(http.FS(sub))),
	}, nil
}

// Home handles GET / - the assessment page.
func (h *PageHandler) Home(w http.ResponseWriter, _ *http.Request) {
	writeHTML(w, h.home)
}

// Login handles GET /login.
func (h *PageHandler) Login(w http.ResponseWriter, _ *http.Request) {
	writeHTML(w, h.login)
}

// Static handles GET /static/* - stylesheet and script.
func (h *PageHandler) Static(w http.ResponseWriter, r *http.Request) {
	// let the file server pick the type from the extension
	w.Header().Del("Content-Type")
	h.static.ServeHTTP(w, r)
}

func writeHTML(w http.ResponseWriter, page []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}
