package web

import (
	"net/http"

	"github.com/kvadminer/kvadminer/internal/session"
	"github.com/kvadminer/kvadminer/internal/store"
)

const (
	sessionCookie = "session_id"
	sessionHeader = "X-Session-ID"
)

// resolveSession finds the caller's session id in the cookie, then the
// X-Session-ID header, and mints a new one when neither holds a valid id.
// The id is echoed back in both the cookie and the header.
func (s *Server) resolveSession(w http.ResponseWriter, r *http.Request) string {
	id := ""
	if c, err := r.Cookie(sessionCookie); err == nil && session.ValidID(c.Value) {
		id = c.Value
	} else if h := r.Header.Get(sessionHeader); session.ValidID(h) {
		id = h
	} else {
		id = session.NewID()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	w.Header().Set(sessionHeader, id)
	return id
}

// endpointFrom reads the store address and credentials from the query string.
func endpointFrom(r *http.Request) store.Endpoint {
	q := r.URL.Query()
	return store.Endpoint{
		Host:     q.Get("host"),
		Port:     q.Get("port"),
		Username: q.Get("username"),
		Password: q.Get("password"),
	}
}
