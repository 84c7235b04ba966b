package web

import (
	"net/http"

	"github.com/JonMunkholm/dataviz/internal/core"
	"github.com/JonMunkholm/dataviz/internal/web/middleware"
)

// withSession resolves the browser session from its cookie, creating one
// when the cookie is missing, unknown or malformed, and stores the id in the
// request context.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil {
			id = c.Value
		}

		sess := s.service.OpenSession(id)
		if sess.ID != id {
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.Session.CookieName,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.cfg.Session.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		r = r.WithContext(core.ContextWithSessionID(r.Context(), sess.ID))
		middleware.Annotate(w, r)
		next.ServeHTTP(w, r)
	})
}

// session returns the session resolved by withSession.
func (s *Server) session(r *http.Request) (*core.Session, error) {
	sess, ok := s.service.Session(core.SessionIDFromContext(r.Context()))
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return sess, nil
}
