package middleware

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionCookie is the cookie set by the identity provider's client
// SDK after sign-in.
const DefaultSessionCookie = "firebaseIdToken"

// subjectKey is the context key for the session subject.
type subjectKey struct{}

// AccessGateConfig configures the page access gate.
type AccessGateConfig struct {
	// CookieName is the session cookie (default: firebaseIdToken).
	CookieName string
	// LoginPath is the only page reachable without a session (default: /login).
	LoginPath string
	// HomePath is where signed-in visitors of LoginPath are sent (default: /).
	HomePath string
}

func (c AccessGateConfig) withDefaults() AccessGateConfig {
	if c.CookieName == "" {
		c.CookieName = DefaultSessionCookie
	}
	if c.LoginPath == "" {
		c.LoginPath = "/login"
	}
	if c.HomePath == "" {
		c.HomePath = "/"
	}
	return c
}

// AccessGate redirects page requests on session cookie presence alone:
// LoginPath with a session goes to HomePath, any other gated page without a
// session goes to LoginPath. The cookie is never verified here.
func AccessGate(cfg AccessGateConfig) func(http.Handler) http.Handler {
	cfg = cfg.withDefaults()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasSession := sessionToken(r, cfg.CookieName) != ""
			isLogin := r.URL.Path == cfg.LoginPath

			target := ""
			switch {
			case isLogin && hasSession:
				target = cfg.HomePath
			case !isLogin && !hasSession:
				target = cfg.LoginPath
			}
			if target != "" {
				// http.Redirect writes its HTML body only without a preset type
				w.Header().Del("Content-Type")
				http.Redirect(w, r, target, http.StatusTemporaryRedirect)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SessionSubject reads the subject claim of the session cookie, without
// verifying the token, and stores it in the request context. It never
// rejects a request; the subject only labels logs and rate limit buckets.
func SessionSubject(cookieName string) func(http.Handler) http.Handler {
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}
	parser := jwt.NewParser()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r, cookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			var claims jwt.RegisteredClaims
			if _, _, err := parser.ParseUnverified(token, &claims); err != nil || claims.Subject == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject returns the session subject from the context, or "".
func GetSubject(ctx context.Context) string {
	if s, ok := ctx.Value(subjectKey{}).(string); ok {
		return s
	}
	return ""
}

func sessionToken(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
