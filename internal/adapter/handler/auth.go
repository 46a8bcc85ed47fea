package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rl1809/shop-inventory/internal/core/domain"
)

// Authenticator resolves an API token to a user. Unknown tokens must be
// reported as domain.ErrUnauthenticated.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.User, error)
}

type capability int

const (
	allowAny capability = iota
	requireAuthenticated
	requireAdmin
)

// policy maps HTTP method to the capability it requires. Methods not listed
// require fallback.
type policy struct {
	rules    map[string]capability
	fallback capability
}

func (p policy) required(method string) capability {
	if c, ok := p.rules[method]; ok {
		return c
	}
	return p.fallback
}

// Reads are public, every write needs an admin.
var productPolicy = policy{
	rules: map[string]capability{
		http.MethodGet:     allowAny,
		http.MethodHead:    allowAny,
		http.MethodOptions: allowAny,
	},
	fallback: requireAdmin,
}

var orderPolicy = policy{fallback: requireAuthenticated}

type principalKey struct{}

func withPrincipal(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, principalKey{}, &u)
}

// PrincipalFrom returns the authenticated caller, or nil for anonymous requests.
func PrincipalFrom(ctx context.Context) *domain.User {
	u, _ := ctx.Value(principalKey{}).(*domain.User)
	return u
}

// authenticate attaches the caller identified by an "Authorization: Token
// <t>" or "Bearer <t>" header. Requests without credentials continue
// anonymously; credentials that do not resolve are rejected with 401.
func (h *HTTPHandler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, present := bearerToken(r.Header.Get("Authorization"))
		if !present {
			next.ServeHTTP(w, r)
			return
		}

		user, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			if !errors.Is(err, domain.ErrUnauthenticated) {
				h.writeServiceError(w, r, err)
				return
			}
			writeUnauthenticated(w, "Invalid token.")
			return
		}

		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), user)))
	})
}

// enforce applies p to every request of the wrapped routes.
func (h *HTTPHandler) enforce(p policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			need := p.required(r.Method)
			if need == allowAny {
				next.ServeHTTP(w, r)
				return
			}

			user := PrincipalFrom(r.Context())
			if user == nil {
				writeUnauthenticated(w, "Authentication credentials were not provided.")
				return
			}
			if need == requireAdmin && !user.IsStaff {
				writeError(w, http.StatusForbidden, "forbidden", "You do not have permission to perform this action.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the credential from a Token or Bearer authorization
// header. present is false when the header uses neither scheme.
func bearerToken(header string) (string, bool) {
	scheme, token, _ := strings.Cut(strings.TrimSpace(header), " ")
	switch strings.ToLower(scheme) {
	case "token", "bearer":
		return strings.TrimSpace(token), true
	}
	return "", false
}

func writeUnauthenticated(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "Token")
	writeError(w, http.StatusUnauthorized, "unauthenticated", msg)
}
