package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/betflow/betflow-api/internal/api/problem"
	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	traceContextKey     contextKey = "trace_id"
)

var (
	jwtSecret   []byte
	jwtIssuer   string
	jwtAudience string
)

// Principal is the staff member behind an authenticated request.
type Principal struct {
	UserID   uuid.UUID
	Username string
	Role     domain.Role
}

// staffClaims is the access token payload. The subject carries the user id.
type staffClaims struct {
	Username string      `json:"username,omitempty"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

func SetJWTSecret(secret string) {
	if secret == "" {
		return
	}
	jwtSecret = []byte(secret)
}

// SetJWTValidation pins the iss and aud claims. Empty values are not checked.
func SetJWTValidation(issuer, audience string) {
	jwtIssuer = strings.TrimSpace(issuer)
	jwtAudience = strings.TrimSpace(audience)
}

// IssueToken signs an HS256 access token for a staff user.
func IssueToken(user models.User, ttl time.Duration) (string, time.Time, error) {
	if len(jwtSecret) == 0 {
		return "", time.Time{}, errors.New("jwt secret is not configured")
	}
	if _, err := domain.ParseRole(string(user.Role)); err != nil {
		return "", time.Time{}, fmt.Errorf("issue token: %w", err)
	}
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := staffClaims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			Issuer:    jwtIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if jwtAudience != "" {
		claims.Audience = jwt.ClaimStrings{jwtAudience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// parseToken verifies signature, expiry, iss and aud, then resolves the
// principal. Tokens with an unknown role are rejected.
func parseToken(raw string) (Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if jwtIssuer != "" {
		opts = append(opts, jwt.WithIssuer(jwtIssuer))
	}
	if jwtAudience != "" {
		opts = append(opts, jwt.WithAudience(jwtAudience))
	}

	claims := &staffClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return jwtSecret, nil
	}, opts...); err != nil {
		return Principal{}, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, fmt.Errorf("subject: %w", err)
	}
	role, err := domain.ParseRole(string(claims.Role))
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: userID, Username: claims.Username, Role: role}, nil
}

// AuthMiddleware requires a bearer token and stores its Principal in the
// request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			unauthorized(w, r, "auth/authorization-header-required", "Authorization header required")
			return
		}
		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
			unauthorized(w, r, "auth/invalid-token-format", "Invalid token format")
			return
		}
		if len(jwtSecret) == 0 {
			problem.Write(w, r, http.StatusInternalServerError, problem.Type("auth/misconfigured"), http.StatusText(http.StatusInternalServerError), "auth is not configured")
			return
		}

		principal, err := parseToken(raw)
		if err != nil {
			unauthorized(w, r, "auth/invalid-token", "Invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request, typ, detail string) {
	problem.Write(w, r, http.StatusUnauthorized, problem.Type(typ), http.StatusText(http.StatusUnauthorized), detail)
}

// RequireRole lets the request through when the principal holds one of roles.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok || !slices.Contains(roles, p.Role) {
				problem.Write(w, r, http.StatusForbidden, problem.Type("auth/insufficient-permissions"), http.StatusText(http.StatusForbidden), "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalContextKey).(Principal)
	return p, ok
}

// UserIDFromContext returns the authenticated user id, or "" for anonymous
// requests.
func UserIDFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.UserID.String()
	}
	return ""
}

// TraceIDFromContext returns the trace id for the request.
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(traceContextKey).(string); ok {
		return v
	}
	return ""
}
