package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupJWT(t *testing.T) {
	t.Helper()
	SetJWTSecret("test-secret")
	SetJWTValidation("betflow", "betflow-staff")
}

func signClaims(t *testing.T, claims staffClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

// echoPrincipal answers 200 with the principal's role, or 500 when absent.
func echoPrincipal() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("X-Role", string(p.Role))
		w.Header().Set("X-User", p.UserID.String())
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestIssuedTokenCarriesPrincipal(t *testing.T) {
	setupJWT(t)
	user := models.User{ID: uuid.New(), Username: "giulia", Role: domain.RoleManager}

	token, expiresAt, err := IssueToken(user, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	w := serve(AuthMiddleware(echoPrincipal()), "bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MANAGER", w.Header().Get("X-Role"))
	assert.Equal(t, user.ID.String(), w.Header().Get("X-User"))
}

func TestIssueTokenRejectsUnknownRole(t *testing.T) {
	setupJWT(t)
	_, _, err := IssueToken(models.User{ID: uuid.New(), Role: domain.Role("GUEST")}, time.Hour)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	setupJWT(t)
	now := time.Now()
	valid := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    "betflow",
		Audience:  jwt.ClaimStrings{"betflow-staff"},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	otherAudience := valid
	otherAudience.Audience = jwt.ClaimStrings{"someone-else"}
	badSubject := valid
	badSubject.Subject = "not-a-uuid"
	noExpiry := valid
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"basic scheme", "Basic Z2l1bGlhOnB3"},
		{"garbage", "Bearer not.a.jwt"},
		{"expired", "Bearer " + signClaims(t, staffClaims{Role: domain.RoleAdmin, RegisteredClaims: expired})},
		{"wrong audience", "Bearer " + signClaims(t, staffClaims{Role: domain.RoleAdmin, RegisteredClaims: otherAudience})},
		{"subject not a user id", "Bearer " + signClaims(t, staffClaims{Role: domain.RoleAdmin, RegisteredClaims: badSubject})},
		{"unknown role", "Bearer " + signClaims(t, staffClaims{Role: domain.Role("GUEST"), RegisteredClaims: valid})},
		{"no expiry", "Bearer " + signClaims(t, staffClaims{Role: domain.RoleAdmin, RegisteredClaims: noExpiry})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(AuthMiddleware(echoPrincipal()), tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
		})
	}
}

func TestRequireRole(t *testing.T) {
	setupJWT(t)
	adminOnly := AuthMiddleware(RequireRole(domain.RoleAdmin)(echoPrincipal()))

	manager, _, err := IssueToken(models.User{ID: uuid.New(), Role: domain.RoleManager}, time.Hour)
	require.NoError(t, err)
	admin, _, err := IssueToken(models.User{ID: uuid.New(), Role: domain.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, serve(adminOnly, "Bearer "+manager).Code)
	assert.Equal(t, http.StatusOK, serve(adminOnly, "Bearer "+admin).Code)

	// Without AuthMiddleware there is no principal to check.
	assert.Equal(t, http.StatusForbidden, serve(RequireRole(domain.RoleAdmin)(echoPrincipal()), "").Code)
}
