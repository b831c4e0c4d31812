package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	tokenString, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return tokenString
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// Protected endpoints reject requests without a token
func TestProperty_ProtectedEndpointsRejectMissingTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("requests without authorization header are rejected", prop.ForAll(
		func(pathSuffix string, method string) bool {
			handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

			path := "/api/" + pathSuffix
			req := httptest.NewRequest(method, path, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
		gen.OneConstOf("GET", "POST", "PUT", "PATCH", "DELETE"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ExpiredTokensAreRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("expired tokens are rejected with 401", prop.ForAll(
		func(role string, minutesAgo int) bool {
			handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

			tokenString := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
				"user_id": uuid.New().String(),
				"role":    role,
				"exp":     time.Now().Add(-time.Duration(minutesAgo) * time.Minute).Unix(),
			})

			req := httptest.NewRequest("GET", "/api/products", nil)
			req.Header.Set("Authorization", "Bearer "+tokenString)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.OneConstOf("staff", "admin"),
		gen.IntRange(1, 60*24),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ValidTokensAllowProcessing(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid tokens expose user id and role to handlers", prop.ForAll(
		func(userID string, role string) bool {
			handler := AuthMiddleware(testSecret, zap.NewNop())

			tokenString := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
				"user_id": userID,
				"role":    role,
				"exp":     time.Now().Add(time.Hour).Unix(),
			})

			handlerCalled := false
			h := handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true

				ctxUserID, ok1 := GetUserID(r.Context())
				ctxRole, ok2 := GetUserRole(r.Context())
				if !ok1 || !ok2 || ctxUserID != userID || ctxRole != role {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}

				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/api/orders", nil)
			req.Header.Set("Authorization", "Bearer "+tokenString)
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			return handlerCalled && w.Code == http.StatusOK
		},
		gen.Identifier(),
		gen.OneConstOf("staff", "admin"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_InvalidTokenFormatRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("invalid token formats are rejected", prop.ForAll(
		func(invalidToken string) bool {
			handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

			req := httptest.NewRequest("GET", "/api/customers", nil)
			req.Header.Set("Authorization", "Bearer "+invalidToken)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_MissingBearerPrefixRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("tokens without Bearer prefix are rejected", prop.ForAll(
		func(token string) bool {
			handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

			req := httptest.NewRequest("GET", "/api/inventory", nil)
			req.Header.Set("Authorization", token)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestAuthMiddleware_RejectsOtherSigningMethods(t *testing.T) {
	handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

	tokenString := signToken(t, jwt.SigningMethodHS512, jwt.MapClaims{
		"user_id": uuid.New().String(),
		"role":    "admin",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest("GET", "/api/products", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_RejectsTokensWithoutRole(t *testing.T) {
	handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

	tokenString := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.New().String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest("GET", "/api/products", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_ExpiredTokenMessage(t *testing.T) {
	handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

	tokenString := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.New().String(),
		"role":    "staff",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})

	req := httptest.NewRequest("GET", "/api/products", nil)
	req.Header.Set("Authorization", "bearer "+tokenString)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token expired")
}

func TestIdentifyUser_NeverRejects(t *testing.T) {
	var gotID, gotRole string
	var identified bool
	handler := IdentifyUser(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, identified = GetUserID(r.Context())
		gotRole, _ = GetUserRole(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	userID := uuid.NewString()
	valid := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    "admin",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	expired := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    "admin",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})

	tests := []struct {
		name       string
		header     string
		identified bool
	}{
		{"valid token", "Bearer " + valid, true},
		{"no header", "", false},
		{"expired token", "Bearer " + expired, false},
		{"garbage", "Bearer nonsense", false},
		{"wrong scheme", "Basic " + valid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID, gotRole, identified = "", "", false
			req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.identified, identified)
			if tt.identified {
				assert.Equal(t, userID, gotID)
				assert.Equal(t, "admin", gotRole)
			}
		})
	}
}
