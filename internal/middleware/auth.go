package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
)

// accessClaims mirrors the claims issued by the auth service
type accessClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

var (
	errMissingAuthHeader = errors.New("missing authorization header")
	errAuthHeaderFormat  = errors.New("invalid authorization header format")
	errTokenExpired      = errors.New("token expired")
	errInvalidToken      = errors.New("invalid token")
	errTokenClaims       = errors.New("invalid token claims")
)

// parseBearer validates the request's bearer token and returns its claims.
// Errors carry the message sent to the client.
func parseBearer(r *http.Request, keyFunc jwt.Keyfunc) (*accessClaims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, errMissingAuthHeader
	}

	scheme, tokenString, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
		return nil, errAuthHeaderFormat
	}

	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", errTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", errInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" || claims.Role == "" {
		return nil, errTokenClaims
	}

	return claims, nil
}

func withClaims(r *http.Request, claims *accessClaims) *http.Request {
	ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
	return r.WithContext(ctx)
}

func hmacKey(jwtSecret string) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	}
}

// AuthMiddleware validates HS256 bearer tokens and stores the user id and role in the request context
func AuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	keyFunc := hmacKey(jwtSecret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := parseBearer(r, keyFunc)
			if err != nil {
				switch {
				case errors.Is(err, errTokenClaims):
					logger.Warn("Token is missing required claims")
				case errors.Is(err, errMissingAuthHeader):
					logger.Debug("Missing authorization header", zap.String("path", r.URL.Path))
				default:
					logger.Debug("Token validation failed", zap.Error(err))
				}
				RespondWithError(w, http.StatusUnauthorized, clientMessage(err))
				return
			}

			next.ServeHTTP(w, withClaims(r, claims))
		})
	}
}

// IdentifyUser stores the caller's user id and role when the request carries
// a valid bearer token. Other requests pass through untouched; enforcement is
// left to AuthMiddleware.
func IdentifyUser(jwtSecret string) func(http.Handler) http.Handler {
	keyFunc := hmacKey(jwtSecret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, err := parseBearer(r, keyFunc); err == nil {
				r = withClaims(r, claims)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientMessage(err error) string {
	for _, known := range []error{errMissingAuthHeader, errAuthHeaderFormat, errTokenExpired, errInvalidToken, errTokenClaims} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return errInvalidToken.Error()
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetUserRole extracts user role from request context
func GetUserRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(UserRoleKey).(string)
	return role, ok
}
