package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang-jwt/jwt/v5/request"
	"github.com/profound-academy/backend/httpjson"
	"github.com/profound-academy/backend/srvcerror"
)

// JwtClaims identify the caller. The user id is carried in UUID, falling
// back to the registered subject.
type JwtClaims struct {
	UUID        string `json:"uuid,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	jwt.RegisteredClaims
}

func (c *JwtClaims) UserID() string {
	if c == nil {
		return ""
	}
	if c.UUID != "" {
		return c.UUID
	}
	return c.Subject
}

type ClaimsKeyType string

var CtxJwtClaimsKey ClaimsKeyType = "jwtClaims"

func GenerateJWT(userID, displayName string, ttl time.Duration, jwtKey []byte) (string, error) {
	claims := &JwtClaims{
		UUID:        userID,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

func ValidateJWT(tokenStr string, jwtKey []byte) (*JwtClaims, error) {
	claims := &JwtClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return jwtKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return nil, errors.New("invalid token signature")
		}
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID() == "" {
		return nil, errors.New("token does not name a user")
	}
	return claims, nil
}

// ClaimsFromContext returns nil for anonymous requests.
func ClaimsFromContext(ctx context.Context) *JwtClaims {
	claims, _ := ctx.Value(CtxJwtClaimsKey).(*JwtClaims)
	return claims
}

// GetJwtAuthMiddleware validates a bearer token when one is present and
// adds its claims to the request context. Requests without a token pass
// through anonymously.
func GetJwtAuthMiddleware(jwtKey []byte) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, err := request.BearerExtractor{}.ExtractToken(r)
			if err != nil {
				if errors.Is(err, request.ErrNoTokenInRequest) {
					ctx := context.WithValue(r.Context(), CtxJwtClaimsKey, (*JwtClaims)(nil))
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				httpjson.HandleError(slog.Default(), w, srvcerror.ErrUnauthorized("malformed authorization header").SetDebug(err))
				return
			}

			claims, err := ValidateJWT(token, jwtKey)
			if err != nil {
				httpjson.HandleError(slog.Default(), w, srvcerror.ErrUnauthorized("invalid token").SetDebug(err))
				return
			}

			ctx := context.WithValue(r.Context(), CtxJwtClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(hfn)
	}
}

// RequireUser rejects anonymous requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ClaimsFromContext(r.Context()) == nil {
			httpjson.HandleError(slog.Default(), w, srvcerror.ErrUnauthorized("authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
