// JWT sessions, password hashing and the fasthttp auth middleware
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"resumotube/m/v2/app/models"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"
)

const (
	BCRYPT_COST     = 10
	SESSION_TTL     = 30 * 24 * time.Hour
	RESET_TOKEN_TTL = time.Hour

	userValueKey = "auth_user"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for the user. A zero ttl issues a token without expiry.
func GenerateToken(secret, userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("GenerateToken: failed to sign token: %w", err)
	}
	return signed, nil
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("ParseToken: %w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("ParseToken: %w", ErrInvalidToken)
	}
	return claims, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BCRYPT_COST)
	if err != nil {
		return "", fmt.Errorf("HashPassword: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Middleware rejects requests without a valid bearer token and stores the claims on the request.
func Middleware(secret string, next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		header := string(ctx.Request.Header.Peek("Authorization"))
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			unauthorized(ctx)
			return
		}
		claims, err := ParseToken(secret, tokenString)
		if err != nil {
			log.WithError(err).WithField("path", string(ctx.Path())).Debug("auth: rejected token")
			unauthorized(ctx)
			return
		}
		ctx.SetUserValue(userValueKey, models.AuthUser{UserID: claims.UserID, Email: claims.Email})
		next(ctx)
	}
}

func unauthorized(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(http.StatusUnauthorized)
	ctx.SetBodyString(`{"error":"Please authenticate"}`)
}

// UserFromContext returns the user stored by Middleware.
func UserFromContext(ctx *fasthttp.RequestCtx) (models.AuthUser, bool) {
	user, ok := ctx.UserValue(userValueKey).(models.AuthUser)
	return user, ok && user.Email != ""
}
