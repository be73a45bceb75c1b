// Package middleware provides authentication, logging, tracing and rate limiting middleware.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// TokenIssuer is the iss claim of every token we mint.
	TokenIssuer = "kinship-api"
	// TokenAudience is the aud claim of every token we mint.
	TokenAudience = "kinship-client"

	blacklistPrefix = "blacklist:"
)

// Claims are the JWT claims carried by access tokens.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID parses the subject into a user id.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid user ID in token")
	}
	return uint(id), nil
}

// IssueToken signs an HS256 access token for userID valid for ttl.
func IssueToken(secret string, userID uint, ttl time.Duration) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// ParseToken validates signature, expiry, issuer and audience.
func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// RevokeToken blacklists the jti until the token would have expired anyway.
func RevokeToken(ctx context.Context, rdb *redis.Client, claims *Claims) error {
	if rdb == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return rdb.Set(ctx, blacklistPrefix+claims.ID, "1", ttl).Err()
}

func isRevoked(ctx context.Context, rdb *redis.Client, jti string) bool {
	if rdb == nil || jti == "" {
		return false
	}
	n, err := rdb.Exists(ctx, blacklistPrefix+jti).Result()
	// An unreachable blacklist does not lock everyone out.
	return err == nil && n > 0
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("Authorization header required")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.New("Invalid authorization header format")
	}
	return parts[1], nil
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
}

func authenticate(c *fiber.Ctx, secret string, rdb *redis.Client, raw string) error {
	claims, err := ParseToken(secret, raw)
	if err != nil {
		return unauthorized(c, "Invalid or expired token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return unauthorized(c, "Invalid user ID in token")
	}
	if isRevoked(c.UserContext(), rdb, claims.ID) {
		return unauthorized(c, "Token has been revoked")
	}

	c.Locals("userID", userID)
	c.Locals("claims", claims)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
	return c.Next()
}

// AuthRequired enforces a valid bearer token and stores the caller id in
// c.Locals("userID") and the request context.
func AuthRequired(secret string, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := bearerToken(c)
		if err != nil {
			return unauthorized(c, err.Error())
		}
		return authenticate(c, secret, rdb, raw)
	}
}

// WebSocketAuthRequired accepts the token as ?token= (browsers cannot set
// headers on websocket upgrades) and falls back to the Authorization header.
func WebSocketAuthRequired(secret string, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Query("token")
		if raw == "" {
			var err error
			if raw, err = bearerToken(c); err != nil {
				return unauthorized(c, "Token required")
			}
		}
		return authenticate(c, secret, rdb, raw)
	}
}

// ClaimsFromCtx returns the claims stored by AuthRequired.
func ClaimsFromCtx(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals("claims").(*Claims)
	return claims
}
