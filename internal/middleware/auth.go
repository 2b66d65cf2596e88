package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/oliklab/mledger-sub000/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ClaimsKey = "claims"
	UserIDKey = "user_id"
)

// JWTClaims are the claims the identity provider embeds in every access
// token. Billing is only visible to us as SubscriptionActive.
type JWTClaims struct {
	UserID             string `json:"user_id"`
	SubscriptionActive bool   `json:"subscription_active"`
	jwt.RegisteredClaims
}

// JWTAuth validates the Bearer token on every protected route and stores the
// caller's user id, which scopes every query downstream.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("invalid or expired token"))
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("token carries no valid user id"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// RequireActiveSubscription rejects writes from users whose subscription
// lapsed. Reads stay available.
func RequireActiveSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || !claims.SubscriptionActive {
			c.AbortWithStatusJSON(http.StatusPaymentRequired,
				apierror.WithCode("subscription_inactive", "an active subscription is required for this operation"))
			return
		}
		c.Next()
	}
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
func GetClaims(c *gin.Context) *JWTClaims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*JWTClaims)
	return claims
}

// UserID returns the authenticated user id set by JWTAuth.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// SignToken issues an HS256 token in the identity provider's format. Used by
// cmd/devtoken and tests; production tokens come from the provider.
func SignToken(secret string, userID uuid.UUID, subscriptionActive bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID:             userID.String(),
		SubscriptionActive: subscriptionActive,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
