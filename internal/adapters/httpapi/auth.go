package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const claimsKey = "imagedb.claims"

// Claims are the JWT claims the API understands.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// AuthConfig configures token verification.
type AuthConfig struct {
	Secret    string
	Issuer    string
	AdminRole string
	// Disabled treats every caller as an anonymous admin.
	Disabled bool
}

// Authenticator verifies HS256 bearer tokens and gates mutations on the
// admin role.
type Authenticator struct {
	secret    []byte
	issuer    string
	adminRole string
	disabled  bool
}

func NewAuthenticator(cfg AuthConfig) *Authenticator {
	role := cfg.AdminRole
	if role == "" {
		role = "admin"
	}
	return &Authenticator{secret: []byte(cfg.Secret), issuer: cfg.Issuer, adminRole: role, disabled: cfg.Disabled}
}

// Issue signs a token for subject with the given role.
func (a *Authenticator) Issue(subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns its claims.
func (a *Authenticator) Parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("token is empty")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Identify attaches the caller's claims to the context when a bearer token
// is present. An invalid token is rejected; a missing one is not.
func (a *Authenticator) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.disabled {
			c.Set(claimsKey, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "anonymous"}, Role: a.adminRole})
			c.Next()
			return
		}
		raw := bearerToken(c)
		if raw == "" {
			c.Next()
			return
		}
		claims, err := a.Parse(raw)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "unauthorized", err)
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role.
func (a *Authenticator) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFrom(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
			return
		}
		if claims.Role != a.adminRole {
			respondError(c, http.StatusForbidden, "forbidden", fmt.Errorf("role %q may not modify the catalog", claims.Role))
			return
		}
		c.Next()
	}
}

func claimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

type identityResponse struct {
	Subject   string     `json:"subject"`
	Role      string     `json:"role"`
	Issuer    string     `json:"issuer,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Admin     bool       `json:"admin"`
}

func (a *Authenticator) identity(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
		return
	}
	out := identityResponse{Subject: claims.Subject, Role: claims.Role, Issuer: claims.Issuer, Admin: claims.Role == a.adminRole}
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time
		out.ExpiresAt = &t
	}
	c.JSON(http.StatusOK, out)
}
