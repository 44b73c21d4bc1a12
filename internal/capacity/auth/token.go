package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "auth-service"

// Claims is the token payload issued to capacity service callers.
type Claims struct {
	Role      Role   `json:"role"`
	CompanyID string `json:"company_id,omitempty"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for actor valid for ttl.
func GenerateToken(actor Actor, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:  actor.Role,
		Email: actor.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if actor.CompanyID != uuid.Nil {
		claims.CompanyID = actor.CompanyID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// validateToken checks the token signature and expiry and returns the actor
// it describes.
func validateToken(tokenString, secret string) (*Actor, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if !claims.Role.Valid() {
		return nil, fmt.Errorf("invalid role %q", claims.Role)
	}
	actor := &Actor{ID: claims.Subject, Role: claims.Role, Email: claims.Email}
	if claims.CompanyID != "" {
		id, err := uuid.Parse(claims.CompanyID)
		if err != nil {
			return nil, fmt.Errorf("invalid company_id claim: %w", err)
		}
		actor.CompanyID = id
	}
	if actor.Role == RoleCompany && actor.CompanyID == uuid.Nil {
		return nil, fmt.Errorf("company role requires a company_id claim")
	}
	return actor, nil
}
