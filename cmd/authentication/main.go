// This is a **mock authentication service**, designed to provide JWT tokens
// for the capacity service, simulating user authentication.
//
//	GET /token?role=company&company_id=<uuid>&email=ops@acme.test
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gartstein/capacity/internal/capacity/auth"
	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
)

const (
	defaultPort   = "8081"       // Default port for the authentication service
	defaultSecret = "jwt_secret" // Secret for signing JWT
	tokenTTL      = 24 * time.Hour
)

// TokenResponse represents the response structure
type TokenResponse struct {
	Token string `json:"token"`
}

// tokenHandler issues a token for the role and company in the query.
func tokenHandler(secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		actor := auth.Actor{
			ID:    q.Get("sub"),
			Role:  auth.Role(q.Get("role")),
			Email: q.Get("email"),
		}
		if actor.ID == "" {
			actor.ID = "12345"
		}
		if actor.Role == "" {
			actor.Role = auth.RoleSupplier
		}
		if !actor.Role.Valid() {
			http.Error(w, "unknown role", http.StatusBadRequest)
			return
		}
		if raw := q.Get("company_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, "invalid company_id", http.StatusBadRequest)
				return
			}
			actor.CompanyID = id
		}
		if actor.Role == auth.RoleCompany && actor.CompanyID == uuid.Nil {
			http.Error(w, "company role requires company_id", http.StatusBadRequest)
			return
		}

		token, err := auth.GenerateToken(actor, secret, tokenTTL)
		if err != nil {
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(TokenResponse{Token: token}); err != nil {
			http.Error(w, "Failed to encode token", http.StatusInternalServerError)
		}
	}
}

func main() {
	port := getEnv("AUTH_PORT", defaultPort)
	secret := getEnv("JWT_SECRET", defaultSecret)

	http.HandleFunc("/token", tokenHandler(secret))

	log.Printf("Authentication service running on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
