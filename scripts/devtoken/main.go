package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/internal/service"
	"github.com/noah-isme/sma-substitution-api/pkg/config"
)

// devtoken mints an access token signed with the configured JWT secret, for local testing
// without the identity provider.
func main() {
	var (
		id     string
		name   string
		role   string
		email  string
		expiry time.Duration
	)

	flag.StringVar(&id, "id", "", "User ID (random when empty)")
	flag.StringVar(&name, "name", "Dev Teacher", "Full name shown on requests")
	flag.StringVar(&role, "role", string(models.RoleTeacher), "student, teacher or admin")
	flag.StringVar(&email, "email", "", "Optional email claim")
	flag.DurationVar(&expiry, "expiry", 0, "Token lifetime (defaults to JWT_EXPIRATION)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if expiry <= 0 {
		expiry = cfg.JWT.Expiration
	}
	if id == "" {
		id = uuid.NewString()
	}

	auth := service.NewAuthService(service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: expiry,
		Issuer:            cfg.JWT.Issuer,
	})
	token, expiresAt, err := auth.IssueToken(models.Session{ID: id, FullName: name, Role: models.UserRole(role)}, email)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "user %s (%s) valid until %s\n", id, role, expiresAt.Format(time.RFC3339))
	fmt.Println(token)
}
