package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"podclip-backend/internal/database"
	"podclip-backend/internal/middleware"
	"podclip-backend/internal/models"
	"podclip-backend/internal/repository"
)

// seed-user creates (or tops up) a local user and prints a bearer token for
// calling the API without the sign-in service.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: go run ./cmd/seed-user <email> [credits]")
		os.Exit(2)
	}
	email := strings.TrimSpace(os.Args[1])

	credits := 10
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n < 0 {
			log.Fatalf("credits must be a non-negative integer, got %q", os.Args[2])
		}
		credits = n
	}

	godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	secret := os.Getenv("JWT_SECRET")
	if dsn == "" || secret == "" {
		log.Fatal("DATABASE_URL and JWT_SECRET must be set")
	}

	pool, err := database.NewPostgresPool(dsn)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(pool); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	user := &models.User{Email: email, Credits: credits}
	if err := repository.NewUserRepo(pool).Create(context.Background(), user); err != nil {
		log.Fatalf("failed to create user: %v", err)
	}

	token, err := middleware.NewJWTAuth(secret).GenerateAccessToken(user.ID, user.Email, 24*time.Hour)
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}

	fmt.Printf("user %s id=%s credits=%d\n", user.Email, user.ID, user.Credits)
	fmt.Printf("token (24h): %s\n", token)
}
