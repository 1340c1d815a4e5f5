package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/erimeilis/store-sub004/pkg/auth"
	"github.com/erimeilis/store-sub004/pkg/models"
)

// Mints a signed JWT for a user so E2E scripts can call the API without an
// upstream identity provider. Loads .env so the secret matches the server.
func main() {
	admin := flag.Bool("admin", false, "grant admin privileges")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("Usage: mint-token [-admin] <user_id> [name]")
	}

	_ = godotenv.Load()

	user := models.UserContext{
		ID:      flag.Arg(0),
		Name:    flag.Arg(1),
		IsAdmin: *admin,
	}
	if user.Name == "" {
		user.Name = user.ID
	}

	token, err := auth.GenerateToken(user)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	// Output token to stdout
	fmt.Print(token)
}
