// Command kairosctl bootstraps a Kairos deployment: it connects to the
// configured database, runs migrations, and creates an admin account
// interactively. The password is read from the terminal without echo.
package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/kairosweb/kairos/internal/server/auth"
	"github.com/kairosweb/kairos/internal/server/config"
	"github.com/kairosweb/kairos/internal/server/models"
	"github.com/kairosweb/kairos/internal/server/repositories/repomanager"
)

func readLine(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Print(prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	return pw, err
}

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	reader := bufio.NewReader(os.Stdin)

	name, err := readLine(reader, "Admin name: ")
	if err != nil {
		log.Fatalf("%v", err)
	}
	email, err := readLine(reader, "Admin email: ")
	if err != nil {
		log.Fatalf("%v", err)
	}
	if name == "" || email == "" {
		log.Fatal("name and email are required")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		log.Fatalf("%v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		log.Fatalf("%v", err)
	}
	if !bytes.Equal(password, confirm) {
		log.Fatal("passwords do not match")
	}
	if len(password) < 8 {
		log.Fatal("password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(string(password), cfg.BcryptCost)
	if err != nil {
		log.Fatalf("%v", err)
	}

	store, err := repomanager.New(cfg)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer store.Close()

	user := &models.User{
		Name:         name,
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}

	id, err := store.Users().Register(ctx, user, &models.UserProfile{})
	if err != nil {
		log.Fatalf("could not create admin: %v", err)
	}

	fmt.Printf("Admin user %q created with id %d\n", user.Email, id)
}
