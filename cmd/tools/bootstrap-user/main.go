// Command bootstrap-user seeds the first account in the datastore so a fresh
// deployment has someone who can sign in.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"vidtube/internal/models"
	"vidtube/internal/storage"
)

func main() {
	var (
		jsonPath    string
		postgresDSN string
		username    string
		email       string
		fullName    string
		password    string
	)

	flag.StringVar(&jsonPath, "json", "", "Path to the JSON datastore (store.json)")
	flag.StringVar(&postgresDSN, "postgres-dsn", "", "Postgres connection string")
	flag.StringVar(&username, "username", "", "Username for the account")
	flag.StringVar(&email, "email", "", "Email address for the account")
	flag.StringVar(&fullName, "name", "", "Full name for the account")
	flag.StringVar(&password, "password", "", "Password for the account")
	flag.Parse()

	if jsonPath == "" && postgresDSN == "" {
		fatalf("either --json or --postgres-dsn must be provided")
	}
	if jsonPath != "" && postgresDSN != "" {
		fatalf("only one datastore option may be provided")
	}
	if strings.TrimSpace(username) == "" {
		fatalf("--username is required")
	}
	if strings.TrimSpace(email) == "" {
		fatalf("--email is required")
	}
	if strings.TrimSpace(fullName) == "" {
		fatalf("--name is required")
	}
	if len(password) < 8 {
		fatalf("--password must be at least 8 characters")
	}

	repo, err := openRepository(postgresDSN != "", jsonPath, postgresDSN)
	if err != nil {
		fatalf("open datastore: %v", err)
	}
	defer closeRepository(repo)

	user, err := bootstrapUser(repo, username, email, fullName, password)
	if err != nil {
		fatalf("bootstrap user: %v", err)
	}

	fmt.Printf("User %s (%s) created successfully.\n", user.Username, user.Email)
	fmt.Println("Remember to rotate this password after the first login.")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func openRepository(usePostgres bool, jsonPath, postgresDSN string) (storage.Repository, error) {
	if !usePostgres {
		return storage.NewStorage(jsonPath)
	}
	repo, err := storage.NewPostgresRepository(storage.PostgresConfig{DSN: postgresDSN})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := repo.Migrate(ctx); err != nil {
		_ = repo.Close(context.Background())
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return repo, nil
}

func closeRepository(repo storage.Repository) {
	type closer interface {
		Close(context.Context) error
	}
	if c, ok := repo.(closer); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Close(ctx)
	}
}

func bootstrapUser(repo storage.Repository, username, email, fullName, password string) (models.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(username))
	if existing, ok := repo.FindUserByUsername(normalized); ok {
		return models.User{}, fmt.Errorf("username %q is already taken by %s", normalized, existing.Email)
	}

	user, err := repo.CreateUser(storage.CreateUserParams{
		Username: normalized,
		Email:    strings.ToLower(strings.TrimSpace(email)),
		FullName: strings.TrimSpace(fullName),
		Password: password,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return models.User{}, fmt.Errorf("an account with that email already exists")
		}
		return models.User{}, err
	}
	return user, nil
}
