// Command createadmin creates or updates a user with the requested role and,
// optionally, a password. Flags override the ADMIN_* environment variables.
//
//	createadmin --email root@example.com --password '...' --role admin
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/iliyamo/oob-marketplace/internal/config"
	"github.com/iliyamo/oob-marketplace/internal/database"
	"github.com/iliyamo/oob-marketplace/internal/logging"
	"github.com/iliyamo/oob-marketplace/internal/model"
	"github.com/iliyamo/oob-marketplace/internal/repository"
	"github.com/iliyamo/oob-marketplace/internal/service"
)

func main() {
	cfg, err := config.LoadAdmin()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(2)
	}

	email := flag.String("email", cfg.Email, "user email (ADMIN_EMAIL)")
	password := flag.String("password", cfg.Password, "user password, empty keeps/omits it (ADMIN_PASSWORD)")
	name := flag.String("name", cfg.Name, "display name for a new user (ADMIN_NAME)")
	role := flag.String("role", cfg.Role, "buyer, seller or admin (ADMIN_ROLE)")
	flag.Parse()

	log := logging.New(cfg.IsProduction(), cfg.LogLevel)

	r, ok := model.ParseRole(*role)
	if !ok {
		fmt.Fprintf(os.Stderr, "ERROR: unknown role %q\n", *role)
		os.Exit(2)
	}
	if *email == "" {
		fmt.Fprintln(os.Stderr, "ERROR: email is required (pass --email or set ADMIN_EMAIL)")
		os.Exit(2)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Error("failed to connect to MySQL", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if cfg.Database.ApplySchema {
		if err := database.ApplySchema(ctx, db); err != nil {
			log.Error("failed to apply schema", "err", err)
			os.Exit(1)
		}
	}

	res, err := service.ProvisionUser(ctx, repository.NewUserRepo(db), service.ProvisionInput{
		Email:    *email,
		Password: *password,
		Name:     *name,
		Role:     r,
	}, cfg.BcryptCost)
	if err != nil {
		log.Error("provision user failed", "err", err)
		os.Exit(1)
	}

	switch {
	case res.Created:
		fmt.Printf("Created user %s with role=%s\n", res.User.Email, res.User.Role)
	case res.PasswordSet || res.RoleChanged:
		fmt.Printf("Updated user %s (password=%t role=%s)\n", res.User.Email, res.PasswordSet, res.User.Role)
	default:
		fmt.Printf("User %s exists; nothing to update.\n", res.User.Email)
	}
}
