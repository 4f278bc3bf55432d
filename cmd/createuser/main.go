// Command createuser adds an account that can obtain API tokens.
//
//	createuser --username admin --email admin@example.com --password ... --staff
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/crudkit/sampleapi/internal/config"
	"github.com/crudkit/sampleapi/internal/pkg/logger"
	"github.com/crudkit/sampleapi/internal/repository"
	"github.com/crudkit/sampleapi/internal/service"
	"github.com/spf13/pflag"
)

func main() {
	username := pflag.String("username", "", "login name (required)")
	email := pflag.String("email", "", "email address")
	password := pflag.String("password", "", "password, at least 8 characters (required)")
	staff := pflag.Bool("staff", false, "grant access to the api-logs endpoints")
	pflag.Parse()

	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F93939")).Bold(true)
	fail := func(err error) {
		fmt.Fprintln(os.Stderr, errorStyle.Render("■ ERROR: ")+err.Error())
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	logger.Init(cfg.Log.Level)
	defer logger.Sync()

	if cfg.Database.DSN == "" {
		fail(fmt.Errorf("database.dsn is not set; users cannot be persisted"))
	}
	db, err := repository.NewDB(cfg)
	if err != nil {
		fail(err)
	}

	auth, err := service.NewAuthService(cfg, repository.NewPostgresUserRepo(db))
	if err != nil {
		fail(err)
	}
	user, err := auth.CreateUser(context.Background(), service.CreateUserRequest{
		Username: *username,
		Email:    *email,
		Password: *password,
		IsStaff:  *staff,
	})
	if err != nil {
		fail(err)
	}

	kind := "user"
	if user.IsStaff {
		kind = "staff user"
	}
	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#2ECC71")).Bold(true).
		Render(fmt.Sprintf("Created %s %q (id %d)", kind, user.Username, user.ID)))
}
