package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eduquery-ai/eduquery/internal/config"
	"github.com/eduquery-ai/eduquery/internal/database"
	"github.com/eduquery-ai/eduquery/internal/domain"
	"github.com/eduquery-ai/eduquery/internal/repository"
	"github.com/eduquery-ai/eduquery/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func UserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
		Long:  "Create student and teacher accounts",
	}

	cmd.AddCommand(UserCreateCmd())

	return cmd
}

func UserCreateCmd() *cobra.Command {
	var (
		name      string
		role      string
		className string
	)

	cmd := &cobra.Command{
		Use:   "create <username> <password>",
		Short: "Create a new user account",
		Long:  "Create a new student or teacher account with the given credentials",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runUserCreate(args[0], args[1], name, role, className, outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to username)")
	cmd.Flags().StringVar(&role, "role", "student", "Account role (student or teacher)")
	cmd.Flags().StringVar(&className, "class", "", "Class name (students only)")

	return cmd
}

func runUserCreate(username, password, name, role, className, outputFormat string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	authSvc := service.NewAuthService(userRepo, sessionRepo)

	if name == "" {
		name = username
	}

	user, err := authSvc.Register(ctx, service.RegisterInput{
		Name:      name,
		Username:  username,
		Password:  password,
		Role:      domain.Role(role),
		ClassName: className,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":         user.ID,
			"username":   user.Username,
			"role":       string(user.Role),
			"created_at": user.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("User created: %s [%s] (%s)\n", user.Username, user.Role, user.ID)
	}

	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
}
