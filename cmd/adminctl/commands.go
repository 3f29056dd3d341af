package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/healthcare-admin-api/internal/models"
	"github.com/noah-isme/healthcare-admin-api/internal/repository"
	"github.com/noah-isme/healthcare-admin-api/internal/service"
	"github.com/noah-isme/healthcare-admin-api/pkg/config"
	"github.com/noah-isme/healthcare-admin-api/pkg/database"
	"github.com/noah-isme/healthcare-admin-api/pkg/logger"
)

var (
	adminEmail    string
	adminPassword string
	adminName     string
	adminRole     string
	timeout       time.Duration

	rootCmd = &cobra.Command{
		Use:          "adminctl",
		Short:        "Operator tooling for the healthcare admin API",
		SilenceUsage: true,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE:  runMigrate,
	}

	createAdminCmd = &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE:  runCreateAdmin,
	}
)

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "deadline for database work")

	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "login email (required)")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "initial password, at least 8 characters (required)")
	createAdminCmd.Flags().StringVar(&adminName, "name", "", "full name (required)")
	createAdminCmd.Flags().StringVar(&adminRole, "role", string(models.RoleAdmin), "SUPERADMIN, ADMIN or STAFF")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
	_ = createAdminCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(migrateCmd, createAdminCmd)
}

type environment struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func (e *environment) close() {
	_ = e.db.Close()
	_ = e.logger.Sync()
}

func connect() (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &environment{db: db, logger: logr}, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	env, err := connect()
	if err != nil {
		return err
	}
	defer env.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	if err := database.Migrate(ctx, env.db); err != nil {
		return err
	}
	env.logger.Info("schema applied")
	return nil
}

func runCreateAdmin(cmd *cobra.Command, _ []string) error {
	env, err := connect()
	if err != nil {
		return err
	}
	defer env.close()

	users := service.NewUserService(repository.NewUserRepository(env.db), nil, env.logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	user, err := users.Create(ctx, service.CreateUserRequest{
		Email:    adminEmail,
		Password: adminPassword,
		FullName: adminName,
		Role:     models.UserRole(adminRole),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Email, user.ID)
	return nil
}
