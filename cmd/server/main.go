package main

import (
	"alcyxob/adherence-app/internal/api"
	"alcyxob/adherence-app/internal/config"
	"alcyxob/adherence-app/internal/domain"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// @title Plan Adherence API
// @version 1.0
// @description Weekly meal and exercise templates, materialized calendars, tracking and adherence rollups.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

var (
	rootCmd = &cobra.Command{
		Use:   "adherence",
		Short: "Plan materialization and adherence server",
		Long: `Serves weekly meal and exercise templates, materializes them into
per-date calendar entries and rolls tracked completions up into summaries.`,
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	ensureIndexesCmd = &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create database indexes (mongo) or schema (sqlite) and exit",
		RunE:  runEnsureIndexes,
	}
	issueTokenCmd = &cobra.Command{
		Use:   "issue-token",
		Short: "Print a signed bearer token for a user id and role",
		RunE:  runIssueToken,
	}

	configDir string
	tokenUser string
	tokenRole string
	tokenTTL  time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", ".", "directory containing config.yaml")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ensureIndexesCmd)
	rootCmd.AddCommand(issueTokenCmd)
	issueTokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id (24 hex characters); generated when empty")
	issueTokenCmd.Flags().StringVar(&tokenRole, "role", string(domain.RoleSubject), "planner or subject")
	issueTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return cfg, fmt.Errorf("could not load config: %w", err)
	}
	log.Printf("INFO: Configuration loaded (driver=%s).", cfg.Database.Driver)
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	log.Println("INFO: Starting adherence server...")

	// --- Configuration ---
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret must be set")
	}

	// --- Database Connection ---
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	be, err := openBackend(ctx, cfg.Database)
	cancel()
	if err != nil {
		return err
	}
	defer be.close()

	// --- Initialize Services ---
	app, err := buildApp(cmd.Context(), cfg, be)
	if err != nil {
		return err
	}

	// --- Initialize Gin Engine ---
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	log.Println("INFO: Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT.Secret, app.plans, app.progress, app.trends)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("INFO: Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}
	log.Println("INFO: Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("INFO: Server exiting.")
	return nil
}

func runEnsureIndexes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	be, err := openBackend(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer be.close()

	if err := be.ensure(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	log.Println("INFO: Index creation process completed.")
	return nil
}

func runIssueToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	role := domain.Role(tokenRole)
	if role != domain.RolePlanner && role != domain.RoleSubject {
		return fmt.Errorf("role must be %s or %s", domain.RolePlanner, domain.RoleSubject)
	}
	userID := primitive.NewObjectID()
	if tokenUser != "" {
		if userID, err = primitive.ObjectIDFromHex(tokenUser); err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}
	}

	token, err := api.IssueToken(cfg.JWT.Secret, userID, role, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "user: %s\ntoken: %s\n", userID.Hex(), token)
	return nil
}
