package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/class-attend/internal/config"
	"github.com/kozaktomas/class-attend/internal/database"
	"github.com/kozaktomas/class-attend/internal/database/postgres"
	"github.com/kozaktomas/class-attend/internal/detect"
	"github.com/kozaktomas/class-attend/internal/recognize"
	"github.com/kozaktomas/class-attend/internal/roster"
	"github.com/kozaktomas/class-attend/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the attendance web server.
The server exposes a JSON API for submitting classroom captures, managing
the student roster and teacher accounts, and pulling attendance reports.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	rosterRepo := postgres.NewRosterRepository(pool, cfg.Detector.Dim)
	ledger := postgres.NewAttendanceRepository(pool)
	teacherRepo := postgres.NewTeacherRepository(pool)

	// Build the in-memory encoding index for enrollment near-duplicate
	// warnings. Matching itself scans the roster exactly.
	students, err := rosterRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}
	index := database.NewEncodingIndex()
	index.BuildFromRoster(students)
	fmt.Printf("Encoding index built with %d enrolled students (of %d total)\n", index.Count(), len(students))

	deps := web.Deps{
		Roster:   rosterRepo,
		Teachers: teacherRepo,
		Ledger:   ledger,
		Matcher:  recognize.NewMatcher(cfg.Recognition.Threshold, cfg.Detector.Dim),
		Detector: detect.NewClient(cfg.Detector.URL),
		Orderer:  roster.NewOrderer(cfg.Cohorts.DeprioritizedPrefixes),
		Index:    index,
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, port, host, deps)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting attendance API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
