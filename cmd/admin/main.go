// Admin runs one-off maintenance tasks.
//
// Usage:
//
//	admin migrate [up|down|status]
//	admin token -id desk-1 -name "Front Desk" -role staff
//	admin sweep
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"tutorcenter/internal/auth"
	"tutorcenter/internal/config"
	"tutorcenter/internal/logging"
	"tutorcenter/internal/store"
	"tutorcenter/internal/tutoring"
	"tutorcenter/internal/worker"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: admin migrate [up|down|status] | token -id ID [-name NAME] [-role staff|admin] | sweep")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "migrate":
		err = migrate(ctx, cfg, os.Args[2:])
	case "token":
		err = token(cfg, os.Args[2:])
	case "sweep":
		err = sweep(ctx, cfg)
	default:
		usage()
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func migrate(ctx context.Context, cfg config.App, args []string) error {
	direction := "up"
	if len(args) > 0 {
		direction = args[0]
	}
	db, err := store.NewDB(ctx, cfg.DatabaseURL, cfg.DBPingTimeout)
	if err != nil {
		return err
	}
	defer db.Close()

	switch direction {
	case "up":
		return store.Migrate(ctx, db.Client)
	case "down":
		return store.MigrateDown(ctx, db.Client)
	case "status":
		return store.MigrationStatus(ctx, db.Client)
	default:
		return fmt.Errorf("unknown direction %q", direction)
	}
}

func token(cfg config.App, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	id := fs.String("id", "", "staff id (required)")
	name := fs.String("name", "", "staff display name")
	role := fs.String("role", auth.RoleStaff, "staff or admin")
	_ = fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("-id is required")
	}
	if *role != auth.RoleStaff && *role != auth.RoleAdmin {
		return fmt.Errorf("unknown role %q", *role)
	}
	pair, err := auth.Issue(*id, *name, *role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(pair)
}

// sweep runs the absentee pass for today's classes once.
func sweep(ctx context.Context, cfg config.App) error {
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	db, err := store.NewDB(ctx, cfg.DatabaseURL, cfg.DBPingTimeout)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := tutoring.NewService(tutoring.NewPostgresStore(db.Client),
		tutoring.WithLocation(loc),
		tutoring.WithLogger(logger))
	if err := worker.New(svc, logger, nil).Sweep(ctx); err != nil {
		return err
	}
	logger.Info("sweep done", zap.String("tz", loc.String()))
	return nil
}
