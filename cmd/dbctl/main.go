// dbctl is the operations companion for the recorder database: schema
// init, connectivity checks, and summary verification.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optmon/option-data/internal/aggregate"
	"github.com/optmon/option-data/internal/config"
	"github.com/optmon/option-data/internal/database"
	"github.com/optmon/option-data/internal/health"
	"github.com/optmon/option-data/internal/store"
	"github.com/optmon/option-data/internal/version"
)

const usage = `usage: dbctl [-config path] <command> [args]

commands:
  init                      create tables and indexes if missing
  ping                      check database connectivity
  health                    run a one-shot probe and print stats
  info                      print connection and pool details
  summary <date>            print daily summaries for YYYY-MM-DD
  verify <date> <code>      recompute a summary from facts and compare
`

func main() {
	configPath := flag.String("config", "configs/recorder.local.yaml", "path to config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fatal("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.Database, logger)
	if err != nil {
		fatal("connect: %v", err)
	}
	defer pool.Close()

	switch cmd := flag.Arg(0); cmd {
	case "init":
		runInit(ctx, pool)
	case "ping":
		runPing(ctx, pool)
	case "health":
		runHealth(ctx, pool, cfg)
	case "info":
		runInfo(pool)
	case "summary":
		runSummary(ctx, pool, flag.Arg(1))
	case "verify":
		runVerify(ctx, pool, cfg, flag.Arg(1), flag.Arg(2))
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
}

func runInit(ctx context.Context, pool *database.Pool) {
	if err := pool.EnsureSchema(ctx); err != nil {
		fatal("ensure schema: %v", err)
	}
	fmt.Println("schema ok")
}

func runPing(ctx context.Context, pool *database.Pool) {
	start := time.Now()
	if err := pool.Ping(ctx); err != nil {
		fatal("ping: %v", err)
	}
	elapsed := time.Since(start).Round(time.Millisecond)

	var serverVersion string
	err := pool.WithConn(ctx, func(conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, "SELECT version()").Scan(&serverVersion)
	})
	if err != nil {
		fatal("server version: %v", err)
	}
	fmt.Printf("ok (%s)\n%s\n", elapsed, serverVersion)
}

func runHealth(ctx context.Context, pool *database.Pool, cfg *config.RecorderConfig) {
	monitor := health.NewMonitor(cfg.Health, pool, nil, slog.Default())
	ok := monitor.CheckNow(ctx)

	stats := monitor.Stats()
	printJSON(map[string]any{
		"healthy": ok,
		"status":  string(stats.Status),
		"stats":   stats,
		"pool":    pool.Stats(),
	})
	if !ok {
		os.Exit(1)
	}
}

func runInfo(pool *database.Pool) {
	printJSON(map[string]any{
		"version": version.Version,
		"info":    pool.Info(),
		"stats":   pool.Stats(),
	})
}

func runSummary(ctx context.Context, pool *database.Pool, dateArg string) {
	date, err := parseDate(dateArg)
	if err != nil {
		fatal("%v", err)
	}

	summaries, err := store.NewReader(pool).DailySummaries(ctx, date)
	if err != nil {
		fatal("query summaries: %v", err)
	}
	if len(summaries) == 0 {
		fmt.Printf("no summaries for %s\n", date.Format("2006-01-02"))
		return
	}
	printJSON(summaries)
}

// runVerify recomputes the summary for (date, code) from the facts and
// compares it against the incrementally maintained row.
func runVerify(ctx context.Context, pool *database.Pool, cfg *config.RecorderConfig, dateArg, code string) {
	date, err := parseDate(dateArg)
	if err != nil {
		fatal("%v", err)
	}
	if code == "" {
		fatal("verify needs a stock code")
	}

	stored, err := store.NewReader(pool).DailySummary(ctx, date, code)
	if err != nil {
		fatal("query summary: %v", err)
	}

	loc, err := time.LoadLocation(cfg.Database.Timezone)
	if err != nil {
		fatal("load database timezone: %v", err)
	}

	var recomputed any
	err = pool.WithConn(ctx, func(conn *pgxpool.Conn) error {
		s, err := aggregate.New(loc).Recompute(ctx, conn, date, code)
		recomputed = s
		return err
	})
	if err != nil {
		fatal("recompute: %v", err)
	}

	printJSON(map[string]any{
		"stored":     stored,
		"recomputed": recomputed,
	})
}

func parseDate(arg string) (time.Time, error) {
	if arg == "" {
		return time.Time{}, fmt.Errorf("missing date argument (YYYY-MM-DD)")
	}
	date, err := time.Parse("2006-01-02", arg)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", arg, err)
	}
	return date, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
