// Command cleanup deletes API log records older than the retention window.
//
//	cleanup --days 30 --dry-run
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/crudkit/sampleapi/internal/config"
	"github.com/crudkit/sampleapi/internal/pkg/logger"
	"github.com/crudkit/sampleapi/internal/repository"
	"github.com/crudkit/sampleapi/internal/service"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F1C40F")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2ECC71")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F93939")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00D9FF"))
)

func main() {
	pflag.Int("days", service.DefaultRetentionDays, "delete API logs older than this many days")
	dryRun := pflag.Bool("dry-run", false, "report what would be deleted without deleting")
	pflag.Parse()
	_ = viper.BindPFlag("apilog.retention_days", pflag.Lookup("days"))

	cfg, err := config.Load()
	if err != nil {
		fail("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	defer logger.Sync()

	if cfg.Database.DSN == "" {
		fail("database.dsn is not set; nothing to clean up")
	}
	db, err := repository.NewDB(cfg)
	if err != nil {
		fail("%v", err)
	}

	var cache service.StatsCache
	if cfg.Redis.Addr != "" {
		if client, err := repository.NewRedisClient(cfg); err == nil {
			defer client.Close()
			cache = repository.NewRedisStatsCache(client, time.Duration(cfg.Redis.StatsTTLSeconds)*time.Second)
		} else {
			logger.Warn("redis unavailable, stats cache will not be invalidated", "error", err)
		}
	}

	svc := service.NewRetentionService(repository.NewPostgresAPILogRepo(db), cache)
	report, err := svc.Run(context.Background(), cfg.APILog.RetentionDays, *dryRun)
	if err != nil {
		fail("%v", err)
	}

	if report.DryRun {
		fmt.Println(warnStyle.Render(report.Summary()))
		if report.Matched > 0 {
			fmt.Println(labelStyle.Render("Oldest log: ") + report.Oldest.Format(time.RFC3339))
			fmt.Println(labelStyle.Render("Newest log: ") + report.Newest.Format(time.RFC3339))
		}
		return
	}
	fmt.Println(successStyle.Render(report.Summary()))
}

func fail(format string, args ...any) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("■ ERROR: ")+fmt.Sprintf(format, args...))
	os.Exit(1)
}
