package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/di"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/service"
	"github.com/prohmpiriya/event-attendance/pkg/config"
	"github.com/prohmpiriya/event-attendance/pkg/database"
	"github.com/prohmpiriya/event-attendance/pkg/logger"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "attendance-admin",
	Short: "Operator tooling for the attendance service",
	Long: `attendance-admin runs maintenance tasks against the attendance database:
applying the schema, rotating event codes, toggling registration and
exporting attendance reports.

Connection settings are read from the same environment as the API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var outputFormat string

var (
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed, color.Bold)
)

// openContainer builds the service graph used by the commands. Tests replace it.
var openContainer = func(ctx context.Context) (*di.Container, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, nil, err
	}
	if err := logger.Init(&logger.Config{Level: "warn", ServiceName: "attendance-admin"}); err != nil {
		return nil, nil, err
	}

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		User:           cfg.Database.User,
		Password:       cfg.Database.Password,
		Database:       cfg.Database.DBName,
		SSLMode:        cfg.Database.SSLMode,
		MaxConns:       2,
		MinConns:       1,
		ConnectTimeout: 5 * time.Second,
		MaxRetries:     1,
		RetryInterval:  time.Second,
	})
	if err != nil {
		return nil, nil, err
	}

	c := di.NewContainer(&di.ContainerConfig{
		DB:               db,
		Logger:           logger.Get(),
		EventConfig:      &service.EventServiceConfig{CodeLength: cfg.Attendance.CodeLength},
		AttendanceConfig: &service.AttendanceServiceConfig{Location: cfg.Attendance.Location()},
	})
	return c, func() {
		db.Close()
		logger.Sync()
	}, nil
}

// withContainer opens the container for the duration of fn
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *di.Container) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, closeFn, err := openContainer(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, c)
}

// writeOutput encodes v in the format chosen with --output
func writeOutput(cmd *cobra.Command, v any) error {
	w := cmd.OutOrStdout()
	switch outputFormat {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
}

func success(cmd *cobra.Command, format string, a ...any) {
	green.Fprintf(cmd.OutOrStdout(), format+"\n", a...)
}

// Execute runs the root command
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	err := rootCmd.Execute()
	if err != nil {
		red.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "output format for reports: json or yaml")
}
