package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/gradereport/internal/arrange"
	appI18n "github.com/pavelanni/gradereport/internal/i18n"
	"github.com/pavelanni/gradereport/internal/model"
	"github.com/pavelanni/gradereport/internal/report"
	"github.com/pavelanni/gradereport/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gradereport",
		Short: "Grouped grade reports for class corrections",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), importCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `gradereport --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP report server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "gradereport.db", "SQLite database path")
	f.StringSlice("dataset", nil, "Dataset JSON files to import at startup (repeatable)")
	f.StringP("lang", "l", appI18n.DefaultLang, "Default report language (fr, en)")
	f.String("cache", "memory", "Report cache backend (memory, redis, off)")
	f.Int("cache-size", 256, "Maximum entries of the memory cache")
	f.Duration("cache-ttl", 10*time.Minute, "Lifetime of a cached report")
	f.String("redis-url", "redis://localhost:6379/0", "Redis URL for the redis cache")
	f.Int64("max-upload", 32<<20, "Maximum size in bytes of an uploaded dataset")
	f.Duration("shutdown-timeout", 10*time.Second, "Grace period for in-flight requests on shutdown")
	f.String("admin-password", "", "Initial admin password (or set GRADEREPORT_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a grouped report to a file",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "gradereport.db", "SQLite database path")
	f.String("dataset", "", "Read this dataset JSON file instead of the database")
	f.StringP("primary", "p", "", "Primary grouping axis (student, class, subclass, activity)")
	f.StringP("secondary", "s", "none", "Secondary grouping axis")
	f.Bool("include-all", false, "Add placeholder rows for missing student/activity pairs")
	f.StringSlice("activity", nil, "Restrict to these activity ids (repeatable or comma-separated)")
	f.Int64("class", 0, "Restrict to one class id (0 = all classes)")
	f.StringP("format", "f", "csv", "Output format (csv, xlsx, pdf, html, json)")
	f.Bool("decimal-comma", false, "Write numbers with a decimal comma")
	f.StringP("lang", "l", appI18n.DefaultLang, "Report language (fr, en)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("primary")

	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import dataset JSON files into the database",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.String("db", "gradereport.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("GRADEREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("gradereport")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/gradereport")
	v.AddConfigPath("/etc/gradereport")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// exportRequest collects the report selections of the export command.
func exportRequest(v *viper.Viper) (model.ReportRequest, error) {
	req := model.ReportRequest{
		Format:       model.Format(strings.ToLower(v.GetString("format"))),
		Primary:      model.Axis(strings.ToLower(v.GetString("primary"))),
		Secondary:    model.Axis(strings.ToLower(v.GetString("secondary"))),
		IncludeAll:   v.GetBool("include-all"),
		DecimalComma: v.GetBool("decimal-comma"),
		Lang:         v.GetString("lang"),
	}
	for _, s := range v.GetStringSlice("activity") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return req, fmt.Errorf("invalid activity id %q", s)
		}
		req.ActivityIDs = append(req.ActivityIDs, id)
	}
	if id := v.GetInt64("class"); id != 0 {
		req.ClassID = &id
	}
	if err := validator.New().Struct(req); err != nil {
		return req, fmt.Errorf("invalid export options: %w", err)
	}
	return req, arrange.ValidateAxes(req.Primary, req.Secondary)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := exportRequest(v)
	if err != nil {
		return err
	}
	if err := appI18n.Init(req.Lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx = appI18n.WithLang(ctx, req.Lang)

	ds, info, err := loadExportData(ctx, v)
	if err != nil {
		return err
	}

	doc, err := report.Generate(ctx, ds, req, info, time.Now())
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := report.Write(ctx, w, doc, req.Format); err != nil {
		return fmt.Errorf("write %s: %w", req.Format, err)
	}
	slog.Info("report written", "format", req.Format, "output", outPath, "sections", len(doc.Sections))
	return nil
}

// loadExportData reads the dataset from --dataset when set, else from the
// database.
func loadExportData(ctx context.Context, v *viper.Viper) (*model.Dataset, model.ExportInfo, error) {
	if path := v.GetString("dataset"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, model.ExportInfo{}, fmt.Errorf("read %s: %w", path, err)
		}
		ds, err := model.ParseDataset(data)
		if err != nil {
			return nil, model.ExportInfo{}, fmt.Errorf("parse %s: %w", path, err)
		}
		info := model.ExportInfo{DatasetName: filepath.Base(path)}
		if st, err := os.Stat(path); err == nil {
			info.ImportedAt = st.ModTime().UTC().Format(time.RFC3339)
		}
		return ds, info, nil
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return nil, model.ExportInfo{}, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ds, err := db.LoadDataset(ctx)
	if err != nil {
		return nil, model.ExportInfo{}, fmt.Errorf("load dataset: %w", err)
	}
	info, err := db.GetExportInfo(ctx)
	if err != nil {
		return nil, model.ExportInfo{}, fmt.Errorf("read dataset info: %w", err)
	}
	return ds, info, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	return importDatasets(ctx, db, args)
}

// importDatasets imports each file in turn; the last one imported wins.
func importDatasets(ctx context.Context, db *store.Store, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if _, err := db.ImportDataset(ctx, path, data); err != nil {
			return err
		}
	}
	return nil
}

func seedAdmin(ctx context.Context, db *store.Store, password string) error {
	count, err := db.UserCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or GRADEREPORT_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(ctx, model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
