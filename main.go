// @title PPE Inspection API
// @version 1.0
// @description Share-link PPE inspection forms with PDF and spreadsheet reports.

// @host localhost:8080
// @BasePath /api

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"ppe_inspection/internal/app"
	"ppe_inspection/internal/config"
	"ppe_inspection/internal/report"
	"ppe_inspection/pkg/database"
	"ppe_inspection/pkg/logger"

	"github.com/spf13/cobra"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:           "ppe_inspection",
	Short:         "PPE inspection forms service",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	RunE:  runServe,
}

var rollback bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE:  runMigrate,
}

var renderFlags struct {
	in     string
	photos string
	out    string
	title  string
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the PDF report of an exported inspection",
	Long: `Reads an inspection exported as JSON ({"request": ..., "answer": ...,
"submittedAt": ..., "inspector": ...}) and writes its PDF report. Photos are
looked up in --photos by storage key, then by file name.`,
	RunE: runRender,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "configs", "directory holding config.yaml")

	migrateCmd.Flags().BoolVar(&rollback, "rollback", false, "roll back the last migration instead")

	renderCmd.Flags().StringVar(&renderFlags.in, "in", "", "inspection JSON file")
	renderCmd.Flags().StringVar(&renderFlags.photos, "photos", ".", "directory with the photo files")
	renderCmd.Flags().StringVar(&renderFlags.out, "out", "report.pdf", "output PDF file")
	renderCmd.Flags().StringVar(&renderFlags.title, "title", "", "report title")
	_ = renderCmd.MarkFlagRequired("in")

	rootCmd.AddCommand(serveCmd, migrateCmd, renderCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	application, err := app.NewApp(cfg)
	if err != nil {
		return err
	}
	defer logger.Log.Sync()

	application.ConfigFile = filepath.Join(configDir, "config.yaml")
	return application.Run()
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if rollback {
		return database.RollbackLast(db)
	}
	return database.Migrate(db)
}

func runRender(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(renderFlags.in)
	if err != nil {
		return err
	}
	var in report.Inspection
	if err := json.Unmarshal(raw, &in); err != nil {
		return fmt.Errorf("parse %s: %w", renderFlags.in, err)
	}

	opt := report.DefaultOptions()
	if renderFlags.title != "" {
		opt.Title = renderFlags.title
	}
	out, err := os.Create(renderFlags.out)
	if err != nil {
		return err
	}
	defer out.Close()

	gen := &report.Generator{Photos: report.DirPhotos(renderFlags.photos), Options: opt}
	doc, err := gen.Generate(context.Background(), in, out)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d pages, %s\n", renderFlags.out, len(doc.Pages), doc.Badge)
	return out.Close()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
