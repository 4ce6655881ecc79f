package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"summerberry-forecast/app"
	"summerberry-forecast/config"
	"summerberry-forecast/forecast"
	"summerberry-forecast/logging"
	"summerberry-forecast/models"
)

var (
	cfg    *config.Config
	logger *zap.Logger

	predictFile   string
	predictFormat string
	predictReq    models.RequestContext
)

// rootCmd runs the HTTP service when no subcommand is given
var rootCmd = &cobra.Command{
	Use:   "summerberry-forecast",
	Short: "Berry harvest forecast service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config from .env file
		cfg = config.LoadFromEnv()

		l, err := logging.New(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the forecast HTTP API",
	RunE:  runServe,
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Run one forecast against a local CSV/XLSX/XLS file",
	Example: `  summerberry-forecast predict --file weather.csv --site alm --variety c --sector S1 \
    --plant-type rb --plantation-date 2023-01-01 --selected-date 2024-01-01 --format text`,
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().StringVarP(&predictFile, "file", "f", "", "Upload file (.csv, .xlsx, .xls)")
	predictCmd.Flags().StringVar(&predictReq.Site, "site", "", "Site code, e.g. alm")
	predictCmd.Flags().StringVar(&predictReq.Variety, "variety", "", "Variety code (a-e)")
	predictCmd.Flags().StringVar(&predictReq.Sector, "sector", "", "Sector name")
	predictCmd.Flags().StringVar(&predictReq.PlantType, "plant-type", "", "Plant type code (gc, gt, lc, rb, sc)")
	predictCmd.Flags().StringVar(&predictReq.PlantationDate, "plantation-date", "", "Plantation date YYYY-MM-DD")
	predictCmd.Flags().StringVar(&predictReq.SelectedDate, "selected-date", "", "First forecast day YYYY-MM-DD")
	predictCmd.Flags().StringVar(&predictFormat, "format", "json", "Output format: json or text")

	for _, name := range []string{"file", "site", "variety", "sector", "plant-type", "plantation-date", "selected-date"} {
		_ = predictCmd.MarkFlagRequired(name)
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(predictCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	application := app.New(cfg, logger)
	return application.Start()
}

func runPredict(cmd *cobra.Command, args []string) error {
	if predictFormat != "json" && predictFormat != "text" {
		return fmt.Errorf("unknown format %q (want json or text)", predictFormat)
	}

	data, err := os.ReadFile(predictFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", predictFile, err)
	}

	ctx := context.Background()
	application := app.New(cfg, logger)
	defer application.Close()

	svc, err := application.Forecaster(ctx)
	if err != nil {
		return err
	}

	result, err := svc.Run(ctx, filepath.Base(predictFile), data, predictReq)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if predictFormat == "text" {
		_, err = fmt.Fprint(out, forecast.RenderReport(predictReq, result))
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
