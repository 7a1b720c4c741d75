package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/gridcap-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/gridcap-etl/internal/config"
	"github.com/couchcryptid/gridcap-etl/internal/domain"
	"github.com/couchcryptid/gridcap-etl/internal/observability"
)

// Shared by every subcommand; set in PersistentPreRunE.
var (
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "gridcap",
	Short: "Substation capacity ETL for the E-REDES open data portal",
	Long: `gridcap refreshes a substations workbook with the reception capacity
published by E-REDES, writes audit CSVs and a KMZ map, exports other
OpenDataSoft datasets to Excel, and converts workbooks and GeoJSON grid layers
to KML.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(".env"); err != nil {
			return err
		}
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		logger = observability.NewLogger(cfg)
		metrics = observability.NewMetrics()
		return nil
	},
}

func loadAliases() (domain.AliasSet, error) {
	if cfg.AliasesFile == "" {
		return domain.DefaultAliases(), nil
	}
	return config.LoadAliases(cfg.AliasesFile)
}

// newGeocoder returns the cached Mapbox geocoder, or nil when geocoding is
// disabled.
func newGeocoder(country string) domain.Geocoder {
	if !cfg.MapboxEnabled {
		logger.Debug("mapbox geocoding disabled")
		return nil
	}
	var opts []mapbox.Option
	if country != "" {
		opts = append(opts, mapbox.WithCountry(country))
	}
	client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger, opts...)
	logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	return mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
}

func pushMetrics(ctx context.Context) {
	if cfg.PushgatewayURL == "" {
		return
	}
	if err := metrics.Push(ctx, cfg.PushgatewayURL, cfg.PushgatewayJob); err != nil {
		logger.Warn("metrics push failed", "url", cfg.PushgatewayURL, "error", err)
	}
}
