package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/gridcap-etl/internal/adapter/eredes"
	"github.com/couchcryptid/gridcap-etl/internal/adapter/kafka"
	"github.com/couchcryptid/gridcap-etl/internal/adapter/xlsx"
	"github.com/couchcryptid/gridcap-etl/internal/pipeline"
)

var (
	updateOpts    pipeline.Options
	updateCountry string
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh capacity columns of the substations workbook",
	Long: `Fetch reception capacity from E-REDES, merge it into the workbook by
substation, municipality and district (falling back to the substation name),
save the workbook and write the updated/unmatched CSVs and a KMZ.

Exit status is 2 when the API columns cannot be detected and 3 when the
workbook lacks a required column.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		aliases, err := loadAliases()
		if err != nil {
			return err
		}
		opts := []pipeline.Option{
			pipeline.WithAliases(aliases),
			pipeline.WithSignConvention(cfg.LongitudeDefault),
		}
		if g := newGeocoder(updateCountry); g != nil {
			opts = append(opts, pipeline.WithGeocoder(g))
		}
		if cfg.ChangeFeedEnabled() {
			pub := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaChangesTopic, logger)
			defer func() {
				if err := pub.Close(); err != nil {
					logger.Error("kafka publisher close error", "error", err)
				}
			}()
			opts = append(opts, pipeline.WithPublisher(pub))
		}

		source := eredes.NewClient(cfg.CapacityURL, cfg.SearchURL, cfg.PageSize, cfg.HTTPTimeout, logger)
		u := pipeline.New(source, xlsx.NewStore(logger), logger, metrics, opts...)

		sum, err := u.Run(ctx, updateOpts)
		pushMetrics(ctx)
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), sum)
		return nil
	},
}

func printSummary(w io.Writer, s pipeline.Summary) {
	fmt.Fprintf(w, "Updated rows:   %d\n", s.Updated)
	fmt.Fprintf(w, "Unmatched rows: %d (exact %d, fallback %d)\n", s.Unmatched, s.Exact, s.Fallback)
	fmt.Fprintf(w, "Updated CSV:    %s\n", s.UpdatedCSV)
	fmt.Fprintf(w, "Unmatched CSV:  %s\n", s.UnmatchedCSV)
	if s.BackupPath != "" {
		fmt.Fprintf(w, "Backup:         %s\n", s.BackupPath)
	}
	if s.KMZPath != "" {
		fmt.Fprintf(w, "KMZ:            %s (%d placemarks)\n", s.KMZPath, s.Placemarks)
	}
	if s.Published > 0 {
		fmt.Fprintf(w, "Change events:  %d\n", s.Published)
	}
}

func init() {
	rootCmd.AddCommand(updateCmd)
	f := updateCmd.Flags()
	f.StringVar(&updateOpts.WorkbookPath, "excel", "", "path to the substations workbook (required)")
	f.StringVar(&updateOpts.Installation, "instalacao", "", "only fetch this exact installation")
	f.StringVar(&updateOpts.IconOn, "icons-on", "ON.png", "icon for substations with available capacity")
	f.StringVar(&updateOpts.IconOff, "icons-off", "off.png", "icon for substations without available capacity")
	f.StringVar(&updateOpts.KMZPath, "kmz-out", "PT_SUBS.kmz", "KMZ output path; empty skips the map")
	f.StringVar(&updateOpts.CSVDir, "csv-dir", "", "directory for the CSV reports (default: next to the workbook)")
	f.BoolVar(&updateOpts.Backup, "backup", false, "copy the workbook to <name>.backup.xlsx before saving")
	f.IntVar(&updateOpts.UTMZone, "utm-zone", pipeline.DefaultUTMZone, "UTM zone for easting/northing columns")
	f.StringVar(&updateCountry, "mapbox-country", "pt", "ISO country filter for geocoding; empty disables it")
	_ = updateCmd.MarkFlagRequired("excel")
}
