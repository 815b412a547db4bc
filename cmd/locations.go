package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/location-builder/internal/location"
)

var (
	importCSV       string
	importBatchSize int
)

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "Manage the location dataset",
	Long:  "Apply schema migrations, import city-level demographic rows and inspect the loaded dataset.",
}

var locationsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply location schema migrations",
	Long:  "Applies all pending SQL migrations in lexicographic order. The sqlite driver creates its schema on open.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ds, err := openDataset(ctx)
		if err != nil {
			return err
		}
		defer ds.Close()

		if ds.Pool == nil {
			zap.L().Info("sqlite schema is up to date")
			return nil
		}

		applied, err := location.Migrate(ctx, ds.Pool)
		if err != nil {
			return eris.Wrap(err, "locations migrate")
		}

		zap.L().Info("location migrations applied", zap.Strings("files", applied))
		return nil
	},
}

var locationsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import location rows from a CSV file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		f, err := os.Open(importCSV)
		if err != nil {
			return eris.Wrapf(err, "open csv %s", importCSV)
		}
		defer f.Close() //nolint:errcheck

		ds, err := openDataset(ctx)
		if err != nil {
			return err
		}
		defer ds.Close()

		res, err := location.Import(ctx, ds.Writer, f, importBatchSize)
		if err != nil {
			return eris.Wrap(err, "locations import")
		}

		zap.L().Info("location import complete",
			zap.String("file", importCSV),
			zap.Int64("read", res.Read),
			zap.Int64("written", res.Written),
			zap.Int64("skipped_no_zip", res.SkippedNoZip),
			zap.Int64("skipped_no_coord", res.SkippedNoCoord),
		)
		return nil
	},
}

var locationsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show location dataset statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ds, err := openDataset(ctx)
		if err != nil {
			return err
		}
		defer ds.Close()

		stats, err := ds.Stats.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "locations status")
		}

		formatStats(os.Stdout, cfg.Store.Driver, stats)
		return nil
	},
}

func formatStats(out io.Writer, driver string, s *location.Stats) {
	p := message.NewPrinter(language.English)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "DRIVER\t%s\n", driver)
	fmt.Fprintf(w, "ROWS\t%s\n", p.Sprintf("%d", s.Rows))
	fmt.Fprintf(w, "POSTAL CODES\t%s\n", p.Sprintf("%d", s.PostalCodes))
	fmt.Fprintf(w, "COUNTIES\t%s\n", p.Sprintf("%d", s.Counties))
	fmt.Fprintf(w, "STATES\t%s\n", p.Sprintf("%d", s.States))
	fmt.Fprintf(w, "MISSING COORDS\t%s\n", p.Sprintf("%d", s.MissingCoords))
	w.Flush() //nolint:errcheck
}

func init() {
	locationsImportCmd.Flags().StringVar(&importCSV, "csv", "", "path to the location CSV file")
	locationsImportCmd.Flags().IntVar(&importBatchSize, "batch-size", location.DefaultImportBatchSize, "rows per write batch")
	_ = locationsImportCmd.MarkFlagRequired("csv")

	locationsCmd.AddCommand(locationsMigrateCmd, locationsImportCmd, locationsStatusCmd)
	locationsCmd.Annotations = map[string]string{configModeKey: "locations"}
	rootCmd.AddCommand(locationsCmd)
}
