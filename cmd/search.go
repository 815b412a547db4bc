package main

import (
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/location-builder/internal/export"
	"github.com/sells-group/location-builder/internal/location"
)

type rangeFlag struct {
	name  string
	field func(c *location.Criteria) *location.Range
	min   float64
	max   float64
}

var (
	searchZip    string
	searchRadius float64
	searchStates []string
	searchFormat string
	searchOut    string

	searchRanges = []*rangeFlag{
		{name: "population", field: func(c *location.Criteria) *location.Range { return &c.Population }},
		{name: "age", field: func(c *location.Criteria) *location.Range { return &c.MedianAge }},
		{name: "income", field: func(c *location.Criteria) *location.Range { return &c.HouseholdIncome }},
		{name: "home-value", field: func(c *location.Criteria) *location.Range { return &c.HomeValue }},
		{name: "ownership", field: func(c *location.Criteria) *location.Range { return &c.HomeOwnership }},
	}
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find and filter counties around a postal code",
	Long:  "Resolves --zip, aggregates every city within --radius miles into counties and prints the counties that pass the filters.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		format, err := export.ParseFormat(searchFormat)
		if err != nil {
			return err
		}

		radius := cfg.Search.DefaultRadiusMiles
		if cmd.Flags().Changed("radius") {
			radius = searchRadius
		}
		criteria, err := searchCriteria(cmd, radius)
		if err != nil {
			return err
		}

		ds, err := openDataset(ctx)
		if err != nil {
			return err
		}
		defer ds.Close()

		svc := location.NewService(ds.Store, serviceOptions(cfg.Search))
		defer svc.Close()

		res, err := svc.Search(ctx, searchZip, criteria.RadiusMiles)
		if errors.Is(err, location.ErrNotFound) {
			zap.L().Warn("no location found for postal code", zap.String("postal_code", searchZip))
		} else if err != nil {
			return eris.Wrap(err, "search")
		}

		counties := location.FilterCounties(res.Counties, criteria)
		zap.L().Debug("filters applied",
			zap.Int("in_radius", len(res.Counties)),
			zap.Int("matched", len(counties)),
		)

		out, closeOut, err := outputWriter(searchOut)
		if err != nil {
			return err
		}
		defer closeOut()

		return export.Write(out, format, res, counties)
	},
}

// searchCriteria starts from the default ranges and overrides only the bounds
// given on the command line.
func searchCriteria(cmd *cobra.Command, radius float64) (location.Criteria, error) {
	c := location.DefaultCriteria(radius)
	flags := cmd.Flags()
	for _, rf := range searchRanges {
		r := rf.field(&c)
		if flags.Changed("min-" + rf.name) {
			r.Min = rf.min
		}
		if flags.Changed("max-" + rf.name) {
			r.Max = rf.max
		}
	}
	c.States = append(c.States, searchStates...)

	if err := c.Validate(); err != nil {
		return location.Criteria{}, err
	}
	return c, nil
}

func outputWriter(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create output file %s", path)
	}
	return f, func() { _ = f.Close() }, nil
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchZip, "zip", "", "center postal code (ZIP or ZIP+4)")
	f.Float64Var(&searchRadius, "radius", 0, "search radius in miles (default from config)")
	for _, rf := range searchRanges {
		f.Float64Var(&rf.min, "min-"+rf.name, 0, "minimum "+rf.name)
		f.Float64Var(&rf.max, "max-"+rf.name, 0, "maximum "+rf.name)
	}
	f.StringSliceVar(&searchStates, "state", nil, "state id to keep (repeatable)")
	f.StringVar(&searchFormat, "format", "table", "output format: table, json, yaml, xlsx or geojson")
	f.StringVarP(&searchOut, "out", "o", "", "write output to a file instead of stdout")
	_ = searchCmd.MarkFlagRequired("zip")
	searchCmd.Annotations = map[string]string{configModeKey: "search"}
	rootCmd.AddCommand(searchCmd)
}
