package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/santinoo1919/medtrixmap/internal/category"
	"github.com/santinoo1919/medtrixmap/internal/config"
	"github.com/santinoo1919/medtrixmap/internal/datasource"
	"github.com/santinoo1919/medtrixmap/internal/engine"
	"github.com/santinoo1919/medtrixmap/internal/geojson"
	"github.com/santinoo1919/medtrixmap/internal/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <source>",
	Short: "Load one source and print the features passing the given filters",
	Example: `  medtrixmap fetch amp --bbox 43.0,5.0,43.4,5.6 --categories 1,other
  medtrixmap fetch protected-areas --region Corse --geojson > corse.geojson`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().String("bbox", "", "Viewport as south,west,north,east (default: everything)")
	fetchCmd.Flags().String("categories", "", "Comma separated category keys to keep, 'other' for uncategorized (default: all)")
	fetchCmd.Flags().String("region", "", "Keep only features of this region")
	fetchCmd.Flags().Bool("geojson", false, "Print a GeoJSON FeatureCollection instead of a summary")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, fetchCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("fetch.bbox", "bbox")
	mustBind("fetch.categories", "categories")
	mustBind("fetch.region", "region")
	mustBind("fetch.geojson", "geojson")
}

func runFetch(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	def, ok := cfg.Find(args[0])
	if !ok {
		return fmt.Errorf("unknown source %q", args[0])
	}

	state := engine.DefaultFilterState()
	if s := viper.GetString("fetch.bbox"); s != "" {
		box, err := parseBBox(s)
		if err != nil {
			return fmt.Errorf("invalid --bbox: %w", err)
		}
		state.Viewport = types.ViewportOf(box)
	}
	if s := viper.GetString("fetch.categories"); s != "" {
		set, err := category.ParseSet(s)
		if err != nil {
			return fmt.Errorf("invalid --categories: %w", err)
		}
		state.Categories = set
	}
	state.Region = viper.GetString("fetch.region")

	src, err := datasource.NewSource(def, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("loading source", "source", def.ID, "viewport", state.Viewport.String(), "categories", state.Categories.String(), "region", state.Region)

	loader := datasource.NewLoader(datasource.LoaderConfig{Logger: logger})
	res := loader.Load(ctx, src)
	if res.Err != nil {
		return res.Err
	}

	eng := engine.New(engine.Config{
		Source:        def.ID,
		CategoryField: def.CategoryField,
		RegionField:   def.RegionField,
		Logger:        logger,
	})
	view := eng.Derive(res.Collection, state)

	logger.Info("filtered source",
		"source", def.ID,
		"loaded", len(res.Collection.Features),
		"skipped", res.Collection.Skipped,
		"kept", view.Len(),
	)

	out := cmd.OutOrStdout()
	if viper.GetBool("fetch.geojson") {
		data, err := geojson.ToGeoJSONBytes(view.Features())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tGEOMETRY\tCATEGORY")
	for _, e := range view.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Key, e.Feature.Geometry.GeoJSONType(), e.Category.Key())
	}
	if len(view.Regions) > 0 {
		fmt.Fprintf(w, "\nregions: %s\n", strings.Join(view.Regions, ", "))
	}
	return w.Flush()
}

// parseBBox reads "south,west,north,east".
func parseBBox(s string) (types.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return types.BoundingBox{}, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}

	var vals [4]float64
	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return types.BoundingBox{}, fmt.Errorf("invalid number at position %d: %w", i, err)
		}
		vals[i] = val
	}

	box := types.BoundingBox{MinLat: vals[0], MinLon: vals[1], MaxLat: vals[2], MaxLon: vals[3]}
	if box.MinLat >= box.MaxLat {
		return types.BoundingBox{}, fmt.Errorf("south (%.4f) must be < north (%.4f)", box.MinLat, box.MaxLat)
	}
	if box.MinLon >= box.MaxLon {
		return types.BoundingBox{}, fmt.Errorf("west (%.4f) must be < east (%.4f)", box.MinLon, box.MaxLon)
	}
	if err := box.Validate(); err != nil {
		return types.BoundingBox{}, err
	}
	return box, nil
}
