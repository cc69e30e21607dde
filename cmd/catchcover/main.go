// Command catchcover runs the spatial analyses: station mapping, proximity
// search near catchments, and alpine land-cover fraction per catchment.
//
// Usage:
//
//	catchcover [flags] stations|proximity|coverage|all
//
// Configuration comes from the environment (see internal/config), with an
// optional .env file. Tables go to stdout; derived geometries are written as
// GeoJSON under OUTPUT_DIR for the presentation layer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/headwaterlabs/catchcover/internal/cache"
	"github.com/headwaterlabs/catchcover/internal/cache/fsstore"
	"github.com/headwaterlabs/catchcover/internal/cache/keys"
	"github.com/headwaterlabs/catchcover/internal/cache/memstore"
	"github.com/headwaterlabs/catchcover/internal/cache/redisstore"
	"github.com/headwaterlabs/catchcover/internal/config"
	"github.com/headwaterlabs/catchcover/internal/geo"
	"github.com/headwaterlabs/catchcover/internal/logger"
	"github.com/headwaterlabs/catchcover/internal/metrics"
	"github.com/headwaterlabs/catchcover/internal/source"
	"github.com/headwaterlabs/catchcover/internal/workflow"
)

var Version = "dev"

// catchmentRename maps the catchment shapefile's DBF columns to the
// attribute names the join uses.
var catchmentRename = map[string]string{
	"STATION_NU": "station_id",
	"NAME":       "name",
	"AREA_KM2":   "area_km2",
}

// becRename and becTypes describe the zone layers of the BEC GeoPackage.
var (
	becRename = map[string]string{"ZONE": "zone"}
	becTypes  = geo.Schema{"zone": geo.FieldString}
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()
	what := flag.Arg(0)
	if what == "" {
		what = "all"
	}
	if !knownWorkflow(what) {
		fmt.Fprintf(os.Stderr, "unknown workflow %q, want stations|proximity|coverage|all\n", what)
		return 2
	}

	_ = godotenv.Load()
	cfg := config.FromEnv()

	log := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		Component: "catchcover",
	}, os.Stderr)

	log.Info().Str("version", Version).Str("workflow", what).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, log)
	}

	cc, err := newCollectionCache(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("cache init failed")
		return 1
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.LoadTimeout)
	defer cancel()

	target, err := geo.ParseCRS(cfg.TargetCRS)
	if err != nil {
		log.Error().Err(err).Str("crs", cfg.TargetCRS).Msg("bad target CRS")
		return 1
	}

	ok := true
	if what == "stations" || what == "all" {
		if err := runStations(runCtx, cfg, cc, log); err != nil {
			log.Error().Err(err).Msg("stations workflow failed")
			ok = false
		}
	}
	if what == "proximity" || what == "all" {
		if err := runProximity(runCtx, cfg, cc, target, log); err != nil {
			log.Error().Err(err).Msg("proximity workflow failed")
			ok = false
		}
	}
	if what == "coverage" || what == "all" {
		if err := runCoverage(runCtx, cfg, cc, target, log); err != nil {
			log.Error().Err(err).Msg("coverage workflow failed")
			ok = false
		}
	}
	if !ok {
		return 1
	}
	log.Info().Msg("done")
	return 0
}

func knownWorkflow(s string) bool {
	switch s {
	case "stations", "proximity", "coverage", "all":
		return true
	}
	return false
}

func newCollectionCache(ctx context.Context, cfg config.Config, log zerolog.Logger) (*cache.CollectionCache, error) {
	var store cache.Store
	switch cfg.CacheBackend {
	case "fs":
		s, err := fsstore.New(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		store = s
	case "memory":
		store = memstore.New()
	case "redis":
		s, err := redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
	return cache.New(store, cfg.LRUSize, log)
}

func stationsSource(cfg config.Config) workflow.Source {
	return workflow.Source{
		Key: keys.Key("stations", cfg.StationsCSV),
		Load: func(ctx context.Context) (geo.Collection, error) {
			return source.Stations(ctx, cfg.StationsCSV)
		},
	}
}

func catchmentsSource(cfg config.Config) workflow.Source {
	return workflow.Source{
		Key: keys.Key("catchments", cfg.CatchmentsShp),
		Load: func(ctx context.Context) (geo.Collection, error) {
			return source.Shapefile(ctx, source.ShapefileSpec{
				Path:   cfg.CatchmentsShp,
				CRS:    cfg.CatchmentsCRS,
				Rename: catchmentRename,
			})
		},
	}
}

func boundarySource() workflow.Source {
	return workflow.Source{
		Key:  keys.Key("boundary", "packaged"),
		Load: source.ProvinceBoundary,
	}
}

func runStations(ctx context.Context, cfg config.Config, cc *cache.CollectionCache, log zerolog.Logger) error {
	res, err := workflow.Stations(ctx, cc, workflow.StationsInput{
		Inventory:     stationsSource(cfg),
		Boundary:      boundarySource(),
		ClassifyField: "dly_yrs",
	})
	if err != nil {
		return err
	}
	log.Info().Int("stations", len(res.Stations.Features)).Msg("station inventory loaded")

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RECORD LENGTH\tSTATIONS")
	for _, b := range res.Bins {
		fmt.Fprintf(w, "%s\t%d\n", b.Label, b.Count)
	}
	fmt.Fprintf(w, "(no complete record)\t%d\n", res.Unclassified)
	if err := w.Flush(); err != nil {
		return err
	}
	if err := writeGeoJSON(cfg, "boundary.geojson", res.Boundary); err != nil {
		return err
	}
	return writeGeoJSON(cfg, "stations.geojson", res.Stations)
}

func runProximity(ctx context.Context, cfg config.Config, cc *cache.CollectionCache, target geo.CRS, log zerolog.Logger) error {
	res, err := workflow.Proximity(ctx, cc, workflow.ProximityInput{
		Stations:     stationsSource(cfg),
		Catchments:   catchmentsSource(cfg),
		TargetCRS:    target,
		BufferMeters: cfg.BufferMeters,
	})
	if err != nil {
		return err
	}
	log.Info().
		Float64("buffer_m", cfg.BufferMeters).
		Int("stations", len(res.Stations.Features)).
		Msg("stations near catchments")

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATION\tNAME\tPROV")
	for _, f := range res.Stations.Features {
		id, _ := f.String("station_id")
		name, _ := f.String("station_name")
		prov, _ := f.String("prov")
		fmt.Fprintf(w, "%s\t%s\t%s\n", id, name, prov)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := writeGeoJSON(cfg, "stations-near.geojson", res.Stations); err != nil {
		return err
	}
	return writeGeoJSON(cfg, "catchments-buffered.geojson", res.Buffered)
}

func runCoverage(ctx context.Context, cfg config.Config, cc *cache.CollectionCache, target geo.CRS, log zerolog.Logger) error {
	zoneLayers := make([]workflow.Source, 0, len(cfg.BECLayers))
	for _, layer := range cfg.BECLayers {
		zoneLayers = append(zoneLayers, workflow.Source{
			Key: keys.Key("bec", cfg.BECGeoPackage, layer),
			Load: func(ctx context.Context) (geo.Collection, error) {
				return source.GeoPackageLayer(ctx, source.GeoPackageSpec{
					Path:   cfg.BECGeoPackage,
					Layer:  layer,
					Rename: becRename,
					Types:  becTypes,
				})
			},
		})
	}

	res, err := workflow.Coverage(ctx, cc, workflow.CoverageInput{
		Catchments:   catchmentsSource(cfg),
		ZoneLayers:   zoneLayers,
		ZoneField:    "zone",
		ZoneCodes:    workflow.AlpineZoneCodes,
		TargetCRS:    target,
		KeyField:     "station_id",
		NameField:    "name",
		RefAreaField: "area_km2",
		RefAreaScale: 1e6,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATION\tNAME\tALPINE %")
	for _, row := range res.Rows {
		fmt.Fprintf(w, "%s\t%s\t%.1f\n", row.Key, row.Name, row.Percent)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return writeGeoJSON(cfg, "alpine-intersections.geojson", res.Intersections)
}

func writeGeoJSON(cfg config.Config, name string, c geo.Collection) error {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return err
	}
	data, err := geo.Encode(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cfg.OutputDir, name), data, 0o644)
}

func serveMetrics(addr string, log zerolog.Logger) {
	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	log.Info().Str("addr", addr).Msg("metrics endpoint up")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("metrics server error")
	}
}
