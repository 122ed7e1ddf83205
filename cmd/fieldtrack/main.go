package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/verdantworks/field-tracker/core"
	"github.com/verdantworks/field-tracker/internal/ingest"
	"github.com/verdantworks/field-tracker/internal/logging"
	"github.com/verdantworks/field-tracker/internal/observability"
	"github.com/verdantworks/field-tracker/internal/tracker"
	"github.com/verdantworks/field-tracker/model"
)

func main() {
	zonesPath := flag.String("zones", "", "Path to a JSON file of zone records")
	treesPath := flag.String("trees", "", "Path to a JSON file of tree point records")
	geojsonPath := flag.String("geojson", "", "Path to a GeoJSON FeatureCollection of zones and trees")
	trackPath := flag.String("track", "", "Path to a recorded JSON track to replay (default: synthetic walk)")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics")

	radius := flag.Float64("radius", tracker.DefaultProximityRadiusMeters, "proximity radius in metres")
	distanceFilter := flag.Float64("distance-filter", 0, "minimum movement in metres before a sample is emitted (0 = off)")
	interval := flag.Duration("interval", time.Second, "replay pacing between samples")

	startLat := flag.Float64("start-lat", 10.7600, "synthetic walk start latitude")
	startLon := flag.Float64("start-lon", 106.6600, "synthetic walk start longitude")
	steps := flag.Int("steps", 30, "synthetic walk sample count")
	stepMeters := flag.Float64("step-meters", 15, "synthetic walk stride in metres")

	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Warn(ctx, "tracing disabled", logging.Err(err))
	} else {
		defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)
	}

	collector, err := observability.NewTrackerCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	field := core.NewFieldState()
	loadField(ctx, log, field, *zonesPath, *treesPath, *geojsonPath)
	zoneCount, treeCount := field.Counts()
	collector.SetFieldCounts(zoneCount, treeCount)

	track := loadTrack(ctx, log, *trackPath)
	if track == nil {
		track = tracker.SyntheticTrack(
			model.LatLon{Lat: *startLat, Lon: *startLon},
			*stepMeters, *steps, time.Now().UTC(), *interval,
		)
		log.Info(ctx, "using synthetic walk",
			logging.Float64("start_lat", *startLat),
			logging.Float64("start_lon", *startLon),
			logging.Int("steps", *steps),
		)
	}

	sensor := tracker.NewReplaySensor(track, *interval)
	tr := tracker.New(sensor, field, tracker.Config{
		DistanceFilterMeters:  *distanceFilter,
		ProximityRadiusMeters: *radius,
	}, tracker.WithLogger(log), tracker.WithCollector(collector))
	events := tr.Events()

	if err := tr.Start(ctx); err != nil {
		log.Error(ctx, "failed to start tracking", logging.Err(err))
		os.Exit(1)
	}
	fmt.Printf("Replaying %d samples over %d zones and %d trees (radius %.0f m)\n",
		len(track), zoneCount, treeCount, *radius)

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// The sensor signals exhaustion; counting position events would
	// hang here whenever the distance filter suppresses samples.
	emitted := 0
loop:
	for {
		select {
		case ev := <-events:
			printEvent(ev)
			if _, ok := ev.(tracker.PositionEvent); ok {
				emitted++
			}
		case <-sensor.Done():
			// Delivery is over; drain what is already buffered.
			for {
				select {
				case ev := <-events:
					printEvent(ev)
					if _, ok := ev.(tracker.PositionEvent); ok {
						emitted++
					}
				default:
					break loop
				}
			}
		case <-stopCtx.Done():
			fmt.Println("Interrupted.")
			break loop
		}
	}

	tr.Stop()
	fmt.Printf("Replay complete: %d of %d samples emitted, %d positions retained in history.\n",
		emitted, len(track), len(tr.History()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

func printEvent(ev tracker.Event) {
	switch e := ev.(type) {
	case tracker.PositionEvent:
		zone := "open field"
		if e.Proximity.CurrentZone != nil {
			zone = e.Proximity.CurrentZone.Name
			if zone == "" {
				zone = e.Proximity.CurrentZone.ID
			}
		}
		fmt.Printf("[%s] (%.6f, %.6f) ±%.0fm  zone=%-16s trees=%d\n",
			e.Position.Timestamp.Format(time.RFC3339),
			e.Position.Latitude, e.Position.Longitude, e.Position.AccuracyMeters,
			zone, len(e.Proximity.NearbyTrees),
		)
		for _, nt := range e.Proximity.NearbyTrees {
			fmt.Printf("  ↳ tree %-16s %5.1f m\n", nt.Tree.ID, nt.DistanceMeters)
		}
	case tracker.ZoneChangeEvent:
		switch {
		case e.Entered != nil && e.Exited != nil:
			fmt.Printf("  >> crossed from %q into %q\n", e.Exited.ID, e.Entered.ID)
		case e.Entered != nil:
			fmt.Printf("  >> entered zone %q\n", e.Entered.ID)
		case e.Exited != nil:
			fmt.Printf("  >> left zone %q\n", e.Exited.ID)
		}
	case tracker.PermissionEvent:
		fmt.Printf("  >> location permission: %s\n", e.State)
	case tracker.ErrorEvent:
		fmt.Printf("  >> sensor error (%s): %v\n", e.Kind, e.Err)
	}
}

func loadField(ctx context.Context, log logging.Logger, field *core.FieldState, zonesPath, treesPath, geojsonPath string) {
	var zones []model.Zone
	var trees []model.TreePoint

	if zonesPath != "" {
		f, err := os.Open(zonesPath)
		if err != nil {
			log.Warn(ctx, "skipping zone load", logging.String("path", zonesPath), logging.Err(err))
		} else {
			loaded, summary, err := ingest.LoadZones(f)
			f.Close()
			if err != nil {
				log.Warn(ctx, "failed to parse zones", logging.String("path", zonesPath), logging.Err(err))
			} else {
				zones = append(zones, loaded...)
				log.Info(ctx, "loaded zones",
					logging.String("path", zonesPath),
					logging.Int("count", len(loaded)),
					logging.Int("skipped", summary.SkippedZones),
				)
			}
		}
	}

	if treesPath != "" {
		f, err := os.Open(treesPath)
		if err != nil {
			log.Warn(ctx, "skipping tree load", logging.String("path", treesPath), logging.Err(err))
		} else {
			loaded, summary, err := ingest.LoadTrees(f)
			f.Close()
			if err != nil {
				log.Warn(ctx, "failed to parse trees", logging.String("path", treesPath), logging.Err(err))
			} else {
				trees = append(trees, loaded...)
				log.Info(ctx, "loaded trees",
					logging.String("path", treesPath),
					logging.Int("count", len(loaded)),
					logging.Int("skipped", summary.SkippedTrees),
				)
			}
		}
	}

	if geojsonPath != "" {
		f, err := os.Open(geojsonPath)
		if err != nil {
			log.Warn(ctx, "skipping geojson load", logging.String("path", geojsonPath), logging.Err(err))
		} else {
			gz, gt, err := ingest.LoadGeoJSON(f)
			f.Close()
			if err != nil {
				log.Warn(ctx, "failed to parse geojson", logging.String("path", geojsonPath), logging.Err(err))
			} else {
				zones = append(zones, gz...)
				trees = append(trees, gt...)
				log.Info(ctx, "loaded geojson",
					logging.String("path", geojsonPath),
					logging.Int("zones", len(gz)),
					logging.Int("trees", len(gt)),
				)
			}
		}
	}

	field.SetZones(zones)
	field.SetTrees(trees)
}

// loadTrack reads a recorded track from JSON. This stays local to main
// for now; the field app exports this shape directly.
func loadTrack(ctx context.Context, log logging.Logger, path string) []model.Position {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn(ctx, "skipping track load", logging.String("path", path), logging.Err(err))
		return nil
	}

	var records []struct {
		Lat       float64   `json:"lat"`
		Lng       float64   `json:"lng"`
		Accuracy  float64   `json:"accuracy"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &records); err != nil {
		log.Warn(ctx, "failed to parse track", logging.String("path", path), logging.Err(err))
		return nil
	}

	track := make([]model.Position, 0, len(records))
	for _, rec := range records {
		track = append(track, model.Position{
			Latitude:       rec.Lat,
			Longitude:      rec.Lng,
			AccuracyMeters: rec.Accuracy,
			Timestamp:      rec.Timestamp,
		})
	}
	return track
}

func serveMetrics(addr string, collector *observability.TrackerCollector, log logging.Logger) *http.Server {
	if collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
