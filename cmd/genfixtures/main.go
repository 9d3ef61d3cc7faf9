// Command genfixtures writes deterministic mock hazard feature collections
// for demos and manual testing. Collections are shaped exactly like the
// upstream catalog wire format, so they can be PUT straight to the overlay
// service or published to the ingest topic.
//
// Usage:
//
//	go run ./cmd/genfixtures -out data/fixtures
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
)

// baseTime anchors every fixture; a fixed clock keeps output reproducible.
var baseTime = time.Date(2024, time.April, 26, 12, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "", "output directory for fixture JSON files")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	clock := clockwork.NewFakeClockAt(baseTime)

	fixtures := map[string]any{
		"earthquakes.json":  earthquakeFamily(clock.Now()),
		"volcanoes.json":    volcanoes(clock.Now()),
		"tsunamis.json":     tsunami(clock.Now()),
		"storm_tracks.json": stormTrack(clock.Now()),
		"tornadoes.json":    tornadoFamily(clock.Now()),
	}

	for name, collection := range fixtures {
		path := filepath.Join(*outDir, name)
		data, err := json.MarshalIndent(collection, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal %s: %w", name, err)
		}
		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		fmt.Println("wrote", path)
	}
	return nil
}

type collection struct {
	HazardType string    `json:"hazard_type"`
	Features   []feature `json:"features"`
}

type feature struct {
	ID         string         `json:"id"`
	Geometry   geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

func point(lon, lat float64) geometry {
	return geometry{Type: "Point", Coordinates: [2]float64{lon, lat}}
}

// earthquakeFamily is a mainshock with three aftershocks over six hours,
// all sharing one sequence id.
func earthquakeFamily(now time.Time) collection {
	mk := func(id string, dt time.Duration, mag, felt, damage float64, parent string) feature {
		props := map[string]any{
			"timestamp":   now.Add(dt).Format(time.RFC3339),
			"magnitude":   mag,
			"sequence_id": "seq-anatolia-1",
		}
		if felt > 0 {
			props["felt_radius_km"] = felt
		}
		if damage > 0 {
			props["damage_radius_km"] = damage
		}
		if parent != "" {
			props["parent_id"] = parent
		}
		return feature{ID: id, Geometry: point(37.03, 37.17), Properties: props}
	}
	return collection{
		HazardType: "earthquake",
		Features: []feature{
			mk("eq-main", 0, 7.2, 400, 90, ""),
			mk("eq-as1", 45*time.Minute, 5.1, 80, 0, "eq-main"),
			mk("eq-as2", 2*time.Hour, 5.8, 120, 20, "eq-main"),
			mk("eq-as3", 6*time.Hour, 4.6, 40, 0, "eq-main"),
		},
	}
}

func volcanoes(now time.Time) collection {
	return collection{
		HazardType: "volcano",
		Features: []feature{
			{
				ID:       "vo-etna",
				Geometry: point(14.99, 37.75),
				Properties: map[string]any{
					"timestamp":      now.Add(-30 * 24 * time.Hour).Format(time.RFC3339),
					"vei":            4,
					"felt_radius_km": 105.0,
				},
			},
			{
				ID:       "vo-historic",
				Geometry: point(105.42, -6.10),
				Properties: map[string]any{"year": 1883, "vei": 6},
			},
		},
	}
}

func tsunami(now time.Time) collection {
	src := feature{
		ID:       "ts-src",
		Geometry: point(142.37, 38.32),
		Properties: map[string]any{
			"timestamp":    now.Format(time.RFC3339),
			"magnitude":    9.0,
			"is_source":    true,
			"runup_count":  5000,
			"max_runup_km": 8000.0,
		},
	}
	runups := []feature{
		{ID: "ts-r1", Geometry: point(141.0, 38.4), Properties: map[string]any{
			"timestamp": now.Add(30 * time.Minute).Format(time.RFC3339),
			"height_m":  9.3, "parent_id": "ts-src",
		}},
		{ID: "ts-r2", Geometry: point(140.9, 35.7), Properties: map[string]any{
			"timestamp": now.Add(70 * time.Minute).Format(time.RFC3339),
			"height_m":  2.4, "parent_id": "ts-src",
		}},
	}
	return collection{HazardType: "tsunami", Features: append([]feature{src}, runups...)}
}

func stormTrack(now time.Time) collection {
	path := [][2]float64{{-75.0, 23.0}, {-76.5, 24.8}, {-78.2, 26.3}, {-80.0, 27.9}}
	return collection{
		HazardType: "storm_track",
		Features: []feature{
			{
				ID:       "st-irma",
				Geometry: geometry{Type: "LineString", Coordinates: path},
				Properties: map[string]any{
					"timestamp":  now.Format(time.RFC3339),
					"wind_speed": 130.0,
					"category":   4,
					"name":       "IRMA",
				},
			},
		},
	}
}

// tornadoFamily is one storm system's three linked tornado touchdowns.
func tornadoFamily(now time.Time) collection {
	mk := func(id string, dt time.Duration, scale string, lon, lat float64) feature {
		return feature{
			ID:       id,
			Geometry: point(lon, lat),
			Properties: map[string]any{
				"timestamp":   now.Add(dt).Format(time.RFC3339),
				"f_scale":     scale,
				"sequence_id": "seq-outbreak-7",
			},
		}
	}
	return collection{
		HazardType: "tornado",
		Features: []feature{
			mk("to-1", 0, "EF2", -98.44, 31.02),
			mk("to-2", 25*time.Minute, "EF3", -98.21, 31.19),
			mk("to-3", 55*time.Minute, "EF1", -97.95, 31.33),
		},
	}
}
