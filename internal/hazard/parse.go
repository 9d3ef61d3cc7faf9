package hazard

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// rawCollection mirrors the upstream wire format: a GeoJSON-style feature
// collection with a flat property bag per feature.
type rawCollection struct {
	HazardType string       `json:"hazard_type"`
	Features   []rawFeature `json:"features"`
}

type rawFeature struct {
	ID         string         `json:"id"`
	Geometry   rawGeometry    `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type rawGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// ParseCollection deserializes an upstream feature collection. The hazard
// type must be known and each feature must carry an id and a decodable
// geometry; everything else is optional and read defensively.
func ParseCollection(data []byte) (Collection, error) {
	var raw rawCollection
	if err := json.Unmarshal(data, &raw); err != nil {
		return Collection{}, fmt.Errorf("parse feature collection: %w", err)
	}

	t := Type(strings.ToLower(strings.TrimSpace(raw.HazardType)))
	if !t.Valid() {
		return Collection{}, fmt.Errorf("parse feature collection: unknown hazard type %q", raw.HazardType)
	}

	features := make([]Feature, 0, len(raw.Features))
	for _, rf := range raw.Features {
		f, err := parseFeature(t, rf)
		if err != nil {
			return Collection{}, err
		}
		features = append(features, f)
	}

	return Collection{Type: t, Features: features}, nil
}

func parseFeature(t Type, rf rawFeature) (Feature, error) {
	if rf.ID == "" {
		return Feature{}, fmt.Errorf("parse feature: missing id")
	}

	geom, err := parseGeometry(rf.Geometry)
	if err != nil {
		return Feature{}, fmt.Errorf("parse feature %s: %w", rf.ID, err)
	}

	props := rf.Properties
	f := Feature{
		ID:             rf.ID,
		Type:           t,
		Geometry:       geom,
		Time:           timeProp(props, "timestamp"),
		Year:           int(floatProp(props, "year")),
		Magnitude:      magnitudeProp(t, props),
		FeltRadiusKm:   floatProp(props, "felt_radius_km"),
		DamageRadiusKm: floatProp(props, "damage_radius_km"),
		SequenceID:     stringProp(props, "sequence_id"),
		ParentID:       stringProp(props, "parent_id"),
		Lifecycle:      lifecycleProp(props),
	}

	switch t {
	case Tsunami:
		f.Tsunami = parseTsunamiInfo(props)
	case StormTrack:
		f.Storm = &StormInfo{
			Category: int(floatProp(props, "category")),
			Name:     stringProp(props, "name"),
		}
	}

	return f, nil
}

func parseGeometry(rg rawGeometry) (Geometry, error) {
	switch rg.Type {
	case "Point":
		var pt [2]float64
		if err := json.Unmarshal(rg.Coordinates, &pt); err != nil {
			return Geometry{}, fmt.Errorf("decode point coordinates: %w", err)
		}
		return Geometry{Kind: GeomPoint, Lon: pt[0], Lat: pt[1]}, nil
	case "LineString":
		var path [][2]float64
		if err := json.Unmarshal(rg.Coordinates, &path); err != nil {
			return Geometry{}, fmt.Errorf("decode line coordinates: %w", err)
		}
		return Geometry{Kind: GeomLine, Path: path}, nil
	case "Polygon", "MultiPolygon":
		rings, err := parsePolygonRings(rg)
		if err != nil {
			return Geometry{}, err
		}
		return Geometry{Kind: GeomPolygon, Rings: rings}, nil
	default:
		return Geometry{}, fmt.Errorf("unsupported geometry type %q", rg.Type)
	}
}

// parsePolygonRings flattens MultiPolygon parts into one ring list; the
// overlay never needs to recover individual parts.
func parsePolygonRings(rg rawGeometry) ([][][2]float64, error) {
	if rg.Type == "Polygon" {
		var rings [][][2]float64
		if err := json.Unmarshal(rg.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("decode polygon coordinates: %w", err)
		}
		return rings, nil
	}
	var parts [][][][2]float64
	if err := json.Unmarshal(rg.Coordinates, &parts); err != nil {
		return nil, fmt.Errorf("decode multipolygon coordinates: %w", err)
	}
	var rings [][][2]float64
	for _, part := range parts {
		rings = append(rings, part...)
	}
	return rings, nil
}

func parseTsunamiInfo(props map[string]any) *TsunamiInfo {
	info := &TsunamiInfo{Kind: TsunamiRunup}
	if boolProp(props, "is_source") {
		info.Kind = TsunamiSource
		info.RunupCount = int(floatProp(props, "runup_count"))
		info.MaxRunupKm = floatProp(props, "max_runup_km")
		return info
	}
	info.HeightM = floatProp(props, "height_m")
	return info
}

// magnitudeProp selects the magnitude column for the hazard type. Tornado
// scales may arrive as "EF3"/"F3" strings; prefixes are stripped. Unknown
// sentinels ("UNK") and unparsable values degrade to 0 (unmeasured).
func magnitudeProp(t Type, props map[string]any) float64 {
	var keys []string
	switch t {
	case Volcano:
		keys = []string{"vei", "magnitude"}
	case Tornado:
		keys = []string{"f_scale", "magnitude"}
	case StormTrack:
		keys = []string{"wind_speed", "magnitude"}
	case Wildfire, Flood:
		keys = []string{"area", "magnitude"}
	default:
		keys = []string{"magnitude"}
	}
	for _, k := range keys {
		v, ok := props[k]
		if !ok {
			continue
		}
		if m, ok := coerceMagnitude(v); ok {
			return m
		}
	}
	return 0
}

func coerceMagnitude(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" || strings.EqualFold(s, "UNK") {
			return 0, true
		}
		s = strings.TrimPrefix(s, "EF")
		s = strings.TrimPrefix(s, "F")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// lifecycleProp reads the externally attached fade value, clamped to [0,1].
// Absent or malformed means nil (full display).
func lifecycleProp(props map[string]any) *float64 {
	v, ok := props["_opacity"]
	if !ok {
		return nil
	}
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) {
		return nil
	}
	f = min(max(f, 0), 1)
	return &f
}

func stringProp(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func floatProp(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func boolProp(props map[string]any, key string) bool {
	switch v := props[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

func timeProp(props map[string]any, key string) time.Time {
	s, ok := props[key].(string)
	if !ok {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
