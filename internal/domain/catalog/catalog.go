// Package catalog reads the scoring-target catalog and session settings from
// remote configuration and turns them into an immutable Snapshot.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/okian/hoops/internal/domain/apperrors"
	"github.com/okian/hoops/internal/domain/model"
	"github.com/okian/hoops/pkg/metrics"
)

// Remote configuration keys.
const (
	KeySessionLength  = "sessionLength" // seconds, float
	KeyHoops          = "hoops"         // JSON array of targets
	KeyProgressPoints = "progressXP"    // progress points granted per validated hit
	KeySpawnDelay     = "spawnDelay"    // seconds between client spawns, informational
)

// AllKeys lists every key a full snapshot needs.
var AllKeys = []string{KeySessionLength, KeyHoops, KeyProgressPoints, KeySpawnDelay}

// Source is the remote configuration read the reader consumes.
type Source interface {
	// FetchSettings returns the values for keys. Missing keys are absent from the map.
	FetchSettings(ctx context.Context, player model.Player, keys []string) (map[string]any, error)
}

// Snapshot is one consistent view of the remote catalog.
type Snapshot struct {
	Targets       []model.ScoringTarget
	SessionLength time.Duration
	PointsPerHit  int64
	SpawnDelay    time.Duration
	targetsByID   map[int]model.ScoringTarget
	hasTargets    bool
}

// Target returns the target with id.
func (s Snapshot) Target(id int) (model.ScoringTarget, bool) {
	t, ok := s.targetsByID[id]
	return t, ok
}

// Reader fetches and decodes catalog snapshots. It has no side effects.
type Reader struct {
	source Source
}

// NewReader builds a Reader over source.
func NewReader(source Source) *Reader {
	return &Reader{source: source}
}

// Snapshot fetches the full catalog: targets, session length and per-hit progress points.
func (r *Reader) Snapshot(ctx context.Context, player model.Player) (Snapshot, error) {
	s, err := r.fetch(ctx, player, AllKeys)
	if err != nil {
		return Snapshot{}, err
	}
	if !s.hasTargets {
		return Snapshot{}, apperrors.InvalidCatalog("missing "+KeyHoops, nil)
	}
	metrics.UpdateCatalogTargets(len(s.Targets))
	return s, nil
}

// SessionLength fetches only the configured session length.
func (r *Reader) SessionLength(ctx context.Context, player model.Player) (time.Duration, error) {
	s, err := r.fetch(ctx, player, []string{KeySessionLength})
	if err != nil {
		return 0, err
	}
	return s.SessionLength, nil
}

func (r *Reader) fetch(ctx context.Context, player model.Player, keys []string) (Snapshot, error) {
	start := time.Now()
	settings, err := r.source.FetchSettings(ctx, player, keys)
	metrics.RecordDependencyLatency("remote_config", "fetch", float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordDependencyError("remote_config", "fetch")
		return Snapshot{}, fmt.Errorf("fetch catalog settings %v: %w", keys, err)
	}
	return Decode(settings)
}

// Decode builds a Snapshot from raw settings. The session length is required;
// targets are decoded when present and must have unique ids.
func Decode(settings map[string]any) (Snapshot, error) {
	var s Snapshot

	raw, ok := settings[KeySessionLength]
	if !ok {
		return Snapshot{}, apperrors.InvalidCatalog("missing "+KeySessionLength, nil)
	}
	seconds, err := toFloat(raw)
	if err != nil || seconds <= 0 {
		return Snapshot{}, apperrors.InvalidCatalog(fmt.Sprintf("%s must be a positive number, got %v", KeySessionLength, raw), err)
	}
	s.SessionLength = time.Duration(seconds * float64(time.Second))

	if raw, ok := settings[KeyProgressPoints]; ok {
		v, err := toFloat(raw)
		if err != nil || v < 0 {
			return Snapshot{}, apperrors.InvalidCatalog(fmt.Sprintf("%s must be a non-negative number, got %v", KeyProgressPoints, raw), err)
		}
		s.PointsPerHit = int64(math.Round(v))
	}

	if raw, ok := settings[KeySpawnDelay]; ok {
		if v, err := toFloat(raw); err == nil && v > 0 {
			s.SpawnDelay = time.Duration(v * float64(time.Second))
		}
	}

	if raw, ok := settings[KeyHoops]; ok {
		targets, err := decodeTargets(raw)
		if err != nil {
			return Snapshot{}, err
		}
		s.Targets = targets
		s.hasTargets = true
	}

	s.targetsByID = make(map[int]model.ScoringTarget, len(s.Targets))
	for _, t := range s.Targets {
		if _, dup := s.targetsByID[t.ID]; dup {
			return Snapshot{}, apperrors.InvalidCatalog(fmt.Sprintf("duplicate target id %d", t.ID), nil)
		}
		s.targetsByID[t.ID] = t
	}
	return s, nil
}

// wireTarget matches the remote config shape: {"id":7,"score":5,"x":0,"y":1,"z":2}.
type wireTarget struct {
	ID    *int    `json:"id"`
	Score *int    `json:"score"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

func decodeTargets(raw any) ([]model.ScoringTarget, error) {
	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		// Already decoded by the source (YAML/JSON file): normalize through JSON.
		b, err := json.Marshal(v)
		if err != nil {
			return nil, apperrors.InvalidCatalog(KeyHoops+" is not encodable", err)
		}
		data = b
	}

	var wire []wireTarget
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, apperrors.InvalidCatalog(KeyHoops+" is not a target list", err)
	}
	out := make([]model.ScoringTarget, 0, len(wire))
	for i, w := range wire {
		if w.ID == nil || w.Score == nil {
			return nil, apperrors.InvalidCatalog(fmt.Sprintf("target #%d needs id and score", i), nil)
		}
		out = append(out, model.ScoringTarget{
			ID:       *w.ID,
			Points:   *w.Score,
			Position: model.Position{X: w.X, Y: w.Y, Z: w.Z},
		})
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("unsupported number type %T", v)
	}
}
