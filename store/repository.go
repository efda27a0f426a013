package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"ecoecho-core/models"
)

// Repository reads and writes the typed documents of every namespace.
// Documents missing a schema version are upgraded on read.
type Repository struct {
	store Store
}

func NewRepository(s Store) *Repository {
	return &Repository{store: s}
}

// Store returns the underlying key-value store.
func (r *Repository) Store() Store {
	return r.store
}

func (r *Repository) load(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := r.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, wrap("decode", key, err)
	}
	return true, nil
}

func (r *Repository) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return wrap("encode", key, err)
	}
	return r.store.Set(ctx, key, raw)
}

// History returns the namespace's scan history, newest first.
// The legacy client stored it as a bare JSON array.
func (r *Repository) History(ctx context.Context, ns Namespace) (models.ScanHistory, error) {
	key := ns.Key(KeyScanHistory)
	raw, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return models.ScanHistory{}, err
	}
	h := models.ScanHistory{SchemaVersion: models.CurrentSchemaVersion, Records: []models.ScanRecord{}}
	raw = bytes.TrimSpace(raw)
	if !ok || len(raw) == 0 {
		return h, nil
	}
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &h.Records); err != nil {
			return models.ScanHistory{}, wrap("decode", key, err)
		}
		return h, nil
	}
	if err := json.Unmarshal(raw, &h); err != nil {
		return models.ScanHistory{}, wrap("decode", key, err)
	}
	if h.Records == nil {
		h.Records = []models.ScanRecord{}
	}
	h.SchemaVersion = models.CurrentSchemaVersion
	return h, nil
}

func (r *Repository) SaveHistory(ctx context.Context, ns Namespace, h models.ScanHistory) error {
	h.SchemaVersion = models.CurrentSchemaVersion
	return r.save(ctx, ns.Key(KeyScanHistory), h)
}

// Aggregate returns the namespace's local aggregate, or a zero one.
func (r *Repository) Aggregate(ctx context.Context, ns Namespace) (models.LocalAggregateStats, error) {
	s := models.NewLocalAggregateStats()
	found, err := r.load(ctx, ns.Key(KeyUserStats), &s)
	if err != nil {
		return models.NewLocalAggregateStats(), err
	}
	if found {
		s.Upgrade()
	}
	return s, nil
}

func (r *Repository) SaveAggregate(ctx context.Context, ns Namespace, s models.LocalAggregateStats) error {
	s.SchemaVersion = models.CurrentSchemaVersion
	return r.save(ctx, ns.Key(KeyUserStats), s)
}

// Progress returns the namespace's achievement progress.
func (r *Repository) Progress(ctx context.Context, ns Namespace) (models.UserProgress, bool, error) {
	p := models.NewUserProgress()
	found, err := r.load(ctx, ns.Key(KeyUserProgress), &p)
	if err != nil {
		return models.NewUserProgress(), false, err
	}
	if found {
		p.Upgrade()
	}
	return p, found, nil
}

func (r *Repository) SaveProgress(ctx context.Context, ns Namespace, p models.UserProgress) error {
	p.SchemaVersion = models.CurrentSchemaVersion
	return r.save(ctx, ns.Key(KeyUserProgress), p)
}

// Points returns the namespace's points ledger.
func (r *Repository) Points(ctx context.Context, ns Namespace) (models.PointsLedger, error) {
	l := models.NewPointsLedger()
	found, err := r.load(ctx, ns.Key(KeyPoints), &l)
	if err != nil {
		return models.NewPointsLedger(), err
	}
	if found {
		l.Upgrade()
	}
	return l, nil
}

func (r *Repository) SavePoints(ctx context.Context, ns Namespace, l models.PointsLedger) error {
	l.SchemaVersion = models.CurrentSchemaVersion
	return r.save(ctx, ns.Key(KeyPoints), l)
}

// ProfileStats returns the last reconciled stats cached for the namespace.
func (r *Repository) ProfileStats(ctx context.Context, ns Namespace) (*models.ServerUserStats, error) {
	var s models.ServerUserStats
	found, err := r.load(ctx, ns.Key(KeyProfileStats), &s)
	if err != nil || !found {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) SaveProfileStats(ctx context.Context, ns Namespace, s models.ServerUserStats) error {
	s.SchemaVersion = models.CurrentSchemaVersion
	return r.save(ctx, ns.Key(KeyProfileStats), s)
}

// Raw returns every stored key with its raw JSON value, for diagnostics.
func (r *Repository) Raw(ctx context.Context) (map[string]json.RawMessage, error) {
	keys, err := r.store.ListKeys(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		v, ok, err := r.store.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if json.Valid(v) {
			out[k] = v
		} else {
			quoted, _ := json.Marshal(string(v))
			out[k] = quoted
		}
	}
	return out, nil
}

// RemoveNamespace deletes every document owned by ns.
func (r *Repository) RemoveNamespace(ctx context.Context, ns Namespace) error {
	for _, base := range BaseKeys {
		if err := r.store.Remove(ctx, ns.Key(base)); err != nil {
			return fmt.Errorf("remove %s namespace: %w", ns, err)
		}
	}
	return nil
}
