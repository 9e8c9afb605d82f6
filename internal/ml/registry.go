package ml

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/floodguard/serving/internal/config"
	apperrors "github.com/floodguard/serving/pkg/errors"
	"github.com/floodguard/serving/pkg/logger"
)

// Handle is one immutable, fully loaded model plus its metadata. Handles are
// never mutated after publication; a reload publishes a new handle.
type Handle struct {
	Model      Model
	Config     config.ModelFamilyConfig
	LoadedAt   time.Time
	Generation uint64
}

// LoaderFunc loads and validates one artifact. Swappable in tests.
type LoaderFunc func(family Family, path string) (Model, error)

type familyEntry struct {
	cfg        config.ModelFamilyConfig
	active     atomic.Pointer[Handle]
	generation atomic.Uint64
}

// Registry owns the active model handle for every family. Handle replacement
// is a single atomic pointer swap: readers see either the previous or the
// next handle, never anything in between, and in-flight inference against an
// old handle completes against that handle.
type Registry struct {
	entries map[Family]*familyEntry
	load    LoaderFunc
	logger  logger.Logger
}

// NewRegistry creates an empty registry; no models are loaded yet.
func NewRegistry(cfg *config.ModelsConfig, log logger.Logger) *Registry {
	return NewRegistryWithLoader(cfg, Load, log)
}

// NewRegistryWithLoader creates a registry with a custom artifact loader.
func NewRegistryWithLoader(cfg *config.ModelsConfig, load LoaderFunc, log logger.Logger) *Registry {
	return &Registry{
		entries: map[Family]*familyEntry{
			FamilyRiskScorer:      {cfg: cfg.RiskScorer},
			FamilyNowcaster:       {cfg: cfg.Nowcaster},
			FamilyAnomalyDetector: {cfg: cfg.AnomalyDetector},
		},
		load:   load,
		logger: log.WithComponent("model_registry"),
	}
}

// Active returns the current handle for a family, or model_unavailable when
// none is loaded.
func (r *Registry) Active(family Family) (*Handle, error) {
	entry, ok := r.entries[family]
	if !ok {
		return nil, apperrors.ErrNotFound(fmt.Sprintf("model family %q", family))
	}
	handle := entry.active.Load()
	if handle == nil {
		return nil, apperrors.ErrModelUnavailable(string(family))
	}
	return handle, nil
}

// Reload loads the family's artifact from its configured path, validates it
// completely, and only then swaps it in. On failure the previous handle
// stays active and the error is scoped to this family.
func (r *Registry) Reload(ctx context.Context, family Family) (*Handle, error) {
	entry, ok := r.entries[family]
	if !ok {
		return nil, apperrors.ErrNotFound(fmt.Sprintf("model family %q", family))
	}

	model, err := r.load(family, entry.cfg.Path)
	if err != nil {
		r.logger.Error(ctx, "model reload failed, previous handle stays active", err,
			logger.String("family", string(family)),
			logger.String("path", entry.cfg.Path),
		)
		return nil, apperrors.ErrReloadFailed(string(family), err)
	}

	handle := &Handle{
		Model:      model,
		Config:     entry.cfg,
		LoadedAt:   time.Now().UTC(),
		Generation: entry.generation.Add(1),
	}
	entry.active.Store(handle)

	r.logger.Info(ctx, "model reloaded",
		logger.String("family", string(family)),
		logger.String("version", model.Version()),
		logger.Int64("generation", int64(handle.Generation)),
	)
	return handle, nil
}

// ReloadStatus is one family's outcome from a ReloadAll.
type ReloadStatus struct {
	Family  Family  `json:"family"`
	Success bool    `json:"success"`
	Version string  `json:"version,omitempty"`
	Error   string  `json:"error,omitempty"`
	Handle  *Handle `json:"-"`
}

// ReloadSummary aggregates a ReloadAll run.
type ReloadSummary struct {
	Statuses  []ReloadStatus `json:"statuses"`
	Succeeded int            `json:"succeeded"`
	Total     int            `json:"total"`
	Summary   string         `json:"summary"`
}

// ReloadAll reloads every family concurrently. A failure in one family never
// aborts the others; the summary reports partial success.
func (r *Registry) ReloadAll(ctx context.Context) *ReloadSummary {
	families := Families()
	statuses := make([]ReloadStatus, len(families))

	g, gctx := errgroup.WithContext(ctx)
	for i, family := range families {
		i, family := i, family
		g.Go(func() error {
			handle, err := r.Reload(gctx, family)
			status := ReloadStatus{Family: family}
			if err != nil {
				status.Error = err.Error()
			} else {
				status.Success = true
				status.Version = handle.Model.Version()
				status.Handle = handle
			}
			statuses[i] = status
			return nil
		})
	}
	_ = g.Wait()

	summary := &ReloadSummary{Statuses: statuses, Total: len(families)}
	for _, s := range statuses {
		if s.Success {
			summary.Succeeded++
		}
	}
	summary.Summary = fmt.Sprintf("%d/%d models reloaded", summary.Succeeded, summary.Total)

	r.logger.Info(ctx, "reload all completed", logger.String("summary", summary.Summary))
	return summary
}

// FamilyStatus describes one family for the status endpoint.
type FamilyStatus struct {
	Loaded     bool      `json:"loaded"`
	Name       string    `json:"name"`
	Version    string    `json:"version,omitempty"`
	Accuracy   float64   `json:"accuracy"`
	Path       string    `json:"path"`
	Generation uint64    `json:"generation"`
	LoadedAt   time.Time `json:"loaded_at,omitempty"`
}

// Status reports every family's current state.
func (r *Registry) Status() map[Family]FamilyStatus {
	out := make(map[Family]FamilyStatus, len(r.entries))
	for family, entry := range r.entries {
		status := FamilyStatus{
			Name:     entry.cfg.Name,
			Accuracy: entry.cfg.Accuracy,
			Path:     entry.cfg.Path,
		}
		if handle := entry.active.Load(); handle != nil {
			status.Loaded = true
			status.Version = handle.Model.Version()
			status.Generation = handle.Generation
			status.LoadedAt = handle.LoadedAt
		}
		out[family] = status
	}
	return out
}

// Ready reports whether every family has an active handle.
func (r *Registry) Ready() bool {
	for _, entry := range r.entries {
		if entry.active.Load() == nil {
			return false
		}
	}
	return true
}
