package device

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry assigns and caches appliance handles.
// It wraps a Repository and keeps every appliance in memory by name.
//
// All public methods are thread-safe.
type Registry struct {
	repo   Repository
	logger Logger
	now    func() time.Time

	// ensureMu serialises first-sight registration so one name never
	// gets two handles.
	ensureMu sync.Mutex

	cacheMu sync.RWMutex
	cache   map[string]Appliance // by name
}

// NewRegistry creates an appliance registry over repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		logger: noopLogger{},
		now:    func() time.Time { return time.Now().UTC() },
		cache:  make(map[string]Appliance),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all appliances from the repository.
// Call it once on startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	appliances, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading appliances: %w", err)
	}

	cache := make(map[string]Appliance, len(appliances))
	for _, a := range appliances {
		cache[a.Name] = a
	}

	r.cacheMu.Lock()
	r.cache = cache
	r.cacheMu.Unlock()

	r.logger.Info("appliance cache refreshed", "count", len(appliances))
	return nil
}

// EnsureDevice returns the handle of the named appliance, creating and
// persisting a new one on first sight. A known appliance has its last-seen
// time updated.
//
// Parameters:
//   - ctx: Context for repository calls
//   - name: Appliance name from the bus topic
//
// Returns:
//   - string: Stable handle
//   - error: ErrInvalidName or a repository failure
func (r *Registry) EnsureDevice(ctx context.Context, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}

	r.ensureMu.Lock()
	defer r.ensureMu.Unlock()

	now := r.now()
	if a, ok := r.cached(name); ok {
		if err := r.repo.UpdateLastSeen(ctx, a.ID, now); err != nil {
			r.logger.Warn("recording last seen failed", "device", name, "error", err)
		} else {
			a.LastSeen = now
			r.store(a)
		}
		return a.ID, nil
	}

	a, err := r.repo.GetByName(ctx, name)
	switch {
	case err == nil:
		if err := r.repo.UpdateLastSeen(ctx, a.ID, now); err == nil {
			a.LastSeen = now
		}
		r.store(*a)
		return a.ID, nil
	case !errors.Is(err, ErrDeviceNotFound):
		return "", err
	}

	created := Appliance{ID: GenerateID(), Name: name, FirstSeen: now, LastSeen: now}
	if err := r.repo.Create(ctx, &created); err != nil {
		return "", err
	}
	r.store(created)

	r.logger.Info("appliance registered", "device", name, "id", created.ID)
	return created.ID, nil
}

// GetDevice returns the named appliance.
// Returns ErrDeviceNotFound if it has never been seen.
func (r *Registry) GetDevice(ctx context.Context, name string) (Appliance, error) {
	if a, ok := r.cached(name); ok {
		return a, nil
	}

	a, err := r.repo.GetByName(ctx, name)
	if err != nil {
		return Appliance{}, err
	}
	r.store(*a)
	return *a, nil
}

// ListDevices returns every cached appliance ordered by name.
func (r *Registry) ListDevices() []Appliance {
	r.cacheMu.RLock()
	appliances := make([]Appliance, 0, len(r.cache))
	for _, a := range r.cache {
		appliances = append(appliances, a)
	}
	r.cacheMu.RUnlock()

	sort.Slice(appliances, func(i, j int) bool { return appliances[i].Name < appliances[j].Name })
	return appliances
}

// DeleteDevice forgets the named appliance. It is given a new handle if it
// is seen again.
func (r *Registry) DeleteDevice(ctx context.Context, name string) error {
	a, err := r.GetDevice(ctx, name)
	if err != nil {
		return err
	}
	if err := r.repo.Delete(ctx, a.ID); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, name)
	r.cacheMu.Unlock()

	r.logger.Info("appliance deleted", "device", name, "id", a.ID)
	return nil
}

func (r *Registry) cached(name string) (Appliance, bool) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	a, ok := r.cache[name]
	return a, ok
}

func (r *Registry) store(a Appliance) {
	r.cacheMu.Lock()
	r.cache[a.Name] = a
	r.cacheMu.Unlock()
}
