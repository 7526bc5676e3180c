// Package registry is the on-disk catalog of workload specs: an
// in-memory map guarded by a read-write lock, backed by a per-workload
// JSON sidecar file that survives daemon restart and lets the lifecycle
// engine recreate a vanished container without Panel participation.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nexus-wings/wings/pkg/log"
	"github.com/nexus-wings/wings/pkg/metrics"
	"github.com/nexus-wings/wings/pkg/types"
)

// SidecarName is the per-workload file that persists its spec.
const SidecarName = ".nexus-config.json"

// Registry is the in-memory half of the spec catalog.
type Registry struct {
	mu      sync.RWMutex
	specs   map[string]types.WorkloadSpec
	dataDir string
}

// New creates an empty Registry rooted at dataDir.
func New(dataDir string) *Registry {
	return &Registry{
		specs:   make(map[string]types.WorkloadSpec),
		dataDir: dataDir,
	}
}

// Load walks dataDir and inserts every valid sidecar found under
// <dataDir>/<uuid>/.nexus-config.json, silently skipping entries that
// fail to parse. Intended to be called once at daemon startup.
func Load(dataDir string) *Registry {
	r := New(dataDir)

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return r
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dataDir, entry.Name(), SidecarName)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var spec types.WorkloadSpec
		if err := json.Unmarshal(data, &spec); err != nil {
			log.Logger.Warn().Str("path", path).Err(err).Msg("skipping unparseable spec sidecar")
			continue
		}
		r.specs[spec.UUID] = spec
	}
	metrics.WorkloadsRegistered.Set(float64(len(r.specs)))
	return r
}

// sidecarPath returns the expected sidecar path for uuid.
func (r *Registry) sidecarPath(uuid string) string {
	return filepath.Join(r.dataDir, uuid, SidecarName)
}

// Store replaces the in-memory entry for spec.UUID and best-effort
// persists the sidecar. A sidecar write failure is logged, not returned:
// the in-memory registry is authoritative for the current process run.
func (r *Registry) Store(spec types.WorkloadSpec) {
	r.mu.Lock()
	r.specs[spec.UUID] = spec
	metrics.WorkloadsRegistered.Set(float64(len(r.specs)))
	r.mu.Unlock()

	path := r.sidecarPath(spec.UUID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Logger.Warn().Str("uuid", spec.UUID).Err(err).Msg("failed to create sidecar directory")
		return
	}
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		log.Logger.Warn().Str("uuid", spec.UUID).Err(err).Msg("failed to marshal spec sidecar")
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Logger.Warn().Str("uuid", spec.UUID).Err(err).Msg("failed to write spec sidecar")
	}
}

// Get returns the spec for uuid, if present.
func (r *Registry) Get(uuid string) (types.WorkloadSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[uuid]
	return spec, ok
}

// Remove drops the in-memory entry for uuid and deletes its sidecar.
func (r *Registry) Remove(uuid string) error {
	r.mu.Lock()
	delete(r.specs, uuid)
	metrics.WorkloadsRegistered.Set(float64(len(r.specs)))
	r.mu.Unlock()

	if err := os.Remove(r.sidecarPath(uuid)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove spec sidecar: %w", err)
	}
	return nil
}

// List returns a snapshot of every spec currently registered.
func (r *Registry) List() []types.WorkloadSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.WorkloadSpec, 0, len(r.specs))
	for _, spec := range r.specs {
		out = append(out, spec)
	}
	return out
}
