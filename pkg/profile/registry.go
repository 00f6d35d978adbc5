package profile

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/latticeforge/fpengine/pkg/fpengine"
)

func unmarshalProfile(raw []byte, out *Profile) error {
	return json.Unmarshal(raw, out)
}

// persister is the subset of pkg/store.BoltStore's namespaced JSON API the
// registry needs, kept as a narrow interface so tests can fake it without
// opening a real bbolt database.
type persister interface {
	PutJSON(ctx context.Context, bucket, key string, value any) error
	GetJSON(ctx context.Context, bucket, key string, out any) (bool, error)
	ForEachJSON(ctx context.Context, bucket string, fn func(key string, raw []byte) error) error
}

const namespace = "weight_profiles"

// Registry holds builtin and custom weight profiles. It is process-global
// and durable, not per-session — there is no session concept at this
// layer, so a per-session namespace has no natural key — backed by the
// store's weight_profiles namespace so custom profiles survive restarts.
type Registry struct {
	mu      sync.RWMutex
	custom  map[string]Profile
	builtin map[string]Profile
	store   persister
}

// NewRegistry constructs a Registry seeded with the builtin profiles and,
// if store is non-nil, loads any previously persisted custom profiles.
func NewRegistry(ctx context.Context, store persister) (*Registry, error) {
	r := &Registry{
		custom:  make(map[string]Profile),
		builtin: make(map[string]Profile),
		store:   store,
	}
	for _, p := range Builtins() {
		r.builtin[p.Name] = p
	}
	if store == nil {
		return r, nil
	}
	var loadErr error
	err := store.ForEachJSON(ctx, namespace, func(key string, raw []byte) error {
		var p Profile
		if uerr := unmarshalProfile(raw, &p); uerr != nil {
			loadErr = uerr
			return nil
		}
		r.custom[key] = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if loadErr != nil {
		return nil, loadErr
	}
	return r, nil
}

// Get resolves a profile by name, checking custom profiles first so a
// custom profile can shadow a builtin name deliberately (the create call
// below permits it, matching its "duplicate names replace the
// prior entry atomically" without distinguishing custom-vs-builtin
// namespaces).
func (r *Registry) Get(name string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.custom[name]; ok {
		return p, true
	}
	p, ok := r.builtin[name]
	return p, ok
}

// Create validates and persists a custom profile, replacing any prior entry
// under the same name atomically.
func (r *Registry) Create(ctx context.Context, p Profile) error {
	if err := Validate(p); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store != nil {
		if err := r.store.PutJSON(ctx, namespace, p.Name, p); err != nil {
			return fpengine.Wrap(fpengine.KindStorageError, err, "persist weight profile %s", p.Name)
		}
	}
	r.custom[p.Name] = p
	return nil
}

// Names returns every known profile name (builtin and custom).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.builtin)+len(r.custom))
	for name := range r.builtin {
		out = append(out, name)
	}
	for name := range r.custom {
		if _, isBuiltin := r.builtin[name]; !isBuiltin {
			out = append(out, name)
		}
	}
	return out
}
