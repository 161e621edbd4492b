package schema

import (
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/xcono/parkrest/apperr"
)

// Registry is the process-wide collection of entity schemas. It is an
// explicit object passed to whoever needs it, never package state. All
// registration happens during startup; after Finalize the registry only
// serves reads and is safe for concurrent use without locking.
type Registry struct {
	mu        sync.RWMutex
	entities  map[string]*EntitySchema
	byPlural  map[string]*EntitySchema
	finalized bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*EntitySchema),
		byPlural: make(map[string]*EntitySchema),
	}
}

// Register validates and stores a schema. Relation targets are not checked
// here so entities may reference each other regardless of registration
// order; Finalize performs the cross-entity checks.
func (r *Registry) Register(s EntitySchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return apperr.Config("registry is finalized, no further registration", goerr.V("entity", s.Name))
	}
	if s.Name == "" || s.PluralName == "" {
		return apperr.Config("entity name and pluralName are required")
	}
	if _, ok := r.entities[s.Name]; ok {
		return apperr.Config("duplicate entity name", goerr.V("entity", s.Name))
	}
	if _, ok := r.byPlural[s.PluralName]; ok {
		return apperr.Config("duplicate entity pluralName", goerr.V("pluralName", s.PluralName))
	}
	if err := validateSchema(&s); err != nil {
		return err
	}

	cp := s
	r.entities[s.Name] = &cp
	r.byPlural[s.PluralName] = &cp
	return nil
}

// Finalize checks cross-entity references and freezes the registry.
func (r *Registry) Finalize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, s := range r.entities {
		for _, f := range s.Fields {
			if f.Type != TypeRelation {
				continue
			}
			target, ok := r.entities[f.RelationTo]
			if !ok {
				return apperr.Config("relation targets unregistered entity",
					goerr.V("entity", name), goerr.V("field", f.Name), goerr.V("relationTo", f.RelationTo))
			}
			if f.DisplayField != "" && target.Field(f.DisplayField) == nil {
				return apperr.Config("relation displayField does not exist on target entity",
					goerr.V("entity", name), goerr.V("field", f.Name), goerr.V("displayField", f.DisplayField))
			}
		}
		if s.OwnerField != "" && s.Field(s.OwnerField) == nil {
			return apperr.Config("ownerField does not exist",
				goerr.V("entity", name), goerr.V("ownerField", s.OwnerField))
		}
		if s.OrderField != "" && s.Field(s.OrderField) == nil {
			return apperr.Config("orderField does not exist",
				goerr.V("entity", name), goerr.V("orderField", s.OrderField))
		}
	}

	r.finalized = true
	return nil
}

// Resolve returns the schema registered under name. The same schema object
// is returned for every call within a process lifetime.
func (r *Registry) Resolve(name string) (*EntitySchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.entities[name]
	if !ok {
		return nil, apperr.Config("entity is not registered", goerr.V("entity", name))
	}
	return s, nil
}

// ResolveByPlural returns the schema whose pluralName matches the given
// path segment.
func (r *Registry) ResolveByPlural(plural string) (*EntitySchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byPlural[plural]
	if !ok {
		return nil, apperr.Config("no entity registered for path", goerr.V("pluralName", plural))
	}
	return s, nil
}

// Names returns all registered entity names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func validateSchema(s *EntitySchema) error {
	seen := make(map[string]bool, len(s.Fields))
	primaries := 0

	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Name == "" {
			return apperr.Config("field name is required", goerr.V("entity", s.Name))
		}
		if seen[f.Name] {
			return apperr.Config("duplicate field name",
				goerr.V("entity", s.Name), goerr.V("field", f.Name))
		}
		seen[f.Name] = true

		if !knownFieldTypes[f.Type] {
			return apperr.Config("unknown field type",
				goerr.V("entity", s.Name), goerr.V("field", f.Name), goerr.V("type", string(f.Type)))
		}
		if f.Primary {
			primaries++
		}
		if f.Enumerated() && len(f.Options) == 0 {
			return apperr.Config("select/status field requires options",
				goerr.V("entity", s.Name), goerr.V("field", f.Name))
		}
		for value := range f.Colors {
			if !f.HasOption(value) {
				return apperr.Config("color maps a value outside the field's options",
					goerr.V("entity", s.Name), goerr.V("field", f.Name), goerr.V("value", value))
			}
		}
		if f.Type == TypeRelation && f.RelationTo == "" {
			return apperr.Config("relation field requires relationTo",
				goerr.V("entity", s.Name), goerr.V("field", f.Name))
		}
	}

	if primaries != 1 {
		return apperr.Config("entity must declare exactly one primary field",
			goerr.V("entity", s.Name), goerr.V("primaries", primaries))
	}

	if s.Icon != "" && !KnownIcons[s.Icon] {
		return apperr.Config("unknown icon",
			goerr.V("entity", s.Name), goerr.V("icon", string(s.Icon)))
	}

	for viewName, view := range s.Views {
		if !view.Enabled {
			continue
		}
		for _, col := range view.DefaultColumns {
			if !seen[col] {
				return apperr.Config("view column does not exist in fields",
					goerr.V("entity", s.Name), goerr.V("view", viewName), goerr.V("column", col))
			}
		}
	}

	return nil
}
