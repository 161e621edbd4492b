// Package service applies entity business rules on top of the store:
// input filtering, validation, defaulting, ownership and role checks.
// Handlers stay thin; everything entity-specific lives here or in the
// schema definitions.
package service

import (
	"context"

	"github.com/huandu/go-sqlbuilder"
	"github.com/m-mizutani/goerr/v2"
	"github.com/xcono/parkrest/apperr"
	"github.com/xcono/parkrest/schema"
	"github.com/xcono/parkrest/store"
)

// Principal identifies the authenticated caller for authorization
// decisions. The zero value is an anonymous caller.
type Principal struct {
	ID   int64
	Role string
}

// IsAdmin reports whether the caller holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == "admin"
}

// Factory hands out entity services backed by a shared registry and
// database connection.
type Factory struct {
	registry *schema.Registry
	exec     *store.Executor
	flavor   sqlbuilder.Flavor
}

func NewFactory(registry *schema.Registry, exec *store.Executor, flavor sqlbuilder.Flavor) *Factory {
	return &Factory{registry: registry, exec: exec, flavor: flavor}
}

// Service returns the service for the entity with the given singular name.
func (f *Factory) Service(name string) (*EntityService, error) {
	s, err := f.registry.Resolve(name)
	if err != nil {
		return nil, err
	}
	return f.build(s), nil
}

// ServiceByPlural resolves an entity by its plural (URL) name.
func (f *Factory) ServiceByPlural(plural string) (*EntityService, error) {
	s, err := f.registry.ResolveByPlural(plural)
	if err != nil {
		return nil, err
	}
	return f.build(s), nil
}

func (f *Factory) build(s *schema.EntitySchema) *EntityService {
	return &EntityService{
		schema:  s,
		adapter: store.NewAdapter(f.exec, s, f.flavor),
	}
}

// EntityService executes CRUD operations for one entity with the
// entity's access rules applied.
type EntityService struct {
	schema  *schema.EntitySchema
	adapter *store.Adapter
}

// Schema exposes the entity definition for routing and presentation.
func (s *EntityService) Schema() *schema.EntitySchema {
	return s.schema
}

// FieldDefinitions returns the fields a client may render in a form,
// hidden and primary fields excluded.
func (s *EntityService) FieldDefinitions() []schema.Field {
	return s.schema.FormFields()
}

// ViewConfig returns the named view. Asking for a disabled or undeclared
// view is a configuration error.
func (s *EntityService) ViewConfig(name string) (schema.ViewConfig, error) {
	view, ok := s.schema.Views[name]
	if !ok || !view.Enabled {
		return schema.ViewConfig{}, apperr.Config("view is not enabled for entity",
			goerr.V("entity", s.schema.Name), goerr.V("view", name))
	}
	return view, nil
}

// List returns one page of records. Owner-scoped entities restrict
// non-admin callers to their own records.
func (s *EntityService) List(ctx context.Context, p Principal, page store.Page) (store.Result, error) {
	if err := s.authorize(p); err != nil {
		return store.Result{}, err
	}
	if s.schema.OwnerField != "" && !p.IsAdmin() {
		page.Owner = p.ID
	}

	result, err := s.adapter.Search(ctx, page)
	if err != nil {
		return store.Result{}, err
	}
	for i, item := range result.Items {
		result.Items[i] = s.sanitize(item)
	}
	return result, nil
}

// GetByID returns a single record. Non-admin callers may only read their
// own records on owner-scoped entities.
func (s *EntityService) GetByID(ctx context.Context, p Principal, id int64) (store.Record, error) {
	if err := s.authorize(p); err != nil {
		return nil, err
	}
	record, err := s.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(p, record); err != nil {
		return nil, err
	}
	return s.sanitize(record), nil
}

// Create validates and inserts a record, returning it as stored. Client
// input is filtered to writable fields first, so primary keys, hidden
// fields and unknown keys are silently dropped.
func (s *EntityService) Create(ctx context.Context, p Principal, input store.Record) (store.Record, error) {
	if err := s.authorize(p); err != nil {
		return nil, err
	}
	fields, err := s.prepare(p, input)
	if err != nil {
		return nil, err
	}
	record, err := s.adapter.Create(ctx, fields)
	if err != nil {
		return nil, err
	}
	return s.sanitize(record), nil
}

// Update applies a partial update. Supplied fields are validated, absent
// ones keep their stored values.
func (s *EntityService) Update(ctx context.Context, p Principal, id int64, input store.Record) (store.Record, error) {
	if err := s.authorize(p); err != nil {
		return nil, err
	}
	current, err := s.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(p, current); err != nil {
		return nil, err
	}

	fields := filterWritable(s.schema, input)
	if err := validateFields(s.schema, fields, true); err != nil {
		return nil, err
	}
	record, err := s.adapter.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	return s.sanitize(record), nil
}

// Delete removes a record, subject to the same ownership rules as reads.
func (s *EntityService) Delete(ctx context.Context, p Principal, id int64) error {
	if err := s.authorize(p); err != nil {
		return err
	}
	record, err := s.adapter.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkOwnership(p, record); err != nil {
		return err
	}
	return s.adapter.Delete(ctx, id)
}

// BulkCreate validates every record up front, then inserts the batch in
// one transaction. A validation failure names the offending index and
// nothing is written.
func (s *EntityService) BulkCreate(ctx context.Context, p Principal, inputs []store.Record) ([]store.Record, error) {
	if err := s.authorize(p); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, apperr.Validation("empty batch", goerr.V("entity", s.schema.Name))
	}

	batch := make([]store.Record, 0, len(inputs))
	for i, input := range inputs {
		fields, err := s.prepare(p, input)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid record in batch", goerr.V("index", i))
		}
		batch = append(batch, fields)
	}

	created, err := s.adapter.BulkCreate(ctx, batch)
	if err != nil {
		return nil, err
	}
	for i, record := range created {
		created[i] = s.sanitize(record)
	}
	return created, nil
}

// prepare turns raw client input into an insertable record: over-posting
// filter, required and enum validation, then the owner stamp.
func (s *EntityService) prepare(p Principal, input store.Record) (store.Record, error) {
	fields := filterWritable(s.schema, input)
	if err := validateFields(s.schema, fields, false); err != nil {
		return nil, err
	}
	if s.schema.OwnerField != "" {
		fields[s.schema.OwnerField] = p.ID
	}
	return fields, nil
}

func (s *EntityService) authorize(p Principal) error {
	if s.schema.AdminOnly && !p.IsAdmin() {
		return apperr.Forbidden("admin role required", goerr.V("entity", s.schema.Name))
	}
	return nil
}

func (s *EntityService) checkOwnership(p Principal, record store.Record) error {
	if s.schema.OwnerField == "" || p.IsAdmin() {
		return nil
	}
	owner, ok := record[s.schema.OwnerField].(int64)
	if !ok || owner != p.ID {
		return apperr.Forbidden("record belongs to another user",
			goerr.V("entity", s.schema.Name))
	}
	return nil
}

// sanitize strips hidden fields from an outgoing record.
func (s *EntityService) sanitize(record store.Record) store.Record {
	out := make(store.Record, len(record))
	for key, value := range record {
		if f := s.schema.Field(key); f != nil && f.Hidden {
			continue
		}
		out[key] = value
	}
	return out
}
