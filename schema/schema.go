// Package schema holds the declarative entity configuration: field
// definitions, validation metadata and view layouts. The registry is built
// once at process start and is read-only afterwards.
package schema

type (
	// FieldType is the set of supported field kinds.
	FieldType string

	// Icon identifies a display icon. Only enumerated values are accepted
	// at registration; there is no silent fallback at render time.
	Icon string

	// Field is a single entity attribute with its validation and display
	// metadata. Fields are kept in declaration order.
	Field struct {
		Name        string            `json:"name"`
		Type        FieldType         `json:"type"`
		DisplayName string            `json:"displayName,omitempty"`
		Primary     bool              `json:"isPrimary,omitempty"`
		Required    bool              `json:"isRequired,omitempty"`
		Hidden      bool              `json:"isHidden,omitempty"`
		Unique      bool              `json:"isUnique,omitempty"`
		Searchable  bool              `json:"isSearchable,omitempty"`
		Options     []string          `json:"options,omitempty"`
		Colors      map[string]string `json:"colors,omitempty"`
		Default     any               `json:"defaultValue,omitempty"`
		RelationTo  string            `json:"relationTo,omitempty"`
		// DisplayField names the field of the related entity shown in
		// place of the raw foreign key.
		DisplayField string `json:"displayField,omitempty"`
	}

	// ViewConfig describes one view of an entity.
	ViewConfig struct {
		Enabled        bool     `json:"enabled"`
		DefaultColumns []string `json:"defaultColumns,omitempty"`
	}

	// EntitySchema is the full declarative description of one manageable
	// resource. PluralName doubles as the REST path segment and the
	// backing table name.
	EntitySchema struct {
		Name              string                `json:"name"`
		PluralName        string                `json:"pluralName"`
		DisplayName       string                `json:"displayName"`
		DisplayNamePlural string                `json:"displayNamePlural"`
		Icon              Icon                  `json:"icon,omitempty"`
		Fields            []Field               `json:"fields"`
		Views             map[string]ViewConfig `json:"views"`
		// OwnerField names the field holding the creating principal's id.
		// When set, update and delete are restricted to the owner or an
		// admin, and the field is stamped on create.
		OwnerField string `json:"ownerField,omitempty"`
		// AdminOnly restricts every operation, reads included, to the
		// admin role.
		AdminOnly bool `json:"adminOnly,omitempty"`
		// OrderField overrides the default list ordering key. Lists are
		// ordered by this field descending; empty means the primary key.
		OrderField string `json:"orderField,omitempty"`
	}
)

const (
	TypeText     FieldType = "text"
	TypeNumber   FieldType = "number"
	TypeSelect   FieldType = "select"
	TypeStatus   FieldType = "status"
	TypeDate     FieldType = "date"
	TypeTime     FieldType = "time"
	TypeTextarea FieldType = "textarea"
	TypeRelation FieldType = "relation"
)

const (
	IconCar    Icon = "car"
	IconTicket Icon = "ticket"
	IconMapPin Icon = "map-pin"
	IconUser   Icon = "user"
)

// KnownIcons enumerates every icon the view layer can render.
var KnownIcons = map[Icon]bool{
	IconCar:    true,
	IconTicket: true,
	IconMapPin: true,
	IconUser:   true,
}

var knownFieldTypes = map[FieldType]bool{
	TypeText:     true,
	TypeNumber:   true,
	TypeSelect:   true,
	TypeStatus:   true,
	TypeDate:     true,
	TypeTime:     true,
	TypeTextarea: true,
	TypeRelation: true,
}

// Field returns the field with the given name, or nil.
func (s *EntitySchema) Field(name string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// PrimaryField returns the primary key field. The registry guarantees
// exactly one exists on every registered schema.
func (s *EntitySchema) PrimaryField() Field {
	for _, f := range s.Fields {
		if f.Primary {
			return f
		}
	}
	// Unreachable for registered schemas.
	return Field{}
}

// SearchFields returns the names of fields declared searchable.
func (s *EntitySchema) SearchFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Searchable {
			names = append(names, f.Name)
		}
	}
	return names
}

// WritableFields returns fields a client may supply in mutation payloads:
// everything except the primary key.
func (s *EntitySchema) WritableFields() []Field {
	fields := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Primary {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

// FormFields returns fields rendered in create/edit forms: non-hidden,
// non-primary fields in declaration order.
func (s *EntitySchema) FormFields() []Field {
	var fields []Field
	for _, f := range s.Fields {
		if f.Primary || f.Hidden {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

// HasOption reports whether value is one of the field's enumerated options.
func (f Field) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt == value {
			return true
		}
	}
	return false
}

// Enumerated reports whether the field restricts values to Options.
func (f Field) Enumerated() bool {
	return f.Type == TypeSelect || f.Type == TypeStatus
}

// Label returns the display name, falling back to the field name.
func (f Field) Label() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return f.Name
}
