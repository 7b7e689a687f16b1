package domain

import (
	"time"

	"github.com/google/uuid"
)

// Dictionary is a versioned set of entity schemas a category validates against.
type Dictionary struct {
	ID        uuid.UUID `json:"id"        yaml:"-"`
	Name      string    `json:"name"      yaml:"name"`
	Version   string    `json:"version"   yaml:"version"`
	Schemas   []Schema  `json:"schemas"   yaml:"schemas"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
	CreatedBy uuid.UUID `json:"createdBy" yaml:"-"`
}

// Schema describes one entity type.
type Schema struct {
	Name        string       `json:"name"                  yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []Field      `json:"fields"                yaml:"fields"`
	ForeignKeys []ForeignKey `json:"foreignKeys,omitempty" yaml:"foreignKeys,omitempty"`
	UniqueKey   []string     `json:"uniqueKey,omitempty"   yaml:"uniqueKey,omitempty"`
}

// Field is a single attribute of an entity schema.
type Field struct {
	Name         string       `json:"name"                   yaml:"name"`
	ValueType    ValueType    `json:"valueType"              yaml:"valueType"`
	IsArray      bool         `json:"isArray,omitempty"      yaml:"isArray,omitempty"`
	Description  string       `json:"description,omitempty"  yaml:"description,omitempty"`
	Restrictions Restrictions `json:"restrictions,omitzero"  yaml:"restrictions,omitempty"`
}

// Restrictions constrain the values a field accepts.
type Restrictions struct {
	Required bool         `json:"required,omitempty" yaml:"required,omitempty"`
	Unique   bool         `json:"unique,omitempty"   yaml:"unique,omitempty"`
	Regex    string       `json:"regex,omitempty"    yaml:"regex,omitempty"`
	CodeList []any        `json:"codeList,omitempty" yaml:"codeList,omitempty"`
	Range    *NumberRange `json:"range,omitempty"    yaml:"range,omitempty"`
}

// NumberRange bounds a numeric field. Nil bounds are open.
type NumberRange struct {
	Min          *float64 `json:"min,omitempty"          yaml:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"          yaml:"max,omitempty"`
	ExclusiveMin bool     `json:"exclusiveMin,omitempty" yaml:"exclusiveMin,omitempty"`
	ExclusiveMax bool     `json:"exclusiveMax,omitempty" yaml:"exclusiveMax,omitempty"`
}

// ForeignKey declares that records of the owning schema reference records of
// Schema through the listed field mappings.
type ForeignKey struct {
	Schema   string              `json:"schema"   yaml:"schema"`
	Mappings []ForeignKeyMapping `json:"mappings" yaml:"mappings"`
}

// ForeignKeyMapping pairs a local (child) field with the foreign (parent) field
// it must match.
type ForeignKeyMapping struct {
	Local   string `json:"local"   yaml:"local"`
	Foreign string `json:"foreign" yaml:"foreign"`
}

// Schema returns the schema with the given name.
func (d *Dictionary) Schema(name string) (*Schema, bool) {
	for i := range d.Schemas {
		if d.Schemas[i].Name == name {
			return &d.Schemas[i], true
		}
	}
	return nil, false
}

// HasSchema reports whether the dictionary declares an entity called name.
func (d *Dictionary) HasSchema(name string) bool {
	_, ok := d.Schema(name)
	return ok
}

// SchemaNames returns schema names in declaration order.
func (d *Dictionary) SchemaNames() []string {
	names := make([]string, len(d.Schemas))
	for i, s := range d.Schemas {
		names[i] = s.Name
	}
	return names
}

// FieldTypes returns the declared type of every field across all schemas.
// When two schemas declare the same field name, the first declaration wins.
func (d *Dictionary) FieldTypes() map[string]ValueType {
	types := make(map[string]ValueType)
	for _, s := range d.Schemas {
		for _, f := range s.Fields {
			if _, ok := types[f.Name]; !ok {
				types[f.Name] = f.ValueType
			}
		}
	}
	return types
}

// Field returns the field with the given name.
func (s *Schema) Field(name string) (*Field, bool) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// Category groups submissions and points at the dictionary currently used to
// validate them.
type Category struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	ActiveDictionaryID   uuid.UUID `json:"activeDictionaryId"`
	DefaultCentricEntity *string   `json:"defaultCentricEntity,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	CreatedBy            uuid.UUID `json:"createdBy"`
	UpdatedAt            time.Time `json:"updatedAt"`
	UpdatedBy            uuid.UUID `json:"updatedBy"`
}
