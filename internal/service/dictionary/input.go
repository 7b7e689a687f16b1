package dictionary

import (
	"fmt"
	"regexp"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

// RegisterInput holds a dictionary to register.
type RegisterInput struct {
	Dictionary domain.Dictionary
}

// Validate checks the dictionary model and collects all errors. Foreign key
// cycles are checked separately.
func (i *RegisterInput) Validate() error {
	var errs []domain.FieldError
	d := i.Dictionary

	if d.Name == "" {
		errs = append(errs, domain.FieldError{Field: "name", Message: "required"})
	} else if len(d.Name) > 255 {
		errs = append(errs, domain.FieldError{Field: "name", Message: "too long (max 255)"})
	}
	if d.Version == "" {
		errs = append(errs, domain.FieldError{Field: "version", Message: "required"})
	}
	if len(d.Schemas) == 0 {
		errs = append(errs, domain.FieldError{Field: "schemas", Message: "at least one schema required"})
	}

	names := make(map[string]struct{}, len(d.Schemas))
	for si, s := range d.Schemas {
		path := fmt.Sprintf("schemas[%d]", si)
		if s.Name == "" {
			errs = append(errs, domain.FieldError{Field: path + ".name", Message: "required"})
		} else if _, dup := names[s.Name]; dup {
			errs = append(errs, domain.FieldError{Field: path + ".name", Message: "duplicate schema " + s.Name})
		}
		names[s.Name] = struct{}{}
		errs = append(errs, validateFields(path, s)...)
	}

	for si, s := range d.Schemas {
		path := fmt.Sprintf("schemas[%d]", si)
		for _, key := range s.UniqueKey {
			if _, ok := s.Field(key); !ok {
				errs = append(errs, domain.FieldError{Field: path + ".uniqueKey", Message: "unknown field " + key})
			}
		}
		for fi, fk := range s.ForeignKeys {
			errs = append(errs, validateForeignKey(fmt.Sprintf("%s.foreignKeys[%d]", path, fi), &d, s, fk)...)
		}
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

func validateFields(path string, s domain.Schema) []domain.FieldError {
	var errs []domain.FieldError

	if len(s.Fields) == 0 {
		errs = append(errs, domain.FieldError{Field: path + ".fields", Message: "at least one field required"})
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for fi, f := range s.Fields {
		fpath := fmt.Sprintf("%s.fields[%d]", path, fi)
		if f.Name == "" {
			errs = append(errs, domain.FieldError{Field: fpath + ".name", Message: "required"})
		} else if _, dup := seen[f.Name]; dup {
			errs = append(errs, domain.FieldError{Field: fpath + ".name", Message: "duplicate field " + f.Name})
		}
		seen[f.Name] = struct{}{}

		if !f.ValueType.IsValid() {
			errs = append(errs, domain.FieldError{Field: fpath + ".valueType", Message: "must be one of string, integer, number, boolean"})
		}
		r := f.Restrictions
		if r.Regex != "" {
			if _, err := regexp.Compile(r.Regex); err != nil {
				errs = append(errs, domain.FieldError{Field: fpath + ".restrictions.regex", Message: "does not compile"})
			}
		}
		if r.Range != nil {
			if !f.ValueType.IsNumeric() {
				errs = append(errs, domain.FieldError{Field: fpath + ".restrictions.range", Message: "only numeric fields take a range"})
			}
			if r.Range.Min != nil && r.Range.Max != nil && *r.Range.Min > *r.Range.Max {
				errs = append(errs, domain.FieldError{Field: fpath + ".restrictions.range", Message: "min exceeds max"})
			}
		}
	}
	return errs
}

func validateForeignKey(path string, d *domain.Dictionary, s domain.Schema, fk domain.ForeignKey) []domain.FieldError {
	target, ok := d.Schema(fk.Schema)
	if !ok {
		return []domain.FieldError{{Field: path + ".schema", Message: "unknown schema " + fk.Schema}}
	}
	if len(fk.Mappings) == 0 {
		return []domain.FieldError{{Field: path + ".mappings", Message: "at least one mapping required"}}
	}

	var errs []domain.FieldError
	for mi, m := range fk.Mappings {
		mpath := fmt.Sprintf("%s.mappings[%d]", path, mi)
		if _, ok := s.Field(m.Local); !ok {
			errs = append(errs, domain.FieldError{Field: mpath + ".local", Message: "unknown field " + m.Local + " in " + s.Name})
		}
		if _, ok := target.Field(m.Foreign); !ok {
			errs = append(errs, domain.FieldError{Field: mpath + ".foreign", Message: "unknown field " + m.Foreign + " in " + target.Name})
		}
	}
	return errs
}
