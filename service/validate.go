package service

import (
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/xcono/parkrest/apperr"
	"github.com/xcono/parkrest/schema"
	"github.com/xcono/parkrest/store"
)

// filterWritable drops everything a client must not set: unknown keys,
// the primary key and hidden fields. Nil values are dropped too, so JSON
// nulls cannot blank out required columns.
func filterWritable(s *schema.EntitySchema, input store.Record) store.Record {
	out := make(store.Record, len(input))
	for _, f := range s.FormFields() {
		value, ok := input[f.Name]
		if !ok || value == nil {
			continue
		}
		out[f.Name] = value
	}
	return out
}

// validateFields checks the filtered input against the field metadata.
// With partial set, absent fields are fine (they keep stored values);
// otherwise every required field without a declared default must be
// present.
func validateFields(s *schema.EntitySchema, fields store.Record, partial bool) error {
	for _, f := range s.WritableFields() {
		if f.Name == s.OwnerField {
			// Stamped from the principal, never client input.
			continue
		}
		value, present := fields[f.Name]

		if !present {
			if !partial && f.Required && f.Default == nil {
				return apperr.Validation("missing required field",
					goerr.V("entity", s.Name), goerr.V("field", f.Name))
			}
			continue
		}

		if f.Enumerated() && !f.HasOption(asString(value)) {
			return apperr.Validation("value is not an allowed option",
				goerr.V("entity", s.Name), goerr.V("field", f.Name),
				goerr.V("value", value), goerr.V("options", f.Options))
		}
	}
	return nil
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
