package schema

import (
	"fmt"
)

// Violation reports a structural validation failure for one record field.
// Records carrying a Violation are quarantined, never stored.
type Violation struct {
	Field  string
	Reason string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("schema violation on field %q: %s", v.Field, v.Reason)
}

func missing(field string) *Violation {
	return &Violation{Field: field, Reason: "required field is missing"}
}

func wrongShape(field, want string) *Violation {
	return &Violation{Field: field, Reason: "field must be a " + want}
}
