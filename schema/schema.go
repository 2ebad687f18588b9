// Package schema implements the declarative field-definition mechanism
// shared by grouped AVPs and command bodies (spec.md §3 "command class",
// §4.3 C3). A *schema.Schema drives both Encode (named values ->
// []*avp.AVP) and Decode (that performs the inverse, routing known AVP
// codes to named fields and collecting the rest).
package schema

import (
	"fmt"

	"github.com/arkenstone-tel/diameter/avp"
)

// FieldDef declares one attribute of a command or grouped AVP.
type FieldDef struct {
	Name       string
	Code       uint32
	VendorID   uint32
	Mandatory  bool // sets the M bit when this field is encoded
	Required   bool // encode-time MISSING_AVP if absent
	IsList     bool // multiple occurrences collected into a slice
	Nested     *Schema
}

// Schema is an ordered list of FieldDef, encoding/decoding AVPs in
// declaration order (spec.md §4.3: "Lists are emitted in insertion order").
type Schema struct {
	Fields []FieldDef
}

func New(fields ...FieldDef) *Schema {
	return &Schema{Fields: fields}
}

func (s *Schema) fieldFor(code, vendorID uint32) (FieldDef, bool) {
	for _, f := range s.Fields {
		if f.Code == code && f.VendorID == vendorID {
			return f, true
		}
	}
	return FieldDef{}, false
}

// MissingAVPError is returned at encode time when a FieldDef.Required
// field has no value bound in the Values map, carrying the AVP code the
// way spec.md §4.3 requires ("carrying the missing AVP code").
type MissingAVPError struct {
	Code     uint32
	VendorID uint32
	Name     string
}

func (e *MissingAVPError) Error() string {
	return fmt.Sprintf("schema: missing required AVP %s (code %d)", e.Name, e.Code)
}

// Values is the decoded/to-encode attribute bag: scalar fields map to a
// single *avp.AVP, list fields to a []*avp.AVP, and anything the schema
// does not recognize lands in Additional, preserving wire order and the
// original flags (spec.md §4.3 "Grouped transparency").
type Values struct {
	scalar     map[string]*avp.AVP
	list       map[string][]*avp.AVP
	Additional []*avp.AVP
}

func NewValues() *Values {
	return &Values{scalar: map[string]*avp.AVP{}, list: map[string][]*avp.AVP{}}
}

func (v *Values) Set(name string, a *avp.AVP)       { v.scalar[name] = a }
func (v *Values) Get(name string) (*avp.AVP, bool)   { a, ok := v.scalar[name]; return a, ok }
func (v *Values) Append(name string, a *avp.AVP)     { v.list[name] = append(v.list[name], a) }
func (v *Values) List(name string) []*avp.AVP        { return v.list[name] }

// Encode walks the schema in declaration order, emitting each present
// field (scalar, then every item of a list field), and fails with
// MissingAVPError for an absent Required field.
func (s *Schema) Encode(values *Values) ([]*avp.AVP, error) {
	var out []*avp.AVP
	for _, f := range s.Fields {
		if f.IsList {
			items := values.List(f.Name)
			if f.Required && len(items) == 0 {
				return nil, &MissingAVPError{Code: f.Code, VendorID: f.VendorID, Name: f.Name}
			}
			out = append(out, items...)
			continue
		}
		a, ok := values.Get(f.Name)
		if !ok {
			if f.Required {
				return nil, &MissingAVPError{Code: f.Code, VendorID: f.VendorID, Name: f.Name}
			}
			continue
		}
		out = append(out, a)
	}
	out = append(out, values.Additional...)
	return out, nil
}

// Decode routes each wire AVP to the field it matches (by code+vendor);
// AVPs the schema does not declare are appended, in original order and
// with their original flags, to Values.Additional.
func (s *Schema) Decode(avps []*avp.AVP) *Values {
	values := NewValues()
	for _, a := range avps {
		f, ok := s.fieldFor(a.Code, a.VendorID)
		if !ok {
			values.Additional = append(values.Additional, a)
			continue
		}
		if f.IsList {
			values.Append(f.Name, a)
		} else {
			values.Set(f.Name, a)
		}
	}
	return values
}

// DecodeGrouped recursively decodes a Grouped AVP's children against a
// nested schema, used for e.g. Subscription-Id or Vendor-Specific-Application-Id.
func DecodeGrouped(s *Schema, g *avp.Grouped) *Values {
	return s.Decode(g.AVPs)
}
