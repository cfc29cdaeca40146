package record

import (
	"fmt"
	"net/url"
	"strings"
)

type kindMeta struct {
	create    string
	update    string
	delete    string
	pluralKey string
	nameField string
}

var kindMetadata = map[RecordKind]kindMeta{
	KindItem: {
		create:    "/item-storage/items",
		update:    "/item-storage/items/{id}",
		delete:    "/item-storage/items/{id}",
		pluralKey: "items",
		nameField: "barcode",
	},
	KindInstance: {
		create:    "/instance-storage/instances",
		update:    "/instance-storage/instances/{id}",
		delete:    "/instance-storage/instances/{id}",
		pluralKey: "instances",
		nameField: "title",
	},
	KindHoldings: {
		create:    "/holdings-storage/holdings",
		update:    "/holdings-storage/holdings/{id}",
		delete:    "/holdings-storage/holdings/{id}",
		pluralKey: "holdingsRecords",
		nameField: "hrid",
	},
	KindLoan: {
		create:    "/circulation/loans",
		update:    "/circulation/loans/{id}",
		delete:    "/circulation/loans/{id}",
		pluralKey: "loans",
		nameField: "id",
	},
	KindUser: {
		create:    "/users",
		update:    "/users/{id}",
		delete:    "/users/{id}",
		pluralKey: "users",
		nameField: "username",
	},
	KindType: {},
}

// CreatePath returns the creation endpoint, if the kind has one.
func (k RecordKind) CreatePath() (string, bool) {
	m := kindMetadata[k]
	return m.create, m.create != ""
}

// UpdatePath returns the update endpoint for id, if the kind has one.
func (k RecordKind) UpdatePath(id string) (string, bool) {
	m := kindMetadata[k]
	if m.update == "" {
		return "", false
	}
	return Expand(m.update, id), true
}

// DeletePath returns the deletion endpoint for id, if the kind has one.
func (k RecordKind) DeletePath(id string) (string, bool) {
	m := kindMetadata[k]
	if m.delete == "" {
		return "", false
	}
	return Expand(m.delete, id), true
}

// PluralKey is the envelope key list endpoints use for this kind.
func (k RecordKind) PluralKey() string {
	return kindMetadata[k].pluralKey
}

// NameField is the document field used for display and sorting.
func (k RecordKind) NameField() string {
	if f := kindMetadata[k].nameField; f != "" {
		return f
	}
	return "name"
}

// Expand substitutes {id} in an endpoint template with a path-escaped id.
func Expand(template, id string) string {
	return strings.ReplaceAll(template, "{id}", url.PathEscape(id))
}

// TypeKind is a controlled-vocabulary category served as a type list.
type TypeKind string

const (
	TypeLocations       TypeKind = "locations"
	TypeLibraries       TypeKind = "libraries"
	TypeServicePoints   TypeKind = "service_points"
	TypeLoanTypes       TypeKind = "loan_types"
	TypeMaterialTypes   TypeKind = "material_types"
	TypeHoldingsTypes   TypeKind = "holdings_types"
	TypeInstanceTypes   TypeKind = "instance_types"
	TypeItemNoteTypes   TypeKind = "item_note_types"
	TypeCallNumberTypes TypeKind = "call_number_types"
	TypeStatCodes       TypeKind = "statistical_codes"
	TypePatronGroups    TypeKind = "patron_groups"
)

type typeMeta struct {
	path      string
	nameField string
}

var typeMetadata = map[TypeKind]typeMeta{
	TypeLocations:       {path: "/locations"},
	TypeLibraries:       {path: "/location-units/libraries"},
	TypeServicePoints:   {path: "/service-points"},
	TypeLoanTypes:       {path: "/loan-types"},
	TypeMaterialTypes:   {path: "/material-types"},
	TypeHoldingsTypes:   {path: "/holdings-types"},
	TypeInstanceTypes:   {path: "/instance-types"},
	TypeItemNoteTypes:   {path: "/item-note-types"},
	TypeCallNumberTypes: {path: "/call-number-types"},
	TypeStatCodes:       {path: "/statistical-codes"},
	TypePatronGroups:    {path: "/groups", nameField: "group"},
}

// TypeKinds lists the supported type-list categories in display order.
var TypeKinds = []TypeKind{
	TypeLocations, TypeLibraries, TypeServicePoints,
	TypeLoanTypes, TypeMaterialTypes, TypeHoldingsTypes,
	TypeInstanceTypes, TypeItemNoteTypes, TypeCallNumberTypes,
	TypeStatCodes, TypePatronGroups,
}

// ParseTypeKind converts a name to a TypeKind.
func ParseTypeKind(s string) (TypeKind, error) {
	if _, ok := typeMetadata[TypeKind(s)]; ok {
		return TypeKind(s), nil
	}
	return "", fmt.Errorf("%w: type kind %q", ErrUnknownKind, s)
}

// Path is the list endpoint for the type category.
func (t TypeKind) Path() string { return typeMetadata[t].path }

// NameField is the display field of entries in the type category.
func (t TypeKind) NameField() string {
	if f := typeMetadata[t].nameField; f != "" {
		return f
	}
	return "name"
}
