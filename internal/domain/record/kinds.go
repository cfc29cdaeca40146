package record

import "fmt"

// RecordKind is the entity type a record represents.
type RecordKind string

const (
	KindUnknown  RecordKind = "unknown"
	KindItem     RecordKind = "item"
	KindInstance RecordKind = "instance"
	KindHoldings RecordKind = "holdings"
	KindLoan     RecordKind = "loan"
	KindUser     RecordKind = "user"
	KindType     RecordKind = "type"
)

// RecordKinds lists every known record kind except Unknown.
var RecordKinds = []RecordKind{KindItem, KindInstance, KindHoldings, KindLoan, KindUser, KindType}

// ParseRecordKind converts a name to a RecordKind.
func ParseRecordKind(s string) (RecordKind, error) {
	for _, k := range RecordKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("%w: record kind %q", ErrUnknownKind, s)
}

func (k RecordKind) String() string { return string(k) }

// IdentifierKind classifies where an identifier string comes from.
type IdentifierKind string

const (
	IDUnknown      IdentifierKind = "unknown"
	IDItemBarcode  IdentifierKind = "item_barcode"
	IDItemID       IdentifierKind = "item_id"
	IDItemHrid     IdentifierKind = "item_hrid"
	IDInstanceID   IdentifierKind = "instance_id"
	IDInstanceHrid IdentifierKind = "instance_hrid"
	IDAccession    IdentifierKind = "accession"
	IDHoldingsID   IdentifierKind = "holdings_id"
	IDHoldingsHrid IdentifierKind = "holdings_hrid"
	IDUserID       IdentifierKind = "user_id"
	IDUserBarcode  IdentifierKind = "user_barcode"
	IDLoanID       IdentifierKind = "loan_id"
	IDTypeID       IdentifierKind = "type_id"
)

// IdentifierKinds lists every identifier kind except Unknown.
var IdentifierKinds = []IdentifierKind{
	IDItemBarcode, IDItemID, IDItemHrid,
	IDInstanceID, IDInstanceHrid, IDAccession,
	IDHoldingsID, IDHoldingsHrid,
	IDUserID, IDUserBarcode,
	IDLoanID, IDTypeID,
}

// ParseIdentifierKind converts a name to an IdentifierKind.
func ParseIdentifierKind(s string) (IdentifierKind, error) {
	for _, k := range IdentifierKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return IDUnknown, fmt.Errorf("%w: identifier kind %q", ErrUnknownKind, s)
}

func (k IdentifierKind) String() string { return string(k) }

// RecordKind maps an identifier kind onto the record kind it names.
func (k IdentifierKind) RecordKind() RecordKind {
	switch k {
	case IDItemBarcode, IDItemID, IDItemHrid:
		return KindItem
	case IDInstanceID, IDInstanceHrid, IDAccession:
		return KindInstance
	case IDHoldingsID, IDHoldingsHrid:
		return KindHoldings
	case IDUserID, IDUserBarcode:
		return KindUser
	case IDLoanID:
		return KindLoan
	case IDTypeID:
		return KindType
	default:
		return KindUnknown
	}
}

// IDKind returns the identifier kind for the record's own id.
func (k RecordKind) IDKind() IdentifierKind {
	switch k {
	case KindItem:
		return IDItemID
	case KindInstance:
		return IDInstanceID
	case KindHoldings:
		return IDHoldingsID
	case KindLoan:
		return IDLoanID
	case KindUser:
		return IDUserID
	case KindType:
		return IDTypeID
	default:
		return IDUnknown
	}
}
