package resolve

import (
	"github.com/rpggio/catalogbulk/internal/domain/identifier"
	"github.com/rpggio/catalogbulk/internal/domain/record"
)

// Path placeholders switched by Options.ComputedView.
const (
	itemsPrefix     = "{items}"
	instancesPrefix = "{instances}"
)

type strategy interface{ strategy() }

// direct is a single endpoint call. With field set the endpoint is a list
// queried by field==id; otherwise {id} is substituted into path.
type direct struct {
	path            string
	field           string
	notFoundIsEmpty bool
	padUserBarcode  bool
}

// chain resolves via records from the same id, then resolves the id found
// at field of each via record as next.
type chain struct {
	via   record.RecordKind
	field string
	next  record.IdentifierKind
}

// rekey rewrites the id without a network call and resolves it as kind to.
type rekey struct {
	to        record.IdentifierKind
	transform func(string) (string, error)
}

// typeScan looks a type id up across every cached type list.
type typeScan struct{}

func (direct) strategy()   {}
func (chain) strategy()    {}
func (rekey) strategy()    {}
func (typeScan) strategy() {}

type route struct {
	target record.RecordKind
	idKind record.IdentifierKind
}

var (
	itemKinds     = []record.IdentifierKind{record.IDItemBarcode, record.IDItemID, record.IDItemHrid}
	holdingsKinds = []record.IdentifierKind{record.IDHoldingsID, record.IDHoldingsHrid}
	instanceKinds = []record.IdentifierKind{record.IDInstanceID, record.IDInstanceHrid}
)

var accessionToInstance = rekey{to: record.IDInstanceID, transform: identifier.InstanceIDFromAccession}

func byID(path string) direct { return direct{path: path, notFoundIsEmpty: true} }

func byField(path, field string) direct { return direct{path: path, field: field} }

func via(kind record.RecordKind, field string, next record.IdentifierKind) chain {
	return chain{via: kind, field: field, next: next}
}

// defaultRegistry is the full routing table, keyed by (target, id kind).
func defaultRegistry() map[route]strategy {
	reg := map[route]strategy{}
	add := func(target record.RecordKind, s strategy, kinds ...record.IdentifierKind) {
		for _, k := range kinds {
			reg[route{target: target, idKind: k}] = s
		}
	}

	// Items
	add(record.KindItem, byField(itemsPrefix, "barcode"), record.IDItemBarcode)
	add(record.KindItem, byID(itemsPrefix+"/{id}"), record.IDItemID)
	add(record.KindItem, byField(itemsPrefix, "hrid"), record.IDItemHrid)
	add(record.KindItem, byField(itemsPrefix, "holdingsRecordId"), record.IDHoldingsID)
	add(record.KindItem, via(record.KindHoldings, "id", record.IDHoldingsID),
		record.IDHoldingsHrid, record.IDInstanceID, record.IDInstanceHrid)
	add(record.KindItem, via(record.KindLoan, "itemId", record.IDItemID),
		record.IDLoanID, record.IDUserID, record.IDUserBarcode)

	// Holdings
	add(record.KindHoldings, byID("/holdings-storage/holdings/{id}"), record.IDHoldingsID)
	add(record.KindHoldings, byField("/holdings-storage/holdings", "hrid"), record.IDHoldingsHrid)
	add(record.KindHoldings, byField("/holdings-storage/holdings", "instanceId"), record.IDInstanceID)
	add(record.KindHoldings, via(record.KindInstance, "id", record.IDInstanceID), record.IDInstanceHrid)
	add(record.KindHoldings, via(record.KindItem, "holdingsRecordId", record.IDHoldingsID), itemKinds...)
	add(record.KindHoldings, via(record.KindItem, "holdingsRecordId", record.IDHoldingsID),
		record.IDLoanID, record.IDUserID, record.IDUserBarcode)

	// Instances
	add(record.KindInstance, byID(instancesPrefix+"/{id}"), record.IDInstanceID)
	add(record.KindInstance, byField(instancesPrefix, "hrid"), record.IDInstanceHrid)
	add(record.KindInstance, via(record.KindHoldings, "instanceId", record.IDInstanceID), holdingsKinds...)
	add(record.KindInstance, via(record.KindHoldings, "instanceId", record.IDInstanceID), itemKinds...)
	add(record.KindInstance, via(record.KindHoldings, "instanceId", record.IDInstanceID),
		record.IDLoanID, record.IDUserID, record.IDUserBarcode)

	// Loans
	add(record.KindLoan, byID("/circulation/loans/{id}"), record.IDLoanID)
	add(record.KindLoan, byField("/circulation/loans", "userId"), record.IDUserID)
	add(record.KindLoan, byField("/circulation/loans", "itemId"), record.IDItemID)
	add(record.KindLoan, via(record.KindUser, "id", record.IDUserID), record.IDUserBarcode)
	add(record.KindLoan, via(record.KindItem, "id", record.IDItemID), record.IDItemBarcode, record.IDItemHrid)
	add(record.KindLoan, via(record.KindItem, "id", record.IDItemID), holdingsKinds...)
	add(record.KindLoan, via(record.KindItem, "id", record.IDItemID), instanceKinds...)

	// Users
	add(record.KindUser, byID("/users/{id}"), record.IDUserID)
	add(record.KindUser, direct{path: "/users", field: "barcode", padUserBarcode: true}, record.IDUserBarcode)
	add(record.KindUser, via(record.KindLoan, "userId", record.IDUserID), record.IDLoanID)
	add(record.KindUser, via(record.KindLoan, "userId", record.IDUserID), itemKinds...)
	add(record.KindUser, via(record.KindLoan, "userId", record.IDUserID), holdingsKinds...)
	add(record.KindUser, via(record.KindLoan, "userId", record.IDUserID), instanceKinds...)

	// Accession numbers encode the instance id for every target.
	for _, target := range []record.RecordKind{record.KindItem, record.KindHoldings, record.KindInstance, record.KindLoan, record.KindUser} {
		add(target, accessionToInstance, record.IDAccession)
	}

	add(record.KindType, typeScan{}, record.IDTypeID)
	return reg
}
