package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind names a transaction type as it appears in the input "type" column.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindDispute    Kind = "dispute"
	KindResolve    Kind = "resolve"
	KindChargeback Kind = "chargeback"
)

// ErrUnknownKind is returned for a type string outside the five known kinds.
var ErrUnknownKind = errors.New("unknown transaction type")

// Kinds lists every transaction kind in declaration order.
var Kinds = []Kind{KindDeposit, KindWithdrawal, KindDispute, KindResolve, KindChargeback}

// ParseKind maps an input type string to a Kind. Matching is exact.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownKind, s)
}

// CarriesAmount reports whether transactions of this kind carry an amount.
func (k Kind) CarriesAmount() bool {
	return k == KindDeposit || k == KindWithdrawal
}

// Ref identifies the client and transaction a record refers to.
// For deposits and withdrawals Tx is the record's own ID; for the dispute
// family it points back at an earlier deposit.
type Ref struct {
	Client uint16
	Tx     uint32
}

// Key returns the reference itself. It is promoted into every variant.
func (r Ref) Key() Ref { return r }

// Transaction is one decoded input record. The set of implementations is
// closed: Deposit, Withdrawal, Dispute, Resolve and Chargeback.
type Transaction interface {
	Kind() Kind
	Key() Ref
	isTransaction()
}

// Deposit credits Amount to the client's available funds.
type Deposit struct {
	Ref
	Amount decimal.Decimal
}

// Withdrawal debits Amount from the client's available funds.
type Withdrawal struct {
	Ref
	Amount decimal.Decimal
}

// Dispute moves a deposit's amount from available to held.
type Dispute struct{ Ref }

// Resolve releases a disputed deposit back to available.
type Resolve struct{ Ref }

// Chargeback reverses a disputed deposit and locks the account.
type Chargeback struct{ Ref }

func (Deposit) Kind() Kind    { return KindDeposit }
func (Withdrawal) Kind() Kind { return KindWithdrawal }
func (Dispute) Kind() Kind    { return KindDispute }
func (Resolve) Kind() Kind    { return KindResolve }
func (Chargeback) Kind() Kind { return KindChargeback }

func (Deposit) isTransaction()    {}
func (Withdrawal) isTransaction() {}
func (Dispute) isTransaction()    {}
func (Resolve) isTransaction()    {}
func (Chargeback) isTransaction() {}

// New builds the Transaction variant for kind. amount is ignored for the
// dispute family.
func New(kind Kind, ref Ref, amount decimal.Decimal) (Transaction, error) {
	switch kind {
	case KindDeposit:
		return Deposit{Ref: ref, Amount: amount}, nil
	case KindWithdrawal:
		return Withdrawal{Ref: ref, Amount: amount}, nil
	case KindDispute:
		return Dispute{Ref: ref}, nil
	case KindResolve:
		return Resolve{Ref: ref}, nil
	case KindChargeback:
		return Chargeback{Ref: ref}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
}
