package model

import "github.com/shopspring/decimal"

// Account is the balance state of one client.
type Account struct {
	Client    uint16
	Available decimal.Decimal // may go negative after a dispute on spent funds
	Held      decimal.Decimal
	Locked    bool // set by a chargeback, never cleared
}

// Total returns available + held.
func (a Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}
