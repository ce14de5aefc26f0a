// Package accounts writes the per-client account report.
package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cleared-dev/payments/internal/id"
	"github.com/cleared-dev/payments/internal/model"
)

// Header is the CSV header of the account report.
const Header = "client,available,held,total,locked"

// Precision is the number of decimal places in reported amounts.
const Precision = 4

const (
	numFields    = 5
	colClient    = 0
	colAvailable = 1
	colHeld      = 2
	colTotal     = 3
	colLocked    = 4
)

// WriteAccounts writes the report, including the header, in the order given.
// Callers pass accounts sorted by client.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts an Account to a report row. Amounts are rounded to
// Precision places, with midpoints going to the even digit.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numFields)
	row[colClient] = id.FormatClient(acct.Client)
	row[colAvailable] = acct.Available.StringFixedBank(Precision)
	row[colHeld] = acct.Held.StringFixedBank(Precision)
	row[colTotal] = acct.Total().StringFixedBank(Precision)
	row[colLocked] = strconv.FormatBool(acct.Locked)
	return row
}
