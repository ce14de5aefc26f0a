// Package transactions decodes the transaction CSV stream.
package transactions

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/payments/internal/id"
	"github.com/cleared-dev/payments/internal/model"
)

// Header is the canonical CSV header for transaction files.
const Header = "type,client,tx,amount"

const (
	colType   = "type"
	colClient = "client"
	colTx     = "tx"
	colAmount = "amount"

	bom = "\ufeff"

	// maxScale is the most decimal places an amount may carry.
	maxScale = 28
)

// maxAmount is the largest amount magnitude accepted, 2^96-1.
var maxAmount = decimal.RequireFromString("79228162514264337593543950335")

var (
	// ErrMissingColumn is returned by NewReader when the header lacks a required column.
	ErrMissingColumn = errors.New("missing column")
	// ErrMissingAmount is returned for deposits and withdrawals without an amount.
	ErrMissingAmount = errors.New("missing amount")
	// ErrAmountOutOfRange is returned for amounts with more than 28 decimal
	// places or a magnitude above 2^96-1.
	ErrAmountOutOfRange = errors.New("amount out of range")
)

// RowError reports a row that could not be decoded. Reading may continue.
type RowError struct {
	Row int // 1-based line number, header is row 1
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// columns holds the position of each field; amount is -1 when absent.
type columns struct {
	kind, client, tx, amount int
}

// Reader streams transactions from CSV one row at a time.
type Reader struct {
	cr   *csv.Reader
	cols columns
	eof  bool
}

// NewReader reads the header row from r and returns a Reader positioned at
// the first data row. Columns are located by name, so any order works.
// An empty input yields a Reader with no rows.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	rd := &Reader{cr: cr}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		rd.eof = true
		return rd, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols, err := parseHeader(header)
	if err != nil {
		return nil, err
	}
	rd.cols = cols
	return rd, nil
}

func parseHeader(header []string) (columns, error) {
	cols := columns{kind: -1, client: -1, tx: -1, amount: -1}
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, bom)
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case colType:
			cols.kind = i
		case colClient:
			cols.client = i
		case colTx:
			cols.tx = i
		case colAmount:
			cols.amount = i
		}
	}

	required := []struct {
		name string
		idx  int
	}{
		{colType, cols.kind},
		{colClient, cols.client},
		{colTx, cols.tx},
	}
	for _, c := range required {
		if c.idx < 0 {
			return columns{}, fmt.Errorf("header %q: %w %q", strings.Join(header, ","), ErrMissingColumn, c.name)
		}
	}
	return cols, nil
}

// Read returns the next transaction. It returns io.EOF at the end of input
// and a *RowError for a row that failed to decode; any other error is fatal.
func (r *Reader) Read() (model.Transaction, error) {
	if r.eof {
		return nil, io.EOF
	}

	record, err := r.cr.Read()
	if errors.Is(err, io.EOF) {
		r.eof = true
		return nil, io.EOF
	}
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, &RowError{Row: perr.StartLine, Err: perr.Err}
		}
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}

	line, _ := r.cr.FieldPos(0)
	tx, err := r.unmarshal(record)
	if err != nil {
		return nil, &RowError{Row: line, Err: err}
	}
	return tx, nil
}

func (r *Reader) unmarshal(record []string) (model.Transaction, error) {
	return UnmarshalTransaction(
		field(record, r.cols.kind),
		field(record, r.cols.client),
		field(record, r.cols.tx),
		field(record, r.cols.amount),
	)
}

// field returns the trimmed value at idx, or "" if the row is too short.
func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// UnmarshalTransaction builds a Transaction from the raw column values.
// amount is only parsed for deposits and withdrawals.
func UnmarshalTransaction(kind, client, tx, amount string) (model.Transaction, error) {
	k, err := model.ParseKind(strings.TrimSpace(kind))
	if err != nil {
		return nil, err
	}

	clientID, err := id.ParseClient(client)
	if err != nil {
		return nil, err
	}

	txID, err := id.ParseTx(tx)
	if err != nil {
		return nil, err
	}

	var amt decimal.Decimal
	if k.CarriesAmount() {
		amount = strings.TrimSpace(amount)
		if amount == "" {
			return nil, fmt.Errorf("%s %d: %w", k, txID, ErrMissingAmount)
		}
		amt, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parsing amount %q: %w", amount, err)
		}
		if !inRange(amt) {
			return nil, fmt.Errorf("amount %q: %w", amount, ErrAmountOutOfRange)
		}
	}

	return model.New(k, model.Ref{Client: clientID, Tx: txID}, amt)
}

// inRange reports whether d fits the accepted scale and magnitude. The
// exponent is checked before comparing so huge exponents are never expanded.
func inRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp < -maxScale || exp > maxScale {
		return false
	}
	return d.Abs().LessThanOrEqual(maxAmount)
}
