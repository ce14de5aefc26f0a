package transactions

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/payments/internal/model"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

// readAll drains r, collecting decoded transactions and row errors.
func readAll(t *testing.T, r *Reader) ([]model.Transaction, []*RowError) {
	t.Helper()
	var txs []model.Transaction
	var rowErrs []*RowError
	for {
		tx, err := r.Read()
		if errors.Is(err, io.EOF) {
			return txs, rowErrs
		}
		var rerr *RowError
		if errors.As(err, &rerr) {
			rowErrs = append(rowErrs, rerr)
			continue
		}
		require.NoError(t, err)
		txs = append(txs, tx)
	}
}

func TestReadAllKinds(t *testing.T) {
	input := Header + `
deposit,1,1,1.0
withdrawal,1,2,0.5
dispute,1,1,
resolve,1,1,
chargeback,1,1,
`
	r, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	txs, rowErrs := readAll(t, r)
	require.Empty(t, rowErrs)
	require.Len(t, txs, 5)

	ref := func(tx uint32) model.Ref { return model.Ref{Client: 1, Tx: tx} }
	assert.Equal(t, model.Deposit{Ref: ref(1), Amount: dec("1.0")}, txs[0])
	assert.Equal(t, model.Withdrawal{Ref: ref(2), Amount: dec("0.5")}, txs[1])
	assert.Equal(t, model.Dispute{Ref: ref(1)}, txs[2])
	assert.Equal(t, model.Resolve{Ref: ref(1)}, txs[3])
	assert.Equal(t, model.Chargeback{Ref: ref(1)}, txs[4])
}

func TestReadTrimsWhitespace(t *testing.T) {
	input := "type, client, tx, amount\n  deposit ,  2 , 7 ,  3.1415  \n"
	r, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	txs, rowErrs := readAll(t, r)
	require.Empty(t, rowErrs)
	require.Len(t, txs, 1)

	dep, ok := txs[0].(model.Deposit)
	require.True(t, ok)
	assert.Equal(t, model.Ref{Client: 2, Tx: 7}, dep.Ref)
	assert.True(t, dep.Amount.Equal(dec("3.1415")), "amount: got %s", dep.Amount)
}

func TestReadShortDisputeRows(t *testing.T) {
	// Dispute-family rows often drop the trailing amount column entirely.
	input := Header + "\ndeposit,1,1,2\ndispute,1,1\nresolve,1,1\n"
	r, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	txs, rowErrs := readAll(t, r)
	require.Empty(t, rowErrs)
	require.Len(t, txs, 3)
	assert.Equal(t, model.KindDispute, txs[1].Kind())
	assert.Equal(t, model.KindResolve, txs[2].Kind())
}

func TestReadDisputeIgnoresAmount(t *testing.T) {
	input := Header + "\ndispute,1,1,not-a-number\nchargeback,1,1,5.0\n"
	r, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	txs, rowErrs := readAll(t, r)
	require.Empty(t, rowErrs)
	require.Len(t, txs, 2)
	assert.Equal(t, model.Dispute{Ref: model.Ref{Client: 1, Tx: 1}}, txs[0])
	assert.Equal(t, model.Chargeback{Ref: model.Ref{Client: 1, Tx: 1}}, txs[1])
}

func TestReadColumnsByName(t *testing.T) {
	input := "amount,tx,type,client\n4.5,9,deposit,3\n,9,dispute,3\n"
	r, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	txs, rowErrs := readAll(t, r)
	require.Empty(t, rowErrs)
	require.Len(t, txs, 2)
	assert.Equal(t, model.Deposit{Ref: model.Ref{Client: 3, Tx: 9}, Amount: dec("4.5")}, txs[0])
	assert.Equal(t, model.Dispute{Ref: model.Ref{Client: 3, Tx: 9}}, txs[1])
}

func TestReadHeaderWithBOMAndCase(t *testing.T) {
	input := "\ufeffType,CLIENT,Tx,Amount\ndeposit,1,1,1\n"
	r, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	txs, rowErrs := readAll(t, r)
	require.Empty(t, rowErrs)
	require.Len(t, txs, 1)
}

func TestReadWithoutAmountColumn(t *testing.T) {
	input := "type,client,tx\ndispute,1,1\ndeposit,1,2\n"
	r, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	txs, rowErrs := readAll(t, r)
	require.Len(t, txs, 1)
	require.Len(t, rowErrs, 1)
	assert.Equal(t, 3, rowErrs[0].Row)
	assert.ErrorIs(t, rowErrs[0], ErrMissingAmount)
}

func TestReadRowErrorsContinue(t *testing.T) {
	input := Header + `
deposit,1,1,1.0
transfer,1,2,1.0
Deposit,1,3,1.0
deposit,abc,4,1.0
deposit,1,-5,1.0
deposit,70000,6,1.0
deposit,1,7,
withdrawal,1,8,one
deposit,1,9,2.0
`
	r, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	txs, rowErrs := readAll(t, r)
	require.Len(t, txs, 2)
	assert.Equal(t, uint32(1), txs[0].Key().Tx)
	assert.Equal(t, uint32(9), txs[1].Key().Tx)

	require.Len(t, rowErrs, 7)
	var rows []int
	for _, e := range rowErrs {
		rows = append(rows, e.Row)
	}
	assert.Equal(t, []int{3, 4, 5, 6, 7, 8, 9}, rows)

	assert.ErrorIs(t, rowErrs[0], model.ErrUnknownKind)
	assert.ErrorIs(t, rowErrs[1], model.ErrUnknownKind, "type matching is case-sensitive")
	assert.ErrorIs(t, rowErrs[5], ErrMissingAmount)
	assert.Contains(t, rowErrs[6].Error(), "row 9")
}

func TestReadQuoteErrorIsRowError(t *testing.T) {
	input := Header + "\ndeposit,1,1,1.0\ndep\"osit,1,2,1.0\ndeposit,1,3,1.0\n"
	r, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	txs, rowErrs := readAll(t, r)
	require.Len(t, txs, 2)
	require.Len(t, rowErrs, 1)
	assert.Equal(t, 3, rowErrs[0].Row)
}

func TestReadAmountOutOfRange(t *testing.T) {
	input := Header + `
deposit,1,1,1e200000
deposit,1,2,1e-1000000000
deposit,1,3,0.00000000000000000000000000001
withdrawal,1,4,79228162514264337593543950336
deposit,1,5,-1e2000000000
deposit,1,6,1
deposit,1,7,79228162514264337593543950335
withdrawal,1,8,0.0000000000000000000000000001
deposit,1,9,1e28
`
	r, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	txs, rowErrs := readAll(t, r)
	require.Len(t, rowErrs, 5)
	for i, e := range rowErrs {
		assert.Equal(t, i+2, e.Row)
		assert.ErrorIs(t, e, ErrAmountOutOfRange, "row %d", e.Row)
	}

	require.Len(t, txs, 4)
	assert.Equal(t, model.Deposit{Ref: model.Ref{Client: 1, Tx: 6}, Amount: dec("1")}, txs[0])
	assert.True(t, txs[1].(model.Deposit).Amount.Equal(dec("79228162514264337593543950335")))
	assert.True(t, txs[2].(model.Withdrawal).Amount.Equal(dec("0.0000000000000000000000000001")))
	assert.True(t, txs[3].(model.Deposit).Amount.Equal(dec("10000000000000000000000000000")))
}

func TestReadNegativeAmountDecodes(t *testing.T) {
	// Business rules reject non-positive amounts, not the decoder.
	input := Header + "\nwithdrawal,1,1,-1.0\ndeposit,1,2,0\n"
	r, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	txs, rowErrs := readAll(t, r)
	require.Empty(t, rowErrs)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].(model.Withdrawal).Amount.Equal(dec("-1")))
	assert.True(t, txs[1].(model.Deposit).Amount.IsZero())
}

func TestNewReader_Empty(t *testing.T) {
	r, err := NewReader(strings.NewReader(""))
	require.NoError(t, err)

	_, err = r.Read()
	assert.ErrorIs(t, err, io.EOF)
	_, err = r.Read()
	assert.ErrorIs(t, err, io.EOF, "EOF is sticky")
}

func TestNewReader_HeaderOnly(t *testing.T) {
	r, err := NewReader(strings.NewReader(Header + "\n"))
	require.NoError(t, err)

	txs, rowErrs := readAll(t, r)
	assert.Empty(t, txs)
	assert.Empty(t, rowErrs)
}

func TestNewReader_MissingColumn(t *testing.T) {
	tests := []struct {
		header  string
		missing string
	}{
		{"client,tx,amount", `"type"`},
		{"type,tx,amount", `"client"`},
		{"type,client,amount", `"tx"`},
		{"deposit,1,1,1.0", `"type"`},
	}
	for _, tt := range tests {
		_, err := NewReader(strings.NewReader(tt.header + "\n"))
		require.Error(t, err, "header %q", tt.header)
		assert.ErrorIs(t, err, ErrMissingColumn)
		assert.Contains(t, err.Error(), tt.missing)
	}
}

func TestUnmarshalTransaction(t *testing.T) {
	tx, err := UnmarshalTransaction("withdrawal", "65535", "4294967295", "0.0001")
	require.NoError(t, err)
	assert.Equal(t, model.Withdrawal{
		Ref:    model.Ref{Client: 65535, Tx: 4294967295},
		Amount: dec("0.0001"),
	}, tx)

	_, err = UnmarshalTransaction("deposit", "1", "4294967296", "1")
	assert.Error(t, err)

	_, err = UnmarshalTransaction("deposit", "1", "1", "1.2.3")
	assert.Error(t, err)
}

func TestReadTestdata(t *testing.T) {
	f, err := os.Open("../../testdata/transactions.csv")
	require.NoError(t, err)
	defer f.Close()

	r, err := NewReader(f)
	require.NoError(t, err)

	txs, rowErrs := readAll(t, r)
	require.Len(t, rowErrs, 1, "testdata has one malformed row")
	require.Len(t, txs, 17)

	for i, tx := range txs {
		if tx.Kind().CarriesAmount() {
			var amount decimal.Decimal
			switch v := tx.(type) {
			case model.Deposit:
				amount = v.Amount
			case model.Withdrawal:
				amount = v.Amount
			}
			assert.False(t, amount.IsZero(), "tx %d missing amount", i)
		}
	}
}
