// Package ledger applies client transactions to account balances.
package ledger

import (
	"slices"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleared-dev/payments/internal/model"
)

// Rejection names the rule that turned a transaction into a no-op.
type Rejection string

const (
	RejectNonPositiveAmount Rejection = "non-positive amount"
	RejectDuplicateTx       Rejection = "duplicate deposit tx"
	RejectUnknownAccount    Rejection = "unknown account"
	RejectAccountLocked     Rejection = "account locked"
	RejectInsufficientFunds Rejection = "insufficient funds"
	RejectUnknownTx         Rejection = "unknown deposit tx"
	RejectClientMismatch    Rejection = "deposit belongs to another client"
	RejectAlreadyDisputed   Rejection = "deposit already disputed"
	RejectNotDisputed       Rejection = "deposit not disputed"
)

// storedDeposit is kept for every accepted deposit so later disputes can
// find the original client and amount.
type storedDeposit struct {
	client       uint16
	amount       decimal.Decimal
	underDispute bool
}

// Stats counts Apply outcomes.
type Stats struct {
	Applied  int
	Rejected map[Rejection]int
}

// RejectedTotal sums all rejection counts.
func (s Stats) RejectedTotal() int {
	n := 0
	for _, c := range s.Rejected {
		n += c
	}
	return n
}

// Processor owns all account and deposit state for one run.
// It is not safe for concurrent use; callers feed it in input order.
type Processor struct {
	accounts map[uint16]*model.Account
	deposits map[uint32]*storedDeposit
	stats    Stats
	logger   *zap.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger logs each rejected transaction at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProcessor returns an empty Processor.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		accounts: make(map[uint16]*model.Account),
		deposits: make(map[uint32]*storedDeposit),
		stats:    Stats{Rejected: make(map[Rejection]int)},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Apply applies one transaction. Transactions that break a business rule
// leave all state untouched; Apply never fails.
func (p *Processor) Apply(tx model.Transaction) {
	var r Rejection
	switch t := tx.(type) {
	case model.Deposit:
		r = p.deposit(t)
	case model.Withdrawal:
		r = p.withdraw(t)
	case model.Dispute:
		r = p.dispute(t)
	case model.Resolve:
		r = p.resolve(t)
	case model.Chargeback:
		r = p.chargeback(t)
	default:
		return
	}

	if r == "" {
		p.stats.Applied++
		return
	}
	p.stats.Rejected[r]++
	key := tx.Key()
	p.logger.Debug("transaction ignored",
		zap.String("type", string(tx.Kind())),
		zap.Uint16("client", key.Client),
		zap.Uint32("tx", key.Tx),
		zap.String("reason", string(r)),
	)
}

func (p *Processor) deposit(t model.Deposit) Rejection {
	if !t.Amount.IsPositive() {
		return RejectNonPositiveAmount
	}
	if _, dup := p.deposits[t.Tx]; dup {
		return RejectDuplicateTx
	}

	acct, ok := p.accounts[t.Client]
	if !ok {
		acct = &model.Account{Client: t.Client}
		p.accounts[t.Client] = acct
	}
	if acct.Locked {
		return RejectAccountLocked
	}

	acct.Available = acct.Available.Add(t.Amount)
	p.deposits[t.Tx] = &storedDeposit{client: t.Client, amount: t.Amount}
	return ""
}

func (p *Processor) withdraw(t model.Withdrawal) Rejection {
	if !t.Amount.IsPositive() {
		return RejectNonPositiveAmount
	}
	acct, ok := p.accounts[t.Client]
	if !ok {
		return RejectUnknownAccount
	}
	if acct.Locked {
		return RejectAccountLocked
	}
	if acct.Available.LessThan(t.Amount) {
		return RejectInsufficientFunds
	}

	acct.Available = acct.Available.Sub(t.Amount)
	return ""
}

// disputable resolves the deposit and account a dispute-family record
// refers to, checking ownership and lock state.
func (p *Processor) disputable(ref model.Ref) (*storedDeposit, *model.Account, Rejection) {
	dep, ok := p.deposits[ref.Tx]
	if !ok {
		return nil, nil, RejectUnknownTx
	}
	if dep.client != ref.Client {
		return nil, nil, RejectClientMismatch
	}
	acct, ok := p.accounts[ref.Client]
	if !ok {
		return nil, nil, RejectUnknownAccount
	}
	if acct.Locked {
		return nil, nil, RejectAccountLocked
	}
	return dep, acct, ""
}

func (p *Processor) dispute(t model.Dispute) Rejection {
	dep, acct, r := p.disputable(t.Ref)
	if r != "" {
		return r
	}
	if dep.underDispute {
		return RejectAlreadyDisputed
	}

	// Available may go negative when the deposit was already withdrawn.
	acct.Available = acct.Available.Sub(dep.amount)
	acct.Held = acct.Held.Add(dep.amount)
	dep.underDispute = true
	return ""
}

func (p *Processor) resolve(t model.Resolve) Rejection {
	dep, acct, r := p.disputable(t.Ref)
	if r != "" {
		return r
	}
	if !dep.underDispute {
		return RejectNotDisputed
	}

	acct.Held = acct.Held.Sub(dep.amount)
	acct.Available = acct.Available.Add(dep.amount)
	dep.underDispute = false
	return ""
}

func (p *Processor) chargeback(t model.Chargeback) Rejection {
	dep, acct, r := p.disputable(t.Ref)
	if r != "" {
		return r
	}
	if !dep.underDispute {
		return RejectNotDisputed
	}

	acct.Held = acct.Held.Sub(dep.amount)
	acct.Locked = true
	dep.underDispute = false
	return ""
}

// Account returns a copy of the client's account.
func (p *Processor) Account(client uint16) (model.Account, bool) {
	acct, ok := p.accounts[client]
	if !ok {
		return model.Account{}, false
	}
	return *acct, true
}

// Accounts returns copies of all accounts ordered by client ID.
func (p *Processor) Accounts() []model.Account {
	out := make([]model.Account, 0, len(p.accounts))
	for _, acct := range p.accounts {
		out = append(out, *acct)
	}
	slices.SortFunc(out, func(a, b model.Account) int {
		return int(a.Client) - int(b.Client)
	})
	return out
}

// Stats returns a copy of the outcome counters.
func (p *Processor) Stats() Stats {
	rejected := make(map[Rejection]int, len(p.stats.Rejected))
	for k, v := range p.stats.Rejected {
		rejected[k] = v
	}
	return Stats{Applied: p.stats.Applied, Rejected: rejected}
}
