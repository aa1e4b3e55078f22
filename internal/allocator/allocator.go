package allocator

import (
	"errors"
	"fmt"

	"github.com/cleared-dev/tally/internal/matching"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/vendors"
)

// ErrUnknownAccount is returned when an override rule names an account that
// is not in the chart.
var ErrUnknownAccount = errors.New("unknown account")

// Source names the step that chose an allocation's account.
type Source string

const (
	SourceOverride Source = "override"
	SourceVendor   Source = "vendor"
	SourceBayesian Source = "bayesian"
	SourceSuspense Source = "suspense"
)

const suspenseName = "Unusual item"

// Allocation is the account decision for one payee.
type Allocation struct {
	Payee       string
	VendorID    string
	Match       model.MatchResult
	Source      Source
	Rule        string
	AccountCode string
	AccountName string
	Category    string
	Confidence  float64
	Status      model.Status
}

// Apply copies the allocation onto a transaction.
func (a Allocation) Apply(txn *model.Transaction) {
	txn.VendorID = a.VendorID
	txn.AccountCode = a.AccountCode
	txn.AccountName = a.AccountName
	txn.Category = a.Category
	txn.Status = a.Status
}

// AccountLookup resolves account codes against the chart of accounts.
type AccountLookup interface {
	Get(code string) (model.Account, bool)
}

// Allocator picks an account for each transaction. It reads the snapshot it
// was built with plus any vendors Record created.
type Allocator struct {
	matcher  *matching.Matcher
	accounts AccountLookup
	suspense string
}

// New creates an Allocator. An empty suspense code uses the default.
func New(m *matching.Matcher, accounts AccountLookup, suspense string) *Allocator {
	if suspense == "" {
		suspense = model.SuspenseAccountCode
	}
	return &Allocator{matcher: m, accounts: accounts, suspense: suspense}
}

// Allocate chooses an account for txn: an override pattern first, then the
// matched vendor's default account, then the bayesian suggestion, then the
// suspense account.
func (a *Allocator) Allocate(txn model.Transaction) (Allocation, error) {
	payee := txn.Description
	alloc := Allocation{Payee: payee}

	if o, ok := a.matcher.Override(payee); ok {
		acct, found := a.accounts.Get(o.Account)
		if !found {
			return Allocation{}, fmt.Errorf("rule %s: %w %s", o.Name, ErrUnknownAccount, o.Account)
		}
		alloc.Source = SourceOverride
		alloc.Rule = o.Name
		alloc.Confidence = 1
		alloc.Status = model.StatusMatched
		alloc.Match = model.MatchResult{Layer: model.LayerRegexOverride, Confidence: 1, AccountCode: o.Account, Rule: o.Name}
		alloc.setAccount(acct)
		if v, ok := a.matcher.Vendor(a.matcher.Match(payee).VendorID); ok {
			alloc.VendorID = v.ID
		}
		alloc.Category = acct.Category
		return alloc, nil
	}

	res := a.matcher.Match(payee)
	alloc.Match = res

	if v, ok := a.matcher.Vendor(res.VendorID); ok {
		alloc.VendorID = v.ID
		alloc.Category = v.Category
		if acct, found := a.accounts.Get(v.DefaultAccountCode); found {
			alloc.Source = SourceVendor
			alloc.Confidence = res.Confidence
			alloc.Status = model.StatusMatched
			alloc.setAccount(acct)
			return alloc, nil
		}
	}

	code, prob, ok := res.AccountCode, res.Confidence, res.Layer == model.LayerBayesian
	if !ok {
		code, prob, ok = a.matcher.SuggestAccount(payee)
	}
	if ok {
		if acct, found := a.accounts.Get(code); found {
			alloc.Source = SourceBayesian
			alloc.Confidence = prob
			alloc.Status = model.StatusAIMatched
			alloc.setAccount(acct)
			if alloc.Category == "" {
				alloc.Category = acct.Category
			}
			return alloc, nil
		}
	}

	a.toSuspense(&alloc)
	alloc.Status = model.StatusUnmatched
	return alloc, nil
}

// Fallback is the allocation for a transaction whose allocation failed: the
// suspense account with status error.
func (a *Allocator) Fallback(txn model.Transaction) Allocation {
	alloc := Allocation{Payee: txn.Description, VendorID: txn.VendorID, Category: txn.Category}
	a.toSuspense(&alloc)
	alloc.Status = model.StatusError
	return alloc
}

func (a *Allocator) toSuspense(alloc *Allocation) {
	alloc.Source = SourceSuspense
	alloc.AccountCode = a.suspense
	alloc.AccountName = suspenseName
	if acct, found := a.accounts.Get(a.suspense); found {
		alloc.AccountName = acct.Name
	}
	if alloc.Category == "" {
		alloc.Category = vendors.InferCategory(vendors.Key(alloc.Payee))
	}
}

func (a *Allocation) setAccount(acct model.Account) {
	a.AccountCode = acct.Code
	a.AccountName = acct.Name
}
