package allocator

import (
	"fmt"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/vendors"
)

// Record writes what an allocation learned into the dictionary: it creates
// the vendor when nothing matched, bumps its match count and, unless an
// override or the suspense account decided, votes for the chosen account.
// A created vendor is also added to the allocator's matcher. The returned
// allocation carries the vendor ID.
func (a *Allocator) Record(dict *vendors.Dictionary, alloc Allocation) (Allocation, error) {
	vote := alloc.Source == SourceVendor || alloc.Source == SourceBayesian

	if alloc.VendorID == "" {
		v := vendors.NewFromPayee(alloc.Payee)
		if alloc.Category != "" {
			v.Category = alloc.Category
		}
		v.MatchCount = 1
		if vote {
			a.castVote(&v, alloc.AccountCode)
		}
		v = dict.Add(v)
		a.matcher.Add(v)
		alloc.VendorID = v.ID
		return alloc, nil
	}

	_, err := dict.Update(alloc.VendorID, func(v *model.Vendor) {
		v.MatchCount++
		if vote {
			a.castVote(v, alloc.AccountCode)
		}
	})
	if err != nil {
		return alloc, fmt.Errorf("recording allocation: %w", err)
	}
	return alloc, nil
}

// Learn records a manual account assignment for a vendor.
func (a *Allocator) Learn(dict *vendors.Dictionary, vendorID, code string) (model.Vendor, error) {
	if _, ok := a.accounts.Get(code); !ok {
		return model.Vendor{}, fmt.Errorf("learning vendor %s: %w %s", vendorID, ErrUnknownAccount, code)
	}
	v, err := dict.Update(vendorID, func(v *model.Vendor) {
		a.castVote(v, code)
	})
	if err != nil {
		return model.Vendor{}, fmt.Errorf("learning vendor %s: %w", vendorID, err)
	}
	return v, nil
}

// castVote adds a vote and moves the default account only when another
// account holds a strict majority.
func (a *Allocator) castVote(v *model.Vendor, code string) {
	if v.AccountVotes == nil {
		v.AccountVotes = make(map[string]int)
	}
	v.AccountVotes[code]++

	total := 0
	for _, n := range v.AccountVotes {
		total += n
	}
	best, n := v.MajorityAccount()
	if n*2 <= total {
		return
	}
	v.Confidence = float64(n) / float64(total)
	if best == v.DefaultAccountCode {
		return
	}
	v.DefaultAccountCode = best
	v.DefaultAccountName = ""
	if acct, ok := a.accounts.Get(best); ok {
		v.DefaultAccountName = acct.Name
	}
}
