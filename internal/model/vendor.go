package model

import "sort"

// Vendor is a normalized merchant identity with a learned default account.
type Vendor struct {
	ID                 string
	Name               string
	OriginalName       string
	Patterns           []string
	MatchCount         int
	Category           string
	DefaultAccountCode string
	DefaultAccountName string
	Confidence         float64
	AccountVotes       map[string]int
}

// Clone returns a deep copy so snapshots never alias dictionary state.
func (v Vendor) Clone() Vendor {
	c := v
	c.Patterns = append([]string(nil), v.Patterns...)
	if v.AccountVotes != nil {
		c.AccountVotes = make(map[string]int, len(v.AccountVotes))
		for k, n := range v.AccountVotes {
			c.AccountVotes[k] = n
		}
	}
	return c
}

// MajorityAccount returns the account with the most votes. Ties resolve to
// the lowest code so the result is stable.
func (v Vendor) MajorityAccount() (string, int) {
	codes := make([]string, 0, len(v.AccountVotes))
	for code := range v.AccountVotes {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	best, bestN := "", 0
	for _, code := range codes {
		if n := v.AccountVotes[code]; n > bestN {
			best, bestN = code, n
		}
	}
	return best, bestN
}

// MatchLayer names the cascade layer that produced a match.
type MatchLayer string

const (
	LayerNone          MatchLayer = ""
	LayerExact         MatchLayer = "exact"
	LayerContains      MatchLayer = "contains"
	LayerToken         MatchLayer = "token"
	LayerFuzzy         MatchLayer = "fuzzy"
	LayerPhonetic      MatchLayer = "phonetic"
	LayerBayesian      MatchLayer = "bayesian"
	LayerRegexOverride MatchLayer = "regexOverride"
)

// MatchResult is the outcome of running a payee through the cascade.
type MatchResult struct {
	VendorID    string
	Layer       MatchLayer
	Confidence  float64
	AccountCode string // set by layers that resolve an account directly
	Rule        string
}

// Matched reports whether any layer fired.
func (m MatchResult) Matched() bool {
	return m.Layer != LayerNone
}
