package matching

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/rules"
	"github.com/cleared-dev/tally/internal/vendors"
)

// Fixed confidences for layers that do not produce a score of their own.
const (
	exactConfidence    = 1.0
	containsConfidence = 0.9
	phoneticConfidence = 0.7
	overrideConfidence = 1.0
	minPhoneticKeyLen  = 4
)

type candidate struct {
	vendor int
	key    string
	tokens []string
	sound  string
}

// Matcher resolves payees to vendors over a snapshot of the vendor
// dictionary and rule table.
type Matcher struct {
	layers     []rules.Layer
	vendors    []model.Vendor
	byID       map[string]int
	exact      map[string]int
	candidates []candidate
	overrides  []rules.Compiled
	invalid    []rules.ValidationError
	bayes      *accountModel
}

// New builds a Matcher. The vendor slice is copied.
func New(vs []model.Vendor, table *rules.Table) *Matcher {
	m := &Matcher{
		layers:  table.Layers,
		vendors: make([]model.Vendor, len(vs)),
		byID:    make(map[string]int, len(vs)),
		exact:   make(map[string]int),
	}
	for i, v := range vs {
		m.vendors[i] = v.Clone()
		m.index(i, v)
	}
	m.overrides, m.invalid = table.Compile()
	m.bayes = trainAccountModel(m.vendors)
	return m
}

// Add indexes a vendor created after the Matcher was built so later payees
// can match it. The account model is not retrained. Add must not run
// concurrently with Match.
func (m *Matcher) Add(v model.Vendor) {
	if _, ok := m.byID[v.ID]; ok {
		return
	}
	m.vendors = append(m.vendors, v.Clone())
	m.index(len(m.vendors)-1, v)
}

func (m *Matcher) index(i int, v model.Vendor) {
	m.byID[v.ID] = i
	keys := append([]string{vendors.Key(v.Name)}, v.Patterns...)
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		k = vendors.ExpandAliases(strings.ToLower(strings.TrimSpace(k)))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		if _, dup := m.exact[k]; !dup {
			m.exact[k] = i
		}
		tokens := vendors.Tokens(k)
		m.candidates = append(m.candidates, candidate{
			vendor: i,
			key:    k,
			tokens: tokens,
			sound:  phoneticKey(tokens),
		})
	}
}

// Invalid returns override rules that could not be compiled.
func (m *Matcher) Invalid() []rules.ValidationError {
	return m.invalid
}

// Vendor returns the snapshot copy of a vendor.
func (m *Matcher) Vendor(id string) (model.Vendor, bool) {
	i, ok := m.byID[id]
	if !ok {
		return model.Vendor{}, false
	}
	return m.vendors[i], true
}

// Override returns the first override pattern matching the raw description.
func (m *Matcher) Override(description string) (rules.Compiled, bool) {
	return rules.First(m.overrides, description)
}

// SuggestAccount returns the bayesian account suggestion for a payee.
func (m *Matcher) SuggestAccount(payee string) (code string, prob float64, ok bool) {
	code, prob, ok = m.bayes.predict(vendors.Key(payee))
	if !ok || prob < m.threshold(model.LayerBayesian) {
		return "", 0, false
	}
	return code, prob, true
}

// Match runs the payee through the cascade and returns the first hit, or a
// zero MatchResult when no layer fires.
func (m *Matcher) Match(payee string) model.MatchResult {
	key := vendors.Key(payee)
	if key == "" {
		return model.MatchResult{}
	}

	for _, layer := range m.layers {
		var res model.MatchResult
		switch layer.Kind {
		case model.LayerExact:
			res = m.matchExact(key)
		case model.LayerContains:
			res = m.matchContains(key, int(m.threshold(model.LayerContains)))
		case model.LayerToken:
			res = m.matchToken(key, m.threshold(model.LayerToken))
		case model.LayerFuzzy:
			res = m.matchFuzzy(key, m.threshold(model.LayerFuzzy))
		case model.LayerPhonetic:
			res = m.matchPhonetic(key)
		case model.LayerBayesian:
			if code, prob, ok := m.SuggestAccount(payee); ok {
				res = model.MatchResult{Layer: model.LayerBayesian, Confidence: prob, AccountCode: code}
			}
		case model.LayerRegexOverride:
			if o, ok := m.Override(payee); ok {
				res = model.MatchResult{Layer: model.LayerRegexOverride, Confidence: overrideConfidence, AccountCode: o.Account, Rule: o.Name}
			}
		}
		if res.Matched() {
			return res
		}
	}
	return model.MatchResult{}
}

func (m *Matcher) threshold(kind model.MatchLayer) float64 {
	var fallback float64
	switch kind {
	case model.LayerContains:
		fallback = rules.DefaultContainsMinLength
	case model.LayerToken:
		fallback = rules.DefaultTokenThreshold
	case model.LayerFuzzy:
		fallback = rules.DefaultFuzzyThreshold
	case model.LayerBayesian:
		fallback = rules.DefaultBayesMinConfidence
	}
	t := rules.Table{Layers: m.layers}
	return t.Threshold(kind, fallback)
}

func (m *Matcher) result(i int, layer model.MatchLayer, confidence float64) model.MatchResult {
	return model.MatchResult{VendorID: m.vendors[i].ID, Layer: layer, Confidence: confidence}
}

func (m *Matcher) matchExact(key string) model.MatchResult {
	if i, ok := m.exact[key]; ok {
		return m.result(i, model.LayerExact, exactConfidence)
	}
	return model.MatchResult{}
}

// matchContains compares on word boundaries and prefers the longest vendor key.
func (m *Matcher) matchContains(key string, minLen int) model.MatchResult {
	if len(key) < minLen {
		return model.MatchResult{}
	}
	best := -1
	for ci, c := range m.candidates {
		if len(c.key) < minLen {
			continue
		}
		if !containsWord(key, c.key) && !containsWord(c.key, key) {
			continue
		}
		if best < 0 || len(c.key) > len(m.candidates[best].key) {
			best = ci
		}
	}
	if best < 0 {
		return model.MatchResult{}
	}
	return m.result(m.candidates[best].vendor, model.LayerContains, containsConfidence)
}

// matchToken uses the Jaccard index of the word sets.
func (m *Matcher) matchToken(key string, threshold float64) model.MatchResult {
	tokens := vendors.Tokens(key)
	best, bestScore := -1, 0.0
	for ci, c := range m.candidates {
		score := jaccard(tokens, c.tokens)
		if score > threshold && score > bestScore {
			best, bestScore = ci, score
		}
	}
	if best < 0 {
		return model.MatchResult{}
	}
	return m.result(m.candidates[best].vendor, model.LayerToken, bestScore)
}

func (m *Matcher) matchFuzzy(key string, threshold float64) model.MatchResult {
	best, bestRatio := -1, 1.0
	for ci, c := range m.candidates {
		maxLen := max(utf8.RuneCountInString(key), utf8.RuneCountInString(c.key))
		if maxLen == 0 {
			continue
		}
		ratio := float64(levenshtein.ComputeDistance(key, c.key)) / float64(maxLen)
		if ratio <= threshold && (best < 0 || ratio < bestRatio) {
			best, bestRatio = ci, ratio
		}
	}
	if best < 0 {
		return model.MatchResult{}
	}
	return m.result(m.candidates[best].vendor, model.LayerFuzzy, 1-bestRatio)
}

func (m *Matcher) matchPhonetic(key string) model.MatchResult {
	if len(key) < minPhoneticKeyLen {
		return model.MatchResult{}
	}
	sound := phoneticKey(vendors.Tokens(key))
	if sound == "" {
		return model.MatchResult{}
	}
	for _, c := range m.candidates {
		if c.sound == sound {
			return m.result(c.vendor, model.LayerPhonetic, phoneticConfidence)
		}
	}
	return model.MatchResult{}
}

// containsWord reports whether needle appears in haystack on word boundaries.
func containsWord(haystack, needle string) bool {
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	inter := 0
	union := len(set)
	seen := make(map[string]bool, len(b))
	for _, t := range b {
		if seen[t] {
			continue
		}
		seen[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}
