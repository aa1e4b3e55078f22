package matching

import (
	"sort"

	"github.com/jbrukh/bayesian"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/vendors"
)

const minBayesTokenLen = 3

// accountModel is a naive Bayes classifier over vendor-name tokens whose
// classes are account codes.
type accountModel struct {
	classifier *bayesian.Classifier
	vocab      map[string]bool
}

// trainAccountModel learns from every vendor that has a default account. It
// returns nil when fewer than two accounts are represented.
func trainAccountModel(vs []model.Vendor) *accountModel {
	docs := make(map[string][][]string)
	for _, v := range vs {
		if v.DefaultAccountCode == "" {
			continue
		}
		keys := append([]string{vendors.Key(v.Name)}, v.Patterns...)
		for _, k := range keys {
			if doc := bayesTokens(k); len(doc) > 0 {
				docs[v.DefaultAccountCode] = append(docs[v.DefaultAccountCode], doc)
			}
		}
	}
	if len(docs) < 2 {
		return nil
	}

	codes := make([]string, 0, len(docs))
	for code := range docs {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	classes := make([]bayesian.Class, len(codes))
	for i, code := range codes {
		classes[i] = bayesian.Class(code)
	}

	m := &accountModel{classifier: bayesian.NewClassifier(classes...), vocab: make(map[string]bool)}
	for _, code := range codes {
		for _, doc := range docs[code] {
			m.classifier.Learn(doc, bayesian.Class(code))
			for _, tok := range doc {
				m.vocab[tok] = true
			}
		}
	}
	return m
}

// predict returns the most probable account for key. ok is false when no
// token of key was seen in training or the winner is not unique.
func (m *accountModel) predict(key string) (code string, prob float64, ok bool) {
	if m == nil {
		return "", 0, false
	}
	doc := bayesTokens(key)
	known := false
	for _, tok := range doc {
		if m.vocab[tok] {
			known = true
			break
		}
	}
	if !known {
		return "", 0, false
	}

	scores, inx, strict := m.classifier.ProbScores(doc)
	if !strict {
		return "", 0, false
	}
	return string(m.classifier.Classes[inx]), scores[inx], true
}

func bayesTokens(key string) []string {
	var out []string
	for _, tok := range vendors.Tokens(key) {
		if len(tok) >= minBayesTokenLen {
			out = append(out, tok)
		}
	}
	return out
}
