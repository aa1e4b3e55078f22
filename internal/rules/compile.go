package rules

import (
	"fmt"
	"regexp"

	"github.com/cleared-dev/tally/internal/model"
)

// Compiled is an override with its pattern compiled.
type Compiled struct {
	Override
	re *regexp.Regexp
}

// Matches reports whether the description matches the override pattern.
func (c Compiled) Matches(description string) bool {
	return c.re.MatchString(description)
}

// AccountChecker tests whether an account code exists in the chart of accounts.
type AccountChecker interface {
	Exists(code string) bool
}

// ValidationError describes an override that cannot be used.
type ValidationError struct {
	Rule        string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("rule %s: %s", e.Rule, e.Description)
}

// Compile compiles every override in order. Overrides with bad patterns are
// skipped and reported. Account references are not checked here; see Validate.
func (t *Table) Compile() ([]Compiled, []ValidationError) {
	var (
		out  []Compiled
		errs []ValidationError
	)
	for _, o := range t.Overrides {
		re, err := regexp.Compile(o.Pattern)
		if err != nil {
			errs = append(errs, ValidationError{Rule: o.Name, Description: fmt.Sprintf("bad pattern: %v", err)})
			continue
		}
		out = append(out, Compiled{Override: o, re: re})
	}
	return out, errs
}

// Validate reports overrides with bad patterns or unknown accounts.
func (t *Table) Validate(accounts AccountChecker) []ValidationError {
	_, errs := t.Compile()
	for _, o := range t.Overrides {
		if !accounts.Exists(o.Account) {
			errs = append(errs, ValidationError{Rule: o.Name, Description: fmt.Sprintf("unknown account %s", o.Account)})
		}
	}
	for _, l := range t.Layers {
		switch l.Kind {
		case model.LayerExact, model.LayerContains, model.LayerToken, model.LayerFuzzy,
			model.LayerPhonetic, model.LayerBayesian, model.LayerRegexOverride:
		default:
			errs = append(errs, ValidationError{Rule: "layers", Description: fmt.Sprintf("unknown layer kind %q", l.Kind)})
		}
	}
	return errs
}

// First returns the first compiled override matching description.
func First(overrides []Compiled, description string) (Compiled, bool) {
	for _, c := range overrides {
		if c.Matches(description) {
			return c, true
		}
	}
	return Compiled{}, false
}
