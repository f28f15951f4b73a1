package ppl

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/tmalloy/partialpool/data"
	"github.com/tmalloy/partialpool/posterior"
)

// The formula interface accepts a compact model string in the style of
// regression packages:
//
//	admit | trials(applications) ~ male + (1 | dept)
//	weight ~ (1 | group)
//
// The family is inferred: trials() on the left side means binomial, otherwise
// gaussian. Exactly one varying-intercept term (1 | group) is required; the
// remaining right side terms are numeric slope columns. Priors are the
// textbook defaults (see defaultPriors) and can be adjusted on the returned
// Spec before compiling.

// Parse turns a formula string into a Spec.
func Parse(name, formula string) (*Spec, error) {
	sides := strings.Split(formula, "~")
	if len(sides) != 2 {
		return nil, errors.Errorf("Formula needs exactly one ~ separator: %q", formula)
	}

	spec := &Spec{Name: name, Family: Gaussian}

	if err := parseLeft(spec, sides[0]); err != nil {
		return nil, err
	}
	if err := parseRight(spec, sides[1]); err != nil {
		return nil, err
	}

	defaultPriors(spec)
	return spec, nil
}

// FromFormula is the one-call version: parse and compile against a frame.
func FromFormula(name, formula string, f *data.Frame) (*posterior.Model, error) {
	spec, err := Parse(name, formula)
	if err != nil {
		return nil, err
	}
	return spec.Compile(f)
}

func parseLeft(spec *Spec, left string) error {
	parts := strings.Split(left, "|")
	if len(parts) > 2 {
		return errors.Errorf("Left side has too many | separators: %q", left)
	}

	resp := strings.TrimSpace(parts[0])
	if resp == "" || strings.ContainsAny(resp, "() ") {
		return errors.Errorf("Invalid response %q", parts[0])
	}
	spec.Response = resp

	if len(parts) == 1 {
		return nil
	}

	aterm := strings.TrimSpace(parts[1])
	if !strings.HasPrefix(aterm, "trials(") || !strings.HasSuffix(aterm, ")") {
		return errors.Errorf("Expected trials(column) on left side, found %q", aterm)
	}
	trials := strings.TrimSpace(aterm[len("trials(") : len(aterm)-1])
	if trials == "" {
		return errors.Errorf("Empty trials() column in %q", aterm)
	}

	spec.Family = Binomial
	spec.Trials = trials
	return nil
}

func parseRight(spec *Spec, right string) error {
	for _, raw := range splitTerms(right) {
		term := strings.TrimSpace(raw)
		if term == "" {
			return errors.Errorf("Empty term on right side of formula")
		}

		if strings.HasPrefix(term, "(") {
			group, err := parseIntercept(term)
			if err != nil {
				return err
			}
			if spec.Group != "" {
				return errors.Errorf("Only one varying-intercept term is supported, found a second: %q", term)
			}
			spec.Group = group
			continue
		}

		if strings.ContainsAny(term, "()|") {
			return errors.Errorf("Malformed term %q", term)
		}
		spec.Slopes = append(spec.Slopes, term)
	}

	if spec.Group == "" {
		return errors.Errorf("Formula has no (1 | group) term - nothing to pool")
	}
	return nil
}

// splitTerms splits on + at the top level, ignoring + inside parens.
func splitTerms(s string) []string {
	terms := make([]string, 0, 4)
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case '+':
			if depth == 0 {
				terms = append(terms, s[start:i])
				start = i + 1
			}
		}
	}
	return append(terms, s[start:])
}

func parseIntercept(term string) (string, error) {
	if !strings.HasSuffix(term, ")") {
		return "", errors.Errorf("Unclosed varying-intercept term %q", term)
	}
	inner := term[1 : len(term)-1]

	parts := strings.Split(inner, "|")
	if len(parts) != 2 {
		return "", errors.Errorf("Varying-intercept term must look like (1 | group): %q", term)
	}
	if strings.TrimSpace(parts[0]) != "1" {
		return "", errors.Errorf("Only varying intercepts are supported, found %q", term)
	}

	group := strings.TrimSpace(parts[1])
	if group == "" || strings.ContainsAny(group, "() ") {
		return "", errors.Errorf("Invalid group name in %q", term)
	}
	return group, nil
}

// defaultPriors fills in the textbook defaults: a mildly regularizing Normal
// on the hypermean and slopes, Exponential(1) on scales.
func defaultPriors(spec *Spec) {
	if spec.Family == Binomial {
		spec.MeanPrior = posterior.Normal(0, 1.5)
	} else {
		spec.MeanPrior = posterior.Normal(0, 10)
	}
	spec.SlopePrior = posterior.Normal(0, 1)
	spec.ScalePrior = posterior.Exponential(1)
	spec.ObsScalePrior = posterior.Exponential(1)
}
