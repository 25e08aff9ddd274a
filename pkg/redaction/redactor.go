package redaction

import "regexp"

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

// Redactor masks configured identifier patterns in journey text before the
// text leaves the process in an oracle call.
type Redactor struct {
	rules []compiledRule
}

func NewRedactor(cfg RulesConfig) (*Redactor, error) {
	var compiled []compiledRule
	for _, rule := range cfg.Rules {
		if !rule.Enabled {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledRule{rule: rule, re: re})
	}
	return &Redactor{rules: compiled}, nil
}

// Apply returns the masked text and the types of identifiers that were hit.
func (r *Redactor) Apply(text string) (string, []string) {
	if r == nil {
		return text, nil
	}

	masked := text
	var hits []string
	seen := make(map[string]struct{})
	for _, rule := range r.rules {
		if !rule.re.MatchString(masked) {
			continue
		}
		masked = rule.re.ReplaceAllString(masked, rule.rule.Mask)
		if _, ok := seen[rule.rule.Type]; !ok {
			seen[rule.rule.Type] = struct{}{}
			hits = append(hits, rule.rule.Type)
		}
	}
	return masked, hits
}
