package generation

import "strings"

// DefaultRefusalPhrases flag a text-only reply as a refusal.
var DefaultRefusalPhrases = []string{"cannot", "unable", "can't", "不能", "无法"}

// RefusalPolicy decides whether upstream text explains a refusal. Matching
// is a case-insensitive substring test.
type RefusalPolicy struct {
	Phrases []string
}

func DefaultRefusalPolicy() RefusalPolicy {
	return RefusalPolicy{Phrases: append([]string(nil), DefaultRefusalPhrases...)}
}

// ParseRefusalPhrases reads a comma separated list. Blank input yields the
// defaults.
func ParseRefusalPhrases(s string) RefusalPolicy {
	var phrases []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			phrases = append(phrases, p)
		}
	}
	if len(phrases) == 0 {
		return DefaultRefusalPolicy()
	}
	return RefusalPolicy{Phrases: phrases}
}

func (p RefusalPolicy) IsRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range p.Phrases {
		if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}
