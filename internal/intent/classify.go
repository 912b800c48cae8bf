package intent

import "strings"

// Classify maps a spoken phrase to an intent.
//
// Intents are tried in catalog order and keywords in list order; the first
// keyword found as a substring of the lower-cased phrase wins. A blank
// phrase, or one that matches nothing, yields the default intent.
func (c *Catalog) Classify(phrase string) Intent {
	s := strings.ToLower(strings.TrimSpace(phrase))
	if s == "" {
		return c.DefaultIntent()
	}

	for _, in := range c.intents {
		if containsAny(s, in.Keywords) {
			return in
		}
	}
	return c.DefaultIntent()
}

// Classify classifies phrase against the built-in catalog.
func Classify(phrase string) Intent {
	return defaultCatalog.Classify(phrase)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
