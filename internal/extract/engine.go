package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractionError reports the first field whose rule could not be
// resolved to usable text. Extraction is all-or-nothing for required
// fields: a partial record is a failure, not a degraded record.
type ExtractionError struct {
	Field string
	URL   string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("field %q not extracted from %s", e.Field, e.URL)
}

// ParseDocument parses raw page bytes into a queryable document.
// Empty input is rejected; goquery tolerates most malformed HTML.
func ParseDocument(body []byte) (*goquery.Document, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return doc, nil
}

// Extract resolves every rule in the spec against the document and
// returns field name to trimmed text. If any required rule yields no
// match or only empty text, the whole call fails with ExtractionError
// naming that field. Optional fields that do not resolve are omitted.
func Extract(doc *goquery.Document, spec Spec, pageURL string) (map[string]string, error) {
	values := make(map[string]string, len(spec.Fields))

	for _, rule := range spec.Fields {
		text, ok := resolveRule(doc, rule)
		if !ok {
			if rule.Required {
				return nil, &ExtractionError{Field: rule.Name, URL: pageURL}
			}
			continue
		}
		values[rule.Name] = text
	}

	return values, nil
}

// resolveRule locates the rule's element and extracts its trimmed text.
// The second return is false when no element matched or the text was
// empty after trimming.
func resolveRule(doc *goquery.Document, rule FieldRule) (string, bool) {
	sel := doc.Find(rule.Selector).First()
	if sel.Length() == 0 {
		return "", false
	}

	if rule.FromParent {
		sel = sel.Parent()
		if sel.Length() == 0 {
			return "", false
		}
	}

	if rule.Child != "" {
		sel = sel.Find(rule.Child).First()
		if sel.Length() == 0 {
			return "", false
		}
	}

	text := strings.TrimSpace(sel.Text())
	if text == "" {
		return "", false
	}
	return text, true
}
