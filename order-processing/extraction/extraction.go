// Package extraction turns free-text order messages into structured fields.
package extraction

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"kalpanik-operations/order-processing/types"
)

// Extraction is the structured reading of a message. Every field is nil when
// the text did not mention it.
type Extraction struct {
	Product  *string         `json:"product"`
	Quantity *int            `json:"quantity"`
	Unit     *string         `json:"unit"`
	Priority *types.Priority `json:"priority"`
	Deadline *string         `json:"deadline"`
}

// Extractor reads order fields from text
type Extractor interface {
	Extract(ctx context.Context, text string) (Extraction, error)
}

// Apply fills the payload's empty fields from e. Fields the caller supplied win.
func Apply(p types.OrderPayload, e Extraction) types.OrderPayload {
	if p.ProductRef == "" && e.Product != nil {
		p.ProductRef = *e.Product
	}
	if p.Quantity == nil && e.Quantity != nil {
		q := *e.Quantity
		p.Quantity = &q
	}
	if p.Unit == "" && e.Unit != nil {
		p.Unit = *e.Unit
	}
	if p.Priority == "" && e.Priority != nil {
		p.Priority = *e.Priority
	}
	if p.Deadline == "" && e.Deadline != nil {
		p.Deadline = *e.Deadline
	}
	return p
}

var (
	deadlinePhrase = regexp.MustCompile(`\b(?:no later than|due by|by|before|due|until)\s+([^,.;!?]+)`)
	bareDayPhrase  = regexp.MustCompile(`\b((?:today|tonight|tomorrow)(?:\s+(?:at\s+)?\d{1,2}(?::\d{2})?\s*(?:am|pm)?)?)\b`)
	quantityPhrase = regexp.MustCompile(`\b(\d+)\s*(pcs|pc|pieces|piece|units|unit|items|item|pairs|pair|boxes|box|packs|pack|dozen)?\b(?:\s+of)?\s+([a-z][a-z0-9'\- ]*)`)

	unitAliases = map[string]string{
		"pc": "pcs", "pcs": "pcs", "piece": "pcs", "pieces": "pcs",
		"unit": "units", "units": "units",
		"item": "items", "items": "items",
		"pair": "pairs", "pairs": "pairs",
		"box": "boxes", "boxes": "boxes",
		"pack": "packs", "packs": "packs",
		"dozen": "dozen",
	}

	priorityWords = []struct {
		pattern  *regexp.Regexp
		priority types.Priority
	}{
		{phrase("no rush"), types.PriorityLow},
		{phrase("no hurry"), types.PriorityLow},
		{phrase("low priority"), types.PriorityLow},
		{phrase("whenever"), types.PriorityLow},
		{phrase("urgent"), types.PriorityUrgent},
		{phrase("urgently"), types.PriorityUrgent},
		{phrase("asap"), types.PriorityUrgent},
		{phrase("immediately"), types.PriorityUrgent},
		{phrase("high priority"), types.PriorityHigh},
		{phrase("rush"), types.PriorityHigh},
	}

	productStopWords = map[string]struct{}{
		"for": {}, "by": {}, "before": {}, "due": {}, "until": {}, "please": {}, "pls": {},
		"asap": {}, "urgent": {}, "urgently": {}, "with": {}, "and": {}, "today": {},
		"tomorrow": {}, "tonight": {}, "to": {}, "delivered": {}, "thanks": {},
	}
)

// RuleExtractor reads fields with fixed patterns. It is deterministic and
// never fails on well-formed input.
type RuleExtractor struct{}

func NewRuleExtractor() *RuleExtractor {
	return &RuleExtractor{}
}

func (r *RuleExtractor) Extract(ctx context.Context, text string) (Extraction, error) {
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}
	var out Extraction
	s := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if s == "" {
		return out, nil
	}

	rest := s
	if loc := deadlinePhrase.FindStringSubmatchIndex(s); loc != nil {
		d := strings.TrimSpace(s[loc[2]:loc[3]])
		out.Deadline = &d
		rest = s[:loc[0]] + " " + s[loc[1]:]
	} else if loc := bareDayPhrase.FindStringSubmatchIndex(s); loc != nil {
		d := strings.TrimSpace(s[loc[2]:loc[3]])
		out.Deadline = &d
		rest = s[:loc[0]] + " " + s[loc[1]:]
	}

	for _, w := range priorityWords {
		if w.pattern.MatchString(s) {
			p := w.priority
			out.Priority = &p
			break
		}
	}

	if m := quantityPhrase.FindStringSubmatch(rest); m != nil {
		if q, err := strconv.Atoi(m[1]); err == nil {
			out.Quantity = &q
		}
		unit, name := m[2], m[3]
		if unit == "" {
			// "3 boxes" with nothing after the unit
			first, tail, _ := strings.Cut(strings.TrimSpace(name), " ")
			if _, ok := unitAliases[first]; ok {
				unit, name = first, tail
			}
		}
		if unit != "" {
			u := unitAliases[unit]
			out.Unit = &u
		}
		if product := productName(name); product != "" {
			out.Product = &product
		}
	}
	return out, nil
}

func phrase(p string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(p) + `\b`)
}

// productName keeps words up to the first stop word and singularises the last one
func productName(raw string) string {
	var words []string
	for _, w := range strings.Fields(raw) {
		if _, stop := productStopWords[w]; stop {
			break
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return ""
	}
	last := words[len(words)-1]
	if len(last) > 3 && strings.HasSuffix(last, "s") && !strings.HasSuffix(last, "ss") {
		words[len(words)-1] = strings.TrimSuffix(last, "s")
	}
	return strings.Join(words, " ")
}
