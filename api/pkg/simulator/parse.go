package simulator

import (
	"regexp"
	"sort"
	"strings"

	"github.com/helixml/agentbuilder/api/pkg/types"
)

// Line is one instruction line that becomes a step.
type Line struct {
	Number int
	Text   string
}

var listMarker = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)

// Parse splits instructions into step lines. Blank lines and comments
// starting with # or // are ignored, list markers are stripped.
func Parse(instructions string) []Line {
	var lines []Line
	for i, raw := range strings.Split(instructions, "\n") {
		text := strings.TrimSpace(raw)
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "//") {
			continue
		}
		text = strings.TrimSpace(listMarker.ReplaceAllString(text, ""))
		if text == "" {
			continue
		}
		lines = append(lines, Line{Number: i + 1, Text: text})
	}
	return lines
}

const (
	entityContact = "contact"
	entityDeal    = "deal"
)

// Reference is an @entity.field template reference.
type Reference struct {
	Raw    string
	Entity string
	Field  string
}

// an @ preceded by a word character is an email address, not a reference
var referencePattern = regexp.MustCompile(`(?:^|[^\w.@])(@([A-Za-z]+)\.([A-Za-z_][A-Za-z0-9_]*))`)

func FindReferences(text string) []Reference {
	var refs []Reference
	for _, m := range referencePattern.FindAllStringSubmatch(text, -1) {
		refs = append(refs, Reference{
			Raw:    m[1],
			Entity: strings.ToLower(m[2]),
			Field:  m[3],
		})
	}
	return refs
}

var (
	contactFields = fieldNames((&types.Contact{}).Fields())
	dealFields    = fieldNames((&types.Deal{}).Fields())
)

func fieldNames(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidFields lists the fields an entity can be referenced by, nil for an
// unknown entity.
func ValidFields(entity string) []string {
	switch entity {
	case entityContact:
		return contactFields
	case entityDeal:
		return dealFields
	}
	return nil
}

// Known reports whether the reference names a field that exists.
func (r Reference) Known() bool {
	for _, f := range ValidFields(r.Entity) {
		if f == r.Field {
			return true
		}
	}
	return false
}

// Alternatives lists valid references for an unknown one. Fields sharing a
// prefix with the typo come first.
func (r Reference) Alternatives() []string {
	fields := ValidFields(r.Entity)
	if fields == nil {
		return []string{"@contact.<field>", "@deal.<field>"}
	}

	typo := strings.ToLower(r.Field)
	var close, rest []string
	for _, f := range fields {
		ref := "@" + r.Entity + "." + f
		lower := strings.ToLower(f)
		if typo != "" && (strings.HasPrefix(lower, typo[:1]) || strings.Contains(lower, typo) || strings.Contains(typo, lower)) {
			close = append(close, ref)
			continue
		}
		rest = append(rest, ref)
	}
	return append(close, rest...)
}
