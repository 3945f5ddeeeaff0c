package simulator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/helixml/agentbuilder/api/pkg/types"
)

const (
	snippetLength    = 80
	maxSearchMatches = 3
	defaultWait      = "1 day"
)

var (
	quoted       = regexp.MustCompile(`"([^"]+)"|“([^”]+)”|(?:^|\s)'([^']+)'`)
	durationExpr = regexp.MustCompile(`(?i)(\d+)\s*(minute|min|hour|hr|day|week|month)s?\b`)
	afterTo      = regexp.MustCompile(`(?i)\bto\s+(.+)$`)
)

func snippet(text string) string {
	if utf8.RuneCountInString(text) <= snippetLength {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:snippetLength-1])) + "…"
}

func firstQuoted(text string) string {
	m := quoted.FindStringSubmatch(text)
	for _, group := range m[min(len(m), 1):] {
		if group != "" {
			return strings.TrimSpace(group)
		}
	}
	return ""
}

// ParseWait extracts a duration such as "2 days" from a wait step.
func ParseWait(text string) (string, bool) {
	m := durationExpr.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	unit := strings.ToLower(m[2])
	switch unit {
	case "min":
		unit = "minute"
	case "hr":
		unit = "hour"
	}
	if m[1] != "1" {
		unit += "s"
	}
	return m[1] + " " + unit, true
}

// afterKeyword returns what follows the first keyword of a line, e.g. the
// query of "search for CTOs in Berlin".
func afterKeyword(text string, keywords []string) string {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if idx := strings.Index(lower, kw); idx >= 0 {
			rest := strings.TrimSpace(text[idx+len(kw):])
			rest = strings.TrimPrefix(rest, "for ")
			rest = strings.TrimPrefix(rest, "about ")
			return strings.Trim(rest, " .:")
		}
	}
	return strings.Trim(text, " .:")
}

func (s *Simulator) preview(ctx context.Context, a action, original, text string, b *Bindings) *types.RichPreview {
	p := &types.RichPreview{Kind: a.kind}

	switch a.kind {
	case types.ActionKindEmail:
		subject := firstQuoted(text)
		if subject == "" {
			subject = "Quick follow-up"
			if name := b.deal["name"]; name != "" {
				subject = "Re: " + name
			}
		}
		p.Email = &types.EmailPreview{
			To:          b.recipient(),
			Subject:     subject,
			BodySnippet: snippet(text),
		}

	case types.ActionKindSearch:
		p.Search = s.searchPreview(ctx, afterKeyword(text, a.keywords), b)

	case types.ActionKindConditional:
		// a condition over a reference holds when the reference has a value
		result := true
		for _, ref := range FindReferences(original) {
			if v, ok := b.lookup(ref); !ok || v == "" {
				result = false
			}
		}
		branch := "then"
		if !result {
			branch = "else"
		}
		p.Conditional = &types.ConditionalPreview{Condition: text, Result: result, Branch: branch}

	case types.ActionKindWait:
		duration, ok := ParseWait(text)
		if !ok {
			duration = defaultWait
		}
		p.Wait = &types.WaitPreview{Duration: duration}

	case types.ActionKindLinkedIn:
		linkedInAction := "message"
		if strings.Contains(strings.ToLower(text), "connect") {
			linkedInAction = "connect"
		}
		p.LinkedIn = &types.LinkedInPreview{
			Action:     linkedInAction,
			ProfileURL: b.contact["linkedinUrl"],
			Message:    firstQuoted(text),
		}

	case types.ActionKindTask:
		dueIn, _ := ParseWait(text)
		p.Task = &types.TaskPreview{
			Title:    snippet(text),
			Assignee: b.deal["ownerEmail"],
			DueIn:    dueIn,
		}

	case types.ActionKindTag:
		p.Tag = &types.TagPreview{Tags: parseTags(text, a.keywords)}

	case types.ActionKindUpdate:
		p.Update = parseUpdate(original, text)

	case types.ActionKindEnrich:
		var missing []string
		fields := b.contact
		if fields == nil {
			fields = b.deal
		}
		for _, name := range []string{"company", "title", "phone", "linkedinUrl"} {
			if v, ok := fields[name]; !ok || v == "" {
				missing = append(missing, name)
			}
		}
		if len(missing) == 0 {
			missing = []string{"company", "title"}
		}
		p.Enrich = &types.EnrichPreview{Fields: missing}

	case types.ActionKindWebSearch:
		query := afterKeyword(text, a.keywords)
		p.WebSearch = &types.WebSearchPreview{
			Query:       query,
			ResultCount: 10,
			TopResults: []string{
				fmt.Sprintf("%s - overview", query),
				fmt.Sprintf("%s - latest news", query),
			},
		}
	}

	return p
}

func (s *Simulator) searchPreview(ctx context.Context, query string, b *Bindings) *types.SearchPreview {
	preview := &types.SearchPreview{Query: query, Matches: []string{}}
	if s.store == nil || b.workspaceID == "" {
		return preview
	}

	page, err := s.store.SearchTestTargets(ctx, &types.TestTargetSearchQuery{
		WorkspaceID: b.workspaceID,
		Type:        types.TestTargetTypeContact,
		SearchTerm:  query,
		Limit:       maxSearchMatches,
	})
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("failed to preview contact search")
		return preview
	}

	for _, target := range page.Targets {
		preview.Matches = append(preview.Matches, target.Label)
	}
	preview.MatchedCount = len(preview.Matches)
	preview.HasMore = page.HasMore
	return preview
}

func parseTags(text string, keywords []string) []string {
	if q := firstQuoted(text); q != "" {
		return splitList(q)
	}
	rest := afterKeyword(text, keywords)
	for _, prefix := range []string{"contact as ", "deal as ", "as ", "with "} {
		if strings.HasPrefix(strings.ToLower(rest), prefix) {
			rest = rest[len(prefix):]
			break
		}
	}
	return splitList(rest)
}

func splitList(s string) []string {
	tags := []string{}
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "and "))
		if part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}

// parseUpdate reads "update @deal.stage to negotiation" style lines; the
// first reference names the field, the text after "to" the value.
func parseUpdate(original, text string) *types.UpdatePreview {
	preview := &types.UpdatePreview{Entity: entityContact}

	if refs := FindReferences(original); len(refs) > 0 {
		preview.Entity = refs[0].Entity
		preview.Field = refs[0].Field
	} else if strings.Contains(strings.ToLower(text), "deal") {
		preview.Entity = entityDeal
	}
	if preview.Field == "" {
		preview.Field = "status"
		if preview.Entity == entityDeal {
			preview.Field = "stage"
		}
	}

	if m := afterTo.FindStringSubmatch(original); m != nil {
		preview.Value = strings.Trim(m[1], " .\"'")
	}
	return preview
}
