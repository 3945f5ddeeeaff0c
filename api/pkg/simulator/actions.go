package simulator

import (
	"regexp"
	"strings"

	"github.com/helixml/agentbuilder/api/pkg/types"
)

type action struct {
	kind     types.ActionKind
	label    string
	icon     string
	keywords []string
	// prefixes only match at the start of the line
	prefixes []string
	credits  float64
	seconds  float64
	// side-effecting actions are reported as simulated, read-only ones as success
	sideEffect bool
}

// actions are matched in order, the first hit wins
var actions = []action{
	{kind: types.ActionKindConditional, label: "Check condition", icon: "git-branch", prefixes: []string{"if", "when", "unless", "otherwise", "else"}, credits: 0, seconds: 0.2},
	{kind: types.ActionKindWait, label: "Wait", icon: "clock", keywords: []string{"wait", "delay", "pause", "sleep"}, credits: 0, seconds: 0.1, sideEffect: true},
	{kind: types.ActionKindWebSearch, label: "Search the web", icon: "globe", keywords: []string{"web search", "search the web", "search online", "google", "research"}, credits: 1.5, seconds: 4},
	{kind: types.ActionKindLinkedIn, label: "LinkedIn outreach", icon: "linkedin", keywords: []string{"linkedin"}, credits: 1, seconds: 2.5, sideEffect: true},
	{kind: types.ActionKindEnrich, label: "Enrich record", icon: "database", keywords: []string{"enrich"}, credits: 2, seconds: 3},
	{kind: types.ActionKindSearch, label: "Search contacts", icon: "search", keywords: []string{"search", "find", "look up", "lookup"}, credits: 0.5, seconds: 1.5},
	{kind: types.ActionKindEmail, label: "Send email", icon: "mail", keywords: []string{"email", "e-mail", "send", "reply", "mail"}, credits: 1, seconds: 2, sideEffect: true},
	{kind: types.ActionKindTask, label: "Create task", icon: "check-square", keywords: []string{"task", "remind", "reminder", "call", "follow up"}, credits: 0.25, seconds: 0.5, sideEffect: true},
	{kind: types.ActionKindTag, label: "Add tag", icon: "tag", keywords: []string{"tag", "label"}, credits: 0.1, seconds: 0.3, sideEffect: true},
	{kind: types.ActionKindUpdate, label: "Update record", icon: "edit", keywords: []string{"update", "set", "change", "mark", "move"}, credits: 0.25, seconds: 0.5, sideEffect: true},
}

var nonWord = regexp.MustCompile(`[^a-z0-9-]+`)

// normalize lowercases text, drops references and pads words with spaces so
// keywords can be matched on word boundaries.
func normalize(text string) string {
	for _, ref := range FindReferences(text) {
		text = strings.Replace(text, ref.Raw, " ", 1)
	}
	return " " + strings.Join(strings.Fields(nonWord.ReplaceAllString(strings.ToLower(text), " ")), " ") + " "
}

func classify(text string) (action, bool) {
	normalized := normalize(text)
	for _, a := range actions {
		for _, p := range a.prefixes {
			if strings.HasPrefix(normalized, " "+p+" ") {
				return a, true
			}
		}
		for _, kw := range a.keywords {
			if strings.Contains(normalized, " "+kw+" ") {
				return a, true
			}
		}
	}
	return action{}, false
}

// Classify returns the action kind of an instruction line.
func Classify(text string) (types.ActionKind, bool) {
	a, ok := classify(text)
	return a.kind, ok
}

// CreditsFor is the estimated credit cost of one action.
func CreditsFor(kind types.ActionKind) float64 {
	for _, a := range actions {
		if a.kind == kind {
			return a.credits
		}
	}
	return 0
}

func isOutreach(kind types.ActionKind) bool {
	return kind == types.ActionKindEmail || kind == types.ActionKindLinkedIn
}
