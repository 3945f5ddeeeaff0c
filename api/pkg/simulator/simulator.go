// Package simulator dry-runs agent instructions against a test target. Every
// non-empty line is one step; nothing is sent or written.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/helixml/agentbuilder/api/pkg/store"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

var ErrTargetNotFound = errors.New("test target not found")

// Run is the outcome of simulating an agent's instructions.
type Run struct {
	Steps  []*types.StepResult
	Result *types.TestRunResult
}

type Simulator struct {
	store store.Store
}

// New creates a simulator. The store resolves contact and deal targets and
// backs search previews; it may be nil when only manual data is used.
func New(s store.Store) *Simulator {
	return &Simulator{store: s}
}

// Bindings holds the values @contact.* and @deal.* references resolve to.
type Bindings struct {
	workspaceID string
	contact     map[string]string
	deal        map[string]string
	manual      map[string]string
}

// Bind loads the test target of a run. Manual data keys may be qualified
// ("contact.email") or bare ("email").
func (s *Simulator) Bind(ctx context.Context, workspaceID string, target types.TestTarget) (*Bindings, error) {
	b := &Bindings{workspaceID: workspaceID}

	switch target.Type {
	case types.TestTargetTypeContact:
		if s.store == nil {
			return nil, ErrTargetNotFound
		}
		contact, err := s.store.GetContact(ctx, target.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrTargetNotFound
			}
			return nil, err
		}
		if workspaceID != "" && contact.WorkspaceID != workspaceID {
			return nil, ErrTargetNotFound
		}
		b.contact = contact.Fields()

	case types.TestTargetTypeDeal:
		if s.store == nil {
			return nil, ErrTargetNotFound
		}
		deal, err := s.store.GetDeal(ctx, target.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrTargetNotFound
			}
			return nil, err
		}
		if workspaceID != "" && deal.WorkspaceID != workspaceID {
			return nil, ErrTargetNotFound
		}
		b.deal = deal.Fields()
		if deal.ContactID != "" {
			if contact, err := s.store.GetContact(ctx, deal.ContactID); err == nil {
				b.contact = contact.Fields()
			}
		}

	default:
		b.manual = target.ManualData
	}

	return b, nil
}

func (b *Bindings) entity(name string) map[string]string {
	switch name {
	case entityContact:
		return b.contact
	case entityDeal:
		return b.deal
	}
	return nil
}

// lookup reports the value of a reference and whether anything is bound
// for it.
func (b *Bindings) lookup(ref Reference) (string, bool) {
	if fields := b.entity(ref.Entity); fields != nil {
		v, ok := fields[ref.Field]
		return v, ok
	}
	if v, ok := b.manual[ref.Entity+"."+ref.Field]; ok {
		return v, true
	}
	v, ok := b.manual[ref.Field]
	return v, ok
}

func (b *Bindings) recipient() string {
	if email := b.contact["email"]; email != "" {
		return email
	}
	if email := b.manual["contact.email"]; email != "" {
		return email
	}
	if email := b.manual["email"]; email != "" {
		return email
	}
	return "(no recipient)"
}

// Simulate runs every step of the instructions. After the first error the
// remaining steps are reported as not executed.
func (s *Simulator) Simulate(ctx context.Context, instructions string, b *Bindings) *Run {
	if b == nil {
		b = &Bindings{}
	}
	run := &Run{Steps: []*types.StepResult{}}
	failed := false

	for i, line := range Parse(instructions) {
		var step *types.StepResult
		if failed {
			step = notExecuted(i+1, line)
		} else {
			step = s.simulateLine(ctx, i+1, line, b)
		}
		if step.Status == types.StepStatusError {
			failed = true
		}
		run.Steps = append(run.Steps, step)
	}

	run.Result = Summarize(run.Steps)
	return run
}

func notExecuted(number int, line Line) *types.StepResult {
	step := &types.StepResult{
		StepNumber:  number,
		Status:      types.StepStatusNotExecuted,
		ActionLabel: "Not executed",
		Message:     "Skipped because an earlier step failed",
	}
	if a, ok := classify(line.Text); ok {
		step.ActionKind = a.kind
		step.ActionLabel = a.label
		step.Icon = a.icon
	}
	return step
}

func (s *Simulator) simulateLine(ctx context.Context, number int, line Line, b *Bindings) *types.StepResult {
	a, ok := classify(line.Text)
	if !ok {
		return &types.StepResult{
			StepNumber:  number,
			Status:      types.StepStatusSkipped,
			ActionLabel: "Note",
			Icon:        "file-text",
			Message:     fmt.Sprintf("Line %d is not a recognized action", line.Number),
		}
	}

	step := &types.StepResult{
		StepNumber:  number,
		ActionKind:  a.kind,
		ActionLabel: a.label,
		Icon:        a.icon,
	}

	text, warnings, err := substitute(line.Text, b)
	if err != nil {
		step.Status = types.StepStatusError
		step.Message = err.message
		step.Suggestions = err.suggestions
		return step
	}

	if a.kind == types.ActionKindWait {
		if _, ok := ParseWait(text); !ok {
			warnings = append(warnings, fmt.Sprintf("No duration given, waiting %s", defaultWait))
		}
	}

	step.RichPreview = s.preview(ctx, a, line.Text, text, b)
	step.EstimatedCredits = a.credits
	step.EstimatedSeconds = a.seconds

	switch {
	case len(warnings) > 0:
		step.Status = types.StepStatusWarning
		step.Message = strings.Join(warnings, "; ")
	case a.sideEffect:
		step.Status = types.StepStatusSimulated
		step.Message = "Simulated, nothing was sent"
	default:
		step.Status = types.StepStatusSuccess
	}
	return step
}

type referenceError struct {
	message     string
	suggestions []string
}

// substitute replaces references with their bound values. Empty values are
// warnings, unknown or unbound references are errors.
func substitute(text string, b *Bindings) (string, []string, *referenceError) {
	var warnings []string

	for _, ref := range FindReferences(text) {
		if !ref.Known() {
			if ValidFields(ref.Entity) == nil {
				return "", nil, &referenceError{
					message:     fmt.Sprintf("Unknown reference %s", ref.Raw),
					suggestions: []string{"Only @contact.<field> and @deal.<field> references are supported"},
				}
			}
			return "", nil, &referenceError{
				message: fmt.Sprintf("Unknown field %s", ref.Raw),
				suggestions: []string{
					fmt.Sprintf("Replace %s with one of %s", ref.Raw, strings.Join(ref.Alternatives(), ", ")),
				},
			}
		}

		value, bound := b.lookup(ref)
		if !bound {
			return "", nil, &referenceError{
				message: fmt.Sprintf("No %s selected to resolve %s", ref.Entity, ref.Raw),
				suggestions: []string{
					fmt.Sprintf("Select a %s as the test target", ref.Entity),
					fmt.Sprintf("Or provide manual data for %s.%s", ref.Entity, ref.Field),
				},
			}
		}
		if value == "" {
			warnings = append(warnings, fmt.Sprintf("%s is empty for this %s", ref.Raw, ref.Entity))
			value = "[" + ref.Field + " missing]"
		}
		text = strings.Replace(text, ref.Raw, value, 1)
	}

	return text, warnings, nil
}

// Summarize builds the run result from its steps.
func Summarize(steps []*types.StepResult) *types.TestRunResult {
	result := &types.TestRunResult{
		Success:   true,
		Warnings:  []string{},
		Estimates: &types.TestRunEstimates{},
	}

	for _, step := range steps {
		switch step.Status {
		case types.StepStatusError:
			if result.Success {
				result.Error = fmt.Sprintf("Step %d failed: %s", step.StepNumber, step.Message)
			}
			result.Success = false
		case types.StepStatusWarning:
			result.Warnings = append(result.Warnings, fmt.Sprintf("Step %d: %s", step.StepNumber, step.Message))
		}
		result.Estimates.TotalCredits += step.EstimatedCredits
		result.Estimates.TotalSeconds += step.EstimatedSeconds
	}

	return result
}

// Fields lists every referenceable field, e.g. for help output.
func Fields() []string {
	var refs []string
	for _, entity := range []string{entityContact, entityDeal} {
		for _, f := range ValidFields(entity) {
			refs = append(refs, "@"+entity+"."+f)
		}
	}
	sort.Strings(refs)
	return refs
}
