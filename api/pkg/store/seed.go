package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/helixml/agentbuilder/api/pkg/types"
)

const DemoWorkspaceID = "ws_demo"

var demoAgents = []*types.Agent{
	{
		Name:   "Inbound lead follow-up",
		Status: types.AgentStatusActive,
		Instructions: `Search contacts where company is @contact.company
Send email to @contact.email with subject "Thanks for reaching out, @contact.firstName"
Wait 2 days
If no reply, create task "Call @contact.firstName" for the account owner
Tag contact as inbound-followed-up`,
	},
	{
		Name:   "Stalled deal nudge",
		Status: types.AgentStatusPaused,
		Instructions: `If @deal.stage is negotiation
Update deal stage to follow-up
Send LinkedIn message to the deal contact
Wait 3 days
Create task "Review @deal.name" due in 1 day`,
	},
	{
		Name:   "Market research digest",
		Status: types.AgentStatusDraft,
		Instructions: `Search the web for competitor pricing announcements
Enrich company records with industry and headcount
Tag accounts as researched`,
	},
}

var demoContacts = []struct {
	first, last, company, title string
}{
	{"Ada", "Lovelace", "Analytical Engines", "CTO"},
	{"Grace", "Hopper", "Compilers Inc", "VP Engineering"},
	{"Alan", "Turing", "Bletchley Labs", "Research Lead"},
	{"Katherine", "Johnson", "Orbital Dynamics", "Principal Analyst"},
	{"Linus", "Torvalds", "Kernel Works", "Maintainer"},
	{"Margaret", "Hamilton", "Apollo Software", "Director"},
	{"Dennis", "Ritchie", "Bell Systems", "Architect"},
	{"Barbara", "Liskov", "Substitution Partners", "Founder"},
	{"Ken", "Thompson", "Bell Systems", "Engineer"},
	{"Radia", "Perlman", "Spanning Trees", "Fellow"},
	{"Donald", "Knuth", "Typeset Press", "Author"},
	{"Frances", "Allen", "Optimizing Co", "Scientist"},
	{"Edsger", "Dijkstra", "Shortest Path", "Professor"},
	{"Hedy", "Lamarr", "Frequency Hopping", "Inventor"},
	{"Tim", "Berners-Lee", "Hypertext Ltd", "Director"},
	{"Shafi", "Goldwasser", "Zero Knowledge", "Cryptographer"},
	{"John", "McCarthy", "Lisp Machines", "Founder"},
	{"Adele", "Goldberg", "Smalltalk Systems", "CEO"},
	{"Vint", "Cerf", "Packet Networks", "Chief Evangelist"},
	{"Annie", "Easley", "Rocket Code", "Engineer"},
	{"Guido", "Rossum", "Snake Software", "BDFL"},
	{"Evelyn", "Berezin", "Word Processing", "Founder"},
	{"Bjarne", "Stroustrup", "Classes Inc", "Designer"},
	{"Sophie", "Wilson", "Acorn Chips", "Architect"},
	{"Jean", "Sammet", "Cobol Corp", "Manager"},
}

var demoDeals = []struct {
	name, stage string
	amount      float64
}{
	{"Analytical Engines renewal", "negotiation", 48000},
	{"Compilers Inc expansion", "proposal", 120000},
	{"Bletchley Labs pilot", "discovery", 15000},
	{"Orbital Dynamics enterprise", "negotiation", 250000},
	{"Kernel Works support", "closed_won", 36000},
	{"Apollo Software seats", "proposal", 64000},
	{"Bell Systems migration", "discovery", 90000},
	{"Spanning Trees upgrade", "closed_lost", 22000},
	{"Typeset Press licence", "negotiation", 12000},
	{"Packet Networks rollout", "proposal", 180000},
}

// Seed creates demo agents, contacts and deals in DemoWorkspaceID unless
// the workspace already has agents.
func (s *SqliteStore) Seed(ctx context.Context) error {
	existing, err := s.ListAgents(ctx, &ListAgentsQuery{WorkspaceID: DemoWorkspaceID})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, a := range demoAgents {
		agent := *a
		agent.WorkspaceID = DemoWorkspaceID
		agent.UpdatedBy = "seed"
		if _, err := s.CreateAgent(ctx, &agent); err != nil {
			return fmt.Errorf("failed to seed agent %q: %w", a.Name, err)
		}
	}

	contactIDs := make([]string, 0, len(demoContacts))
	for _, c := range demoContacts {
		contact, err := s.CreateContact(ctx, &types.Contact{
			WorkspaceID: DemoWorkspaceID,
			FirstName:   c.first,
			LastName:    c.last,
			Email:       fmt.Sprintf("%s.%s@example.com", strings.ToLower(c.first), strings.ToLower(c.last)),
			Company:     c.company,
			Title:       c.title,
			LinkedInURL: fmt.Sprintf("https://www.linkedin.com/in/%s-%s", strings.ToLower(c.first), strings.ToLower(c.last)),
		})
		if err != nil {
			return fmt.Errorf("failed to seed contact %s %s: %w", c.first, c.last, err)
		}
		contactIDs = append(contactIDs, contact.ID)
	}

	for i, d := range demoDeals {
		_, err := s.CreateDeal(ctx, &types.Deal{
			WorkspaceID: DemoWorkspaceID,
			Name:        d.name,
			Stage:       d.stage,
			Amount:      d.amount,
			OwnerEmail:  "owner@example.com",
			ContactID:   contactIDs[i%len(contactIDs)],
			CloseDate:   "2026-12-31",
		})
		if err != nil {
			return fmt.Errorf("failed to seed deal %q: %w", d.name, err)
		}
	}

	log.Info().
		Str("workspace_id", DemoWorkspaceID).
		Int("agents", len(demoAgents)).
		Int("contacts", len(demoContacts)).
		Int("deals", len(demoDeals)).
		Msg("seeded demo workspace")

	return nil
}
