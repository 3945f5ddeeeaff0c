package types

import (
	"strconv"
	"strings"
	"time"
)

// Contact is a CRM contact an agent can be tested against.
type Contact struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	WorkspaceID string    `json:"workspaceId" gorm:"index"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Company     string    `json:"company,omitempty"`
	Title       string    `json:"title,omitempty"`
	LinkedInURL string    `json:"linkedinUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Fields lists the values @contact.<field> references resolve to.
func (c *Contact) Fields() map[string]string {
	return map[string]string{
		"firstName":   c.FirstName,
		"lastName":    c.LastName,
		"name":        c.FullName(),
		"email":       c.Email,
		"phone":       c.Phone,
		"company":     c.Company,
		"title":       c.Title,
		"linkedinUrl": c.LinkedInURL,
	}
}

func (c *Contact) Option() *TestTargetOption {
	subtitle := c.Email
	if c.Company != "" {
		subtitle = c.Email + " · " + c.Company
	}
	return &TestTargetOption{
		ID:       c.ID,
		Type:     TestTargetTypeContact,
		Label:    c.FullName(),
		Subtitle: subtitle,
	}
}

// Deal is a CRM deal an agent can be tested against.
type Deal struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	WorkspaceID string    `json:"workspaceId" gorm:"index"`
	Name        string    `json:"name"`
	Stage       string    `json:"stage"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	OwnerEmail  string    `json:"ownerEmail,omitempty"`
	ContactID   string    `json:"contactId,omitempty"`
	CloseDate   string    `json:"closeDate,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Fields lists the values @deal.<field> references resolve to.
func (d *Deal) Fields() map[string]string {
	return map[string]string{
		"name":       d.Name,
		"stage":      d.Stage,
		"amount":     strconv.FormatFloat(d.Amount, 'f', -1, 64),
		"currency":   d.Currency,
		"ownerEmail": d.OwnerEmail,
		"closeDate":  d.CloseDate,
	}
}

func (d *Deal) Option() *TestTargetOption {
	return &TestTargetOption{
		ID:       d.ID,
		Type:     TestTargetTypeDeal,
		Label:    d.Name,
		Subtitle: d.Stage,
	}
}
