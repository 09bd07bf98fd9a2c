package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen         TicketStatus = "open"
	TicketStatusTriaged      TicketStatus = "triaged"
	TicketStatusWaitingHuman TicketStatus = "waiting_human"
	TicketStatusResolved     TicketStatus = "resolved"
	TicketStatusClosed       TicketStatus = "closed"
)

// Category is the support queue a ticket belongs to.
type Category string

const (
	CategoryBilling  Category = "billing"
	CategoryTech     Category = "tech"
	CategoryShipping Category = "shipping"
	CategoryOther    Category = "other"
)

// Categories lists every category in declaration order.
var Categories = []Category{CategoryBilling, CategoryTech, CategoryShipping, CategoryOther}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ResolutionType records who resolved a ticket.
type ResolutionType string

const (
	ResolutionAuto   ResolutionType = "auto"
	ResolutionAgent  ResolutionType = "agent"
	ResolutionSystem ResolutionType = "system"
)

// Resolution captures how and when a ticket was resolved.
type Resolution struct {
	ResolvedBy *string
	ResolvedAt time.Time
	Type       ResolutionType
	Confidence *float64
}

// Ticket is the aggregate for support requests. Version increments on every
// successful update and guards concurrent writers.
type Ticket struct {
	ID           string
	Title        string
	Description  string
	Category     Category
	Status       TicketStatus
	CreatedBy    string
	AssigneeID   *string
	SuggestionID *string
	AutoResolved bool
	Resolution   *Resolution
	Replies      []TicketReply
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Text is the combined title and description fed to triage.
func (t *Ticket) Text() string {
	return t.Title + " " + t.Description
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	if t.AssigneeID != nil {
		v := *t.AssigneeID
		cp.AssigneeID = &v
	}
	if t.SuggestionID != nil {
		v := *t.SuggestionID
		cp.SuggestionID = &v
	}
	if t.Resolution != nil {
		res := *t.Resolution
		cp.Resolution = &res
	}
	cp.Replies = make([]TicketReply, len(t.Replies))
	for i, r := range t.Replies {
		cp.Replies[i] = r
		cp.Replies[i].Metadata.ArticleReferences = append([]ArticleReference(nil), r.Metadata.ArticleReferences...)
	}
	return &cp
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:         {TicketStatusTriaged, TicketStatusWaitingHuman, TicketStatusResolved},
	TicketStatusTriaged:      {TicketStatusWaitingHuman, TicketStatusResolved},
	TicketStatusWaitingHuman: {TicketStatusWaitingHuman, TicketStatusResolved},
	TicketStatusResolved:     {},
	TicketStatusClosed:       {},
}

// CanTransition reports whether a ticket may move from current to next.
// waiting_human -> waiting_human is allowed so a re-triage can relink the suggestion.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
