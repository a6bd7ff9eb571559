package store

import "time"

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// ProposedChange is one link of a document's edit chain. ParentID is empty
// for the first link; otherwise it names the pending change whose
// ProposedHTML became this change's OriginalHTML.
type ProposedChange struct {
	ID            string
	LegislationID string
	Seq           int64
	UserID        string
	Title         string
	OriginalHTML  string
	ProposedHTML  string
	Status        string
	ParentID      string
	ReviewedBy    string
	ReviewedAt    *time.Time
	CreatedAt     time.Time
}

type Comment struct {
	ID            string
	LegislationID string
	SectionKey    string
	MarkID        string
	UserID        string
	UserName      string
	Text          string
	CreatedAt     time.Time
}
