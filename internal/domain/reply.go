package domain

import "time"

// ReplyAuthorType indicates who authored a reply.
type ReplyAuthorType string

const (
	ReplyAuthorUser   ReplyAuthorType = "user"
	ReplyAuthorAgent  ReplyAuthorType = "agent"
	ReplyAuthorSystem ReplyAuthorType = "system"
)

// ArticleReference is the citation shape stored on replies.
type ArticleReference struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ReplyMetadata is populated for system-authored replies.
type ReplyMetadata struct {
	IsAutoReply       bool               `json:"isAutoReply"`
	Confidence        *float64           `json:"confidence,omitempty"`
	ArticleReferences []ArticleReference `json:"articleReferences"`
}

// TicketReply is one message in a ticket thread.
type TicketReply struct {
	ID         string
	AuthorType ReplyAuthorType
	AuthorID   *string
	Content    string
	Metadata   ReplyMetadata
	CreatedAt  time.Time
}
