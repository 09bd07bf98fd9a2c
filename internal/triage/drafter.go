package triage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
)

var baseResponses = map[domain.Category]string{
	domain.CategoryBilling:  "Thank you for contacting us about your billing inquiry. I understand your concern and I'm here to help resolve this matter quickly.",
	domain.CategoryTech:     "I'm sorry to hear you're experiencing technical difficulties. Let me help you troubleshoot this issue.",
	domain.CategoryShipping: "Thank you for reaching out about your shipment. I'll help you track your order and resolve any delivery concerns.",
	domain.CategoryOther:    "Thank you for contacting our support team. I've received your inquiry and will make sure you get the help you need.",
}

const (
	resourcesIntro   = "\n\nI found these helpful resources:\n"
	resourcesClosing = "\n\nPlease review these articles and let me know if you need further assistance."
	specialistLine   = "\n\nI'll connect you with a specialist who can help resolve this issue."
)

// Draft is the reply proposed for a ticket. CitedArticles carries title and
// snippet for the persisted citation metadata.
type Draft struct {
	ReplyText     string
	Citations     []string
	CitedArticles []domain.CandidateArticle
	Category      domain.Category
	Confidence    float64
	ModelInfo     domain.ModelInfo
}

// TemplateDrafter composes replies from canned per-category openers.
type TemplateDrafter struct {
	classifier *KeywordClassifier
	now        func() time.Time
}

// NewTemplateDrafter builds a drafter that re-derives the category with classifier.
func NewTemplateDrafter(classifier *KeywordClassifier) *TemplateDrafter {
	return &TemplateDrafter{classifier: classifier, now: time.Now}
}

// Draft composes the reply. Confidence comes from re-classifying the ticket.
func (d *TemplateDrafter) Draft(ctx context.Context, ticket *domain.Ticket, articles []domain.CandidateArticle) (Draft, error) {
	start := d.now()
	cls, err := d.classifier.Classify(ctx, ticket.Text())
	if err != nil {
		return Draft{}, err
	}

	used := articles
	if len(used) > maxCandidates {
		used = used[:maxCandidates]
	}

	var b strings.Builder
	b.WriteString(baseResponses[cls.Category])
	citations := make([]string, 0, len(used))
	if len(used) > 0 {
		b.WriteString(resourcesIntro)
		for i, a := range used {
			fmt.Fprintf(&b, "\n%d. %s", i+1, a.Title)
			citations = append(citations, a.ID)
		}
		b.WriteString(resourcesClosing)
	} else {
		b.WriteString(specialistLine)
	}

	info := cls.ModelInfo
	info.LatencyMs = d.now().Sub(start).Milliseconds()
	return Draft{
		ReplyText:     b.String(),
		Citations:     citations,
		CitedArticles: append([]domain.CandidateArticle(nil), used...),
		Category:      cls.Category,
		Confidence:    cls.Confidence,
		ModelInfo:     info,
	}, nil
}

// RenderAutoReply is the customer-facing reply appended when a ticket is
// auto-closed: the draft followed by titled snippets of each cited article.
func RenderAutoReply(draft Draft) string {
	if len(draft.CitedArticles) == 0 {
		return draft.ReplyText
	}
	var b strings.Builder
	b.WriteString(draft.ReplyText)
	b.WriteString("\n\n📚 **Helpful Resources:**\n")
	for i, a := range draft.CitedArticles {
		fmt.Fprintf(&b, "%d. **%s**\n   %s...\n\n", i+1, a.Title, a.BodySnippet)
	}
	b.WriteString("If you need further assistance, please feel free to create a new ticket.")
	return b.String()
}
