package discussion

import (
	"context"
	"sort"
	"time"

	"github.com/instiboard/discussiond/internal/identity"
)

// AuditEntry is one human-readable line of the thread's activity trail.
type AuditEntry struct {
	EventID       string    `json:"eventId"`
	ActorName     string    `json:"actorName"`
	ActorRole     string    `json:"actorRole"`
	Kind          string    `json:"kind"`
	TargetSummary string    `json:"targetSummary"`
	Timestamp     time.Time `json:"timestamp"`
}

// Audit entry kinds.
const (
	AuditKindComment = "comment"
	AuditKindReply   = "reply"
	AuditKindPin     = "pin"
	AuditKindUnpin   = "unpin"
)

const summaryMaxLen = 80

// ProjectAudit derives the reverse-chronological audit trail from the full event list.
// Every Comment, Reply, Pin and Unpin event produces exactly one entry; Reaction events
// are summarized into the comment view instead and deliberately excluded here. Actor
// lookups that miss degrade to a deterministic placeholder identity rather than failing.
func ProjectAudit(ctx context.Context, events []*DiscussionEvent, resolver identity.Resolver) []AuditEntry {
	// Comment texts indexed by event id, so pin entries can summarize their target even
	// when the target arrived after the toggle.
	textByID := make(map[string]string)
	for _, ev := range events {
		switch p := ev.Decoded().(type) {
		case PlainComment:
			textByID[ev.ID] = p.Text
		case Comment:
			textByID[ev.ID] = p.Text
		case Reply:
			textByID[ev.ID] = p.Text
		}
	}

	entries := make([]AuditEntry, 0, len(events))
	for _, ev := range events {
		var kind, summary string
		switch p := ev.Decoded().(type) {
		case PlainComment:
			kind = AuditKindComment
			summary = truncateSummary(p.Text)
		case Comment:
			kind = AuditKindComment
			summary = truncateSummary(p.Text)
		case Reply:
			kind = AuditKindReply
			summary = truncateSummary(p.Text)
		case Reaction:
			continue
		case PinToggle:
			if p.Pinned {
				kind = AuditKindPin
			} else {
				kind = AuditKindUnpin
			}
			if text, ok := textByID[p.TargetID]; ok {
				summary = truncateSummary(text)
			} else {
				summary = p.TargetID
			}
		default:
			continue
		}

		who := identity.Placeholder(ev.ActorID)
		if resolver != nil {
			if resolved, err := resolver.Resolve(ctx, ev.ActorID); err == nil {
				who = resolved
			}
		}

		entries = append(entries, AuditEntry{
			EventID:       ev.ID,
			ActorName:     who.DisplayName,
			ActorRole:     who.Role,
			Kind:          kind,
			TargetSummary: summary,
			Timestamp:     ev.CreatedAt,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.After(entries[j].Timestamp)
		}
		return entries[i].EventID > entries[j].EventID
	})

	return entries
}

func truncateSummary(text string) string {
	runes := []rune(text)
	if len(runes) <= summaryMaxLen {
		return text
	}
	return string(runes[:summaryMaxLen]) + "…"
}
