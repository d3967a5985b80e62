package discussion

import (
	"time"
)

// DiscussionEvent represents one immutable record in the append-only discussion log.
// Every user interaction with a thread (comment, reply, reaction, pin toggle) is stored
// as one of these; events are never edited or deleted after creation.
type DiscussionEvent struct {
	ID        string    `json:"id" db:"id"`
	ThreadID  string    `json:"threadId" db:"thread_id"`
	OrgID     int64     `json:"orgId" db:"org_id"`
	ActorID   string    `json:"actorId" db:"actor_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	Payload   string    `json:"payload" db:"payload"`
}

// Decoded returns the typed payload for this event. It never fails; payloads that do not
// parse as a known variant come back as a PlainComment carrying the raw stored string.
func (e *DiscussionEvent) Decoded() Payload {
	return DecodePayload(e.Payload)
}

// PayloadKind identifies one variant of the discussion payload union.
type PayloadKind string

const (
	KindPlainComment PayloadKind = "plain_comment"
	KindComment      PayloadKind = "comment"
	KindReply        PayloadKind = "reply"
	KindReaction     PayloadKind = "reaction"
	KindPinToggle    PayloadKind = "pin_toggle"
)

// Payload is the closed union of event payload variants. Modeling this as a sealed
// interface (rather than inspecting raw strings at each call site) keeps the projector's
// fold exhaustive: a new variant fails to compile until every switch handles it.
type Payload interface {
	Kind() PayloadKind
}

// PlainComment is a legacy untagged comment: any stored payload that fails to decode as
// structured data is treated as one of these, with Text holding the raw string verbatim.
type PlainComment struct {
	Text string
}

// Comment is a root-level comment with optional actor mentions.
type Comment struct {
	Text     string
	Mentions []string
}

// Reply attaches under exactly one root comment. A reply's ParentID always points at a
// root comment id, never at another reply.
type Reply struct {
	Text     string
	Mentions []string
	ParentID string
}

// Reaction is one actor expressing one emoji on one target comment or reply.
type Reaction struct {
	TargetID string
	Emoji    string
}

// PinToggle sets or clears the pinned state of a target comment. The effective pin state
// of a node is the value of the latest toggle targeting it (last-writer-wins).
type PinToggle struct {
	TargetID string
	Pinned   bool
}

func (PlainComment) Kind() PayloadKind { return KindPlainComment }
func (Comment) Kind() PayloadKind      { return KindComment }
func (Reply) Kind() PayloadKind        { return KindReply }
func (Reaction) Kind() PayloadKind     { return KindReaction }
func (PinToggle) Kind() PayloadKind    { return KindPinToggle }
