package discussion

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Facade errors surfaced to callers. ErrReactionExists is benign ("already applied"),
// not a system failure.
var (
	ErrEmptyText      = errors.New("comment text is empty")
	ErrEmptyEmoji     = errors.New("reaction emoji is empty")
	ErrUnknownTarget  = errors.New("target comment not found in thread")
	ErrNotRootComment = errors.New("replies can only target a root comment")
	ErrReactionExists = errors.New("reaction already applied")
)

// EventStore is the external append/fetch interface the facade emits through. The store
// assigns the event id and timestamp; the facade never mutates local state itself — the
// realtime echo of the appended event updates the view.
type EventStore interface {
	Append(ctx context.Context, scope Scope, payload Payload) (*DiscussionEvent, error)
	ListByThread(ctx context.Context, threadID string, orgID int64) ([]*DiscussionEvent, error)
}

// Scope identifies the thread, tenant and acting user of one mutation.
type Scope struct {
	ThreadID string
	OrgID    int64
	ActorID  string
}

// Facade validates requested actions against the current projected state of a thread
// and emits the corresponding event. All operations are fire-and-forget: on append
// failure the error is surfaced and nothing is retried or rolled back.
type Facade struct {
	store EventStore
}

// NewFacade creates a mutation facade over the given store.
func NewFacade(store EventStore) *Facade {
	return &Facade{store: store}
}

// PostComment emits a root-level comment. Mentions passed explicitly are merged with
// @name tokens extracted from the text.
func (f *Facade) PostComment(ctx context.Context, scope Scope, text string, mentions []string) (*DiscussionEvent, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	return f.store.Append(ctx, scope, Comment{
		Text:     text,
		Mentions: mergeMentions(mentions, ExtractMentions(text)),
	})
}

// PostReply emits a reply under an existing root comment. The parent must resolve to a
// visible root node in the current projection; replies to replies are rejected here so
// the one-level nesting rule holds at the source instead of being repaired at render.
func (f *Facade) PostReply(ctx context.Context, scope Scope, parentID, text string) (*DiscussionEvent, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	tree, err := f.projectThread(ctx, scope)
	if err != nil {
		return nil, err
	}
	parent := FindNode(tree, parentID)
	if parent == nil {
		return nil, ErrUnknownTarget
	}
	if parent.ParentID != "" {
		return nil, ErrNotRootComment
	}

	return f.store.Append(ctx, scope, Reply{
		Text:     text,
		Mentions: ExtractMentions(text),
		ParentID: parentID,
	})
}

// React emits an emoji reaction on a comment or reply. If the acting user already
// appears in the projected reaction set for (targetID, emoji) the call is rejected
// locally with ErrReactionExists and no event is emitted: the projector's fold tolerates
// duplicates, but appending them anyway only wastes the log.
func (f *Facade) React(ctx context.Context, scope Scope, targetID, emoji string) (*DiscussionEvent, error) {
	if emoji == "" {
		return nil, ErrEmptyEmoji
	}

	tree, err := f.projectThread(ctx, scope)
	if err != nil {
		return nil, err
	}
	target := FindNode(tree, targetID)
	if target == nil {
		return nil, ErrUnknownTarget
	}
	if target.HasReaction(emoji, scope.ActorID) {
		return nil, ErrReactionExists
	}

	return f.store.Append(ctx, scope, Reaction{TargetID: targetID, Emoji: emoji})
}

// TogglePin reads the current projected pin state of the target and emits a PinToggle
// with the opposite value. Two rapid toggles by different actors still converge: the pin
// flag is a last-writer-wins register over the PinToggle sub-stream.
func (f *Facade) TogglePin(ctx context.Context, scope Scope, targetID string) (*DiscussionEvent, error) {
	tree, err := f.projectThread(ctx, scope)
	if err != nil {
		return nil, err
	}
	target := FindNode(tree, targetID)
	if target == nil {
		return nil, ErrUnknownTarget
	}

	return f.store.Append(ctx, scope, PinToggle{TargetID: targetID, Pinned: !target.Pinned})
}

func (f *Facade) projectThread(ctx context.Context, scope Scope) ([]*CommentNode, error) {
	events, err := f.store.ListByThread(ctx, scope.ThreadID, scope.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread events: %w", err)
	}
	return Project(events), nil
}

var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9._-]+)`)

// ExtractMentions returns the distinct @name tokens appearing in text, in order of
// first appearance.
func ExtractMentions(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	mentions := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		mentions = append(mentions, m[1])
	}
	return mentions
}

func mergeMentions(explicit, extracted []string) []string {
	if len(explicit) == 0 {
		return extracted
	}

	seen := make(map[string]struct{}, len(explicit)+len(extracted))
	merged := make([]string, 0, len(explicit)+len(extracted))
	for _, list := range [][]string{explicit, extracted} {
		for _, mention := range list {
			if _, dup := seen[mention]; dup {
				continue
			}
			seen[mention] = struct{}{}
			merged = append(merged, mention)
		}
	}
	return merged
}
