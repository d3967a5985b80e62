package discussion

import (
	"sort"
	"time"
)

// CommentNode is the derived, never-persisted view of one comment-like event with its
// replies, reaction sets and pin flag folded in.
type CommentNode struct {
	ID        string              `json:"id"`
	AuthorID  string              `json:"authorId"`
	Text      string              `json:"text"`
	CreatedAt time.Time           `json:"createdAt"`
	ParentID  string              `json:"parentId,omitempty"`
	Children  []*CommentNode      `json:"children"`
	Reactions map[string][]string `json:"reactions"`
	Pinned    bool                `json:"pinned"`
}

// HasReaction reports whether actorID already appears in the node's reaction set for
// emoji. Used by the mutation facade to reject duplicate submissions before emitting.
func (n *CommentNode) HasReaction(emoji, actorID string) bool {
	for _, actor := range n.Reactions[emoji] {
		if actor == actorID {
			return true
		}
	}
	return false
}

// Project rebuilds the visible comment tree from the complete event list of a thread.
// It is a pure function: identical input multisets, in any order, always yield an
// identical tree. Events whose target or parent never resolves to a known node are
// retained in the raw log but contribute nothing here.
func Project(events []*DiscussionEvent) []*CommentNode {
	// Work on a copy sorted by (createdAt, id) so the fold below is independent of the
	// caller's ordering. The id tie-break makes equal-timestamp folds deterministic.
	ordered := make([]*DiscussionEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	// Pass 1: classify by decoded variant.
	type reactionEvent struct {
		targetID string
		emoji    string
		actorID  string
	}
	var (
		commentLike []*DiscussionEvent
		reactions   []reactionEvent
		pinByTarget = make(map[string]bool)
	)
	for _, ev := range ordered {
		switch p := ev.Decoded().(type) {
		case PlainComment, Comment, Reply:
			commentLike = append(commentLike, ev)
		case Reaction:
			reactions = append(reactions, reactionEvent{
				targetID: p.TargetID,
				emoji:    p.Emoji,
				actorID:  ev.ActorID,
			})
		case PinToggle:
			// Events are already ordered by (createdAt, id); overwriting leaves the
			// last-writer-wins value per target.
			pinByTarget[p.TargetID] = p.Pinned
		}
	}

	// Pass 2: materialize one node per comment-like event. Roots first, so a reply can
	// check that its parent is a materialized root. Replies whose parent is missing or
	// is itself a reply are dropped from the visible tree (they stay in the raw log and
	// the audit trail).
	nodes := make(map[string]*CommentNode)
	roots := make([]*CommentNode, 0, len(commentLike))
	for _, ev := range commentLike {
		var text string
		switch p := ev.Decoded().(type) {
		case PlainComment:
			text = p.Text
		case Comment:
			text = p.Text
		default:
			continue
		}
		node := &CommentNode{
			ID:        ev.ID,
			AuthorID:  ev.ActorID,
			Text:      text,
			CreatedAt: ev.CreatedAt,
			Children:  make([]*CommentNode, 0),
			Reactions: make(map[string][]string),
		}
		nodes[ev.ID] = node
		roots = append(roots, node)
	}
	for _, ev := range commentLike {
		p, ok := ev.Decoded().(Reply)
		if !ok {
			continue
		}
		parent, ok := nodes[p.ParentID]
		if !ok || parent.ParentID != "" {
			continue
		}
		node := &CommentNode{
			ID:        ev.ID,
			AuthorID:  ev.ActorID,
			Text:      p.Text,
			CreatedAt: ev.CreatedAt,
			ParentID:  p.ParentID,
			Children:  make([]*CommentNode, 0),
			Reactions: make(map[string][]string),
		}
		nodes[ev.ID] = node
		parent.Children = append(parent.Children, node)
	}

	// Fold reactions as a set union keyed by actor: emitting the same (target, emoji,
	// actor) any number of times has the effect of emitting it once.
	for _, r := range reactions {
		node, ok := nodes[r.targetID]
		if !ok {
			continue
		}
		if node.HasReaction(r.emoji, r.actorID) {
			continue
		}
		node.Reactions[r.emoji] = append(node.Reactions[r.emoji], r.actorID)
	}
	for _, node := range nodes {
		for emoji := range node.Reactions {
			sort.Strings(node.Reactions[emoji])
		}
	}

	// Resolve pin flags.
	for targetID, pinned := range pinByTarget {
		if node, ok := nodes[targetID]; ok {
			node.Pinned = pinned
		}
	}

	// Order: pinned roots first, then ascending createdAt; replies ascending createdAt.
	sort.SliceStable(roots, func(i, j int) bool {
		if roots[i].Pinned != roots[j].Pinned {
			return roots[i].Pinned
		}
		if !roots[i].CreatedAt.Equal(roots[j].CreatedAt) {
			return roots[i].CreatedAt.Before(roots[j].CreatedAt)
		}
		return roots[i].ID < roots[j].ID
	})
	for _, root := range roots {
		children := root.Children
		sort.SliceStable(children, func(i, j int) bool {
			if !children[i].CreatedAt.Equal(children[j].CreatedAt) {
				return children[i].CreatedAt.Before(children[j].CreatedAt)
			}
			return children[i].ID < children[j].ID
		})
	}

	return roots
}

// FindNode returns the node with the given id from a projected tree, searching roots and
// their replies, or nil if no visible node has that id.
func FindNode(tree []*CommentNode, id string) *CommentNode {
	for _, root := range tree {
		if root.ID == id {
			return root
		}
		for _, child := range root.Children {
			if child.ID == id {
				return child
			}
		}
	}
	return nil
}
