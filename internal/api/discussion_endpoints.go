package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/instiboard/discussiond/internal/api/auth"
	"github.com/instiboard/discussiond/internal/discussion"
	"github.com/instiboard/discussiond/internal/identity"
	"github.com/instiboard/discussiond/internal/realtime"
)

// EventSource is the store surface the handlers need: the facade's append/list contract
// plus the incremental cursor used by polling clients.
type EventSource interface {
	discussion.EventStore
	ListSince(ctx context.Context, threadID string, orgID int64, since time.Time, limit int) ([]*discussion.DiscussionEvent, error)
}

// MentionNotifier schedules out-of-band notification of mentioned actors. Failures are
// logged and never affect the mutation response.
type MentionNotifier interface {
	NotifyMentions(ctx context.Context, ev *discussion.DiscussionEvent, mentions []string) error
}

// Roles allowed to read the audit trail. The engine itself performs no authorization;
// this gate belongs to the HTTP surface acting as the caller.
var auditRoles = map[string]bool{
	"admin":     true,
	"hr":        true,
	"moderator": true,
}

// DiscussionHandler handles discussion thread API endpoints
type DiscussionHandler struct {
	store    EventSource
	facade   *discussion.Facade
	broker   realtime.Broker
	resolver identity.Resolver
	notifier MentionNotifier
}

// NewDiscussionHandler creates a new discussion handler. broker and notifier may be nil
// (no realtime streaming / no mention notifications).
func NewDiscussionHandler(store EventSource, broker realtime.Broker, resolver identity.Resolver, notifier MentionNotifier) *DiscussionHandler {
	return &DiscussionHandler{
		store:    store,
		facade:   discussion.NewFacade(store),
		broker:   broker,
		resolver: resolver,
		notifier: notifier,
	}
}

func requestScope(c echo.Context) (discussion.Scope, error) {
	threadID := c.Param("id")
	if threadID == "" {
		return discussion.Scope{}, echo.NewHTTPError(http.StatusBadRequest, "Thread ID is required")
	}

	orgID := auth.OrgFromContext(c)
	if orgID == 0 {
		return discussion.Scope{}, echo.NewHTTPError(http.StatusBadRequest, "Missing organization context")
	}

	return discussion.Scope{
		ThreadID: threadID,
		OrgID:    orgID,
		ActorID:  auth.ActorFromContext(c),
	}, nil
}

// GetThreadEvents handles GET /api/v1/threads/:id/events (hydrate / polling endpoint)
func (h *DiscussionHandler) GetThreadEvents(c echo.Context) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}

	// Parse query parameters for cursor-based incremental fetch. A malformed cursor is an
	// error, not a full replay: a polling client must never mistake one for the other.
	var since *time.Time
	if sinceStr := c.QueryParam("since"); sinceStr != "" {
		parsedTime, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid since cursor; expected RFC3339 timestamp")
		}
		since = &parsedTime
	}

	limit := 200 // default
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 1000 {
			limit = parsedLimit
		}
	}

	var events []*discussion.DiscussionEvent
	if since != nil {
		events, err = h.store.ListSince(c.Request().Context(), scope.ThreadID, scope.OrgID, *since, limit)
	} else {
		events, err = h.store.ListByThread(c.Request().Context(), scope.ThreadID, scope.OrgID)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve events")
	}

	// Ensure events is a non-nil slice so JSON encodes to []
	if events == nil {
		events = make([]*discussion.DiscussionEvent, 0)
	}

	response := map[string]interface{}{
		"events": events,
		"meta": map[string]interface{}{
			"threadId": scope.ThreadID,
			"count":    len(events),
			"limit":    limit,
		},
	}
	if since != nil {
		response["meta"].(map[string]interface{})["since"] = since.Format(time.RFC3339)
	}

	return c.JSON(http.StatusOK, response)
}

// GetThreadView handles GET /api/v1/threads/:id/view (projected comment tree)
func (h *DiscussionHandler) GetThreadView(c echo.Context) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}

	events, err := h.store.ListByThread(c.Request().Context(), scope.ThreadID, scope.OrgID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve events")
	}

	view := discussion.Project(events)
	if view == nil {
		view = make([]*discussion.CommentNode, 0)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"threadId": scope.ThreadID,
		"comments": view,
	})
}

// GetThreadAudit handles GET /api/v1/threads/:id/audit (reverse-chronological trail)
func (h *DiscussionHandler) GetThreadAudit(c echo.Context) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}

	if !auditRoles[auth.RoleFromContext(c)] {
		return echo.NewHTTPError(http.StatusForbidden, "Audit trail requires an elevated role")
	}

	events, err := h.store.ListByThread(c.Request().Context(), scope.ThreadID, scope.OrgID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve events")
	}

	entries := discussion.ProjectAudit(c.Request().Context(), events, h.resolver)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"threadId": scope.ThreadID,
		"entries":  entries,
	})
}

type postCommentRequest struct {
	Text     string   `json:"text"`
	Mentions []string `json:"mentions"`
}

// PostComment handles POST /api/v1/threads/:id/comments
func (h *DiscussionHandler) PostComment(c echo.Context) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}

	var req postCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	event, err := h.facade.PostComment(c.Request().Context(), scope, req.Text, req.Mentions)
	if err != nil {
		return mutationError(err)
	}

	h.scheduleMentionNotify(c.Request().Context(), event)

	return c.JSON(http.StatusCreated, event)
}

type postReplyRequest struct {
	ParentID string `json:"parentId"`
	Text     string `json:"text"`
}

// PostReply handles POST /api/v1/threads/:id/replies
func (h *DiscussionHandler) PostReply(c echo.Context) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}

	var req postReplyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	event, err := h.facade.PostReply(c.Request().Context(), scope, req.ParentID, req.Text)
	if err != nil {
		return mutationError(err)
	}

	h.scheduleMentionNotify(c.Request().Context(), event)

	return c.JSON(http.StatusCreated, event)
}

type postReactionRequest struct {
	TargetID string `json:"targetId"`
	Emoji    string `json:"emoji"`
}

// PostReaction handles POST /api/v1/threads/:id/reactions
func (h *DiscussionHandler) PostReaction(c echo.Context) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}

	var req postReactionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	event, err := h.facade.React(c.Request().Context(), scope, req.TargetID, req.Emoji)
	if err != nil {
		return mutationError(err)
	}

	return c.JSON(http.StatusCreated, event)
}

type togglePinRequest struct {
	TargetID string `json:"targetId"`
}

// TogglePin handles POST /api/v1/threads/:id/pin
func (h *DiscussionHandler) TogglePin(c echo.Context) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}

	var req togglePinRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	event, err := h.facade.TogglePin(c.Request().Context(), scope, req.TargetID)
	if err != nil {
		return mutationError(err)
	}

	return c.JSON(http.StatusCreated, event)
}

// StreamThread handles GET /api/v1/threads/:id/stream (SSE). The handler hydrates a
// merge buffer from the store, subscribes to the realtime channel, and forwards each
// newly ingested event to the client together with the reprojected view. Closing the
// request unsubscribes, so an abandoned view neither leaks the subscription nor keeps
// its buffer growing.
func (h *DiscussionHandler) StreamThread(c echo.Context) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}
	if h.broker == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "Realtime streaming is not configured")
	}

	ctx := c.Request().Context()

	buffer := discussion.NewMergeBuffer(scope.ThreadID)

	// Subscribe before fetching the snapshot. An event appended while the list query runs
	// lands on the channel instead of falling into the gap between the two; the buffer's
	// id dedup collapses any overlap with the snapshot.
	incoming := make(chan *discussion.DiscussionEvent, 64)
	unsubscribe, err := h.broker.Subscribe(ctx, scope.ThreadID, func(ev *discussion.DiscussionEvent) {
		select {
		case incoming <- ev:
		default:
			// Slow consumer: drop and let the client re-hydrate. At-least-once delivery
			// means nothing is lost from the log itself.
			log.Warn().
				Str("thread_id", scope.ThreadID).
				Str("event_id", ev.ID).
				Msg("dropping realtime event for slow stream consumer")
		}
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to subscribe to thread")
	}
	defer unsubscribe()

	events, err := h.store.ListByThread(ctx, scope.ThreadID, scope.OrgID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve events")
	}
	buffer.Hydrate(events)

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeSSE(w, "view", buffer.View()); err != nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-incoming:
			if ev.OrgID != scope.OrgID {
				continue
			}
			if !buffer.Ingest(ev) {
				continue
			}
			if err := writeSSE(w, "event", ev); err != nil {
				return nil
			}
			if err := writeSSE(w, "view", buffer.View()); err != nil {
				return nil
			}
		}
	}
}

func writeSSE(w *echo.Response, eventName string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE payload: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventName, data); err != nil {
		return err
	}
	w.Flush()
	return nil
}

func (h *DiscussionHandler) scheduleMentionNotify(ctx context.Context, ev *discussion.DiscussionEvent) {
	if h.notifier == nil || ev == nil {
		return
	}

	var mentions []string
	switch p := ev.Decoded().(type) {
	case discussion.Comment:
		mentions = p.Mentions
	case discussion.Reply:
		mentions = p.Mentions
	}
	if len(mentions) == 0 {
		return
	}

	if err := h.notifier.NotifyMentions(ctx, ev, mentions); err != nil {
		log.Warn().
			Err(err).
			Str("event_id", ev.ID).
			Msg("failed to schedule mention notifications")
	}
}

func mutationError(err error) error {
	switch {
	case errors.Is(err, discussion.ErrReactionExists):
		return echo.NewHTTPError(http.StatusConflict, "Reaction already applied")
	case errors.Is(err, discussion.ErrUnknownTarget):
		return echo.NewHTTPError(http.StatusNotFound, "Target comment not found")
	case errors.Is(err, discussion.ErrNotRootComment):
		return echo.NewHTTPError(http.StatusBadRequest, "Replies can only target a root comment")
	case errors.Is(err, discussion.ErrEmptyText):
		return echo.NewHTTPError(http.StatusBadRequest, "Comment text is required")
	case errors.Is(err, discussion.ErrEmptyEmoji):
		return echo.NewHTTPError(http.StatusBadRequest, "Reaction emoji is required")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to append event")
	}
}
