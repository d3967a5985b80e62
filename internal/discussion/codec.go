package discussion

import (
	"encoding/json"
	"fmt"
	"strings"
)

// payloadEnvelope is the wire shape stored in the payload text column. Optional fields
// use pointers so decode can tell "absent" from "zero" when validating a variant.
type payloadEnvelope struct {
	Kind     string   `json:"kind"`
	Text     *string  `json:"text,omitempty"`
	Mentions []string `json:"mentions,omitempty"`
	ParentID *string  `json:"parentId,omitempty"`
	TargetID *string  `json:"targetId,omitempty"`
	Emoji    *string  `json:"emoji,omitempty"`
	Pinned   *bool    `json:"pinned,omitempty"`
}

// EncodePayload encodes a typed payload into the opaque string stored in the event
// relation. Encoding is stable: the same logical payload always encodes identically.
// PlainComment encodes to its raw text unchanged so legacy rows and new rows stay
// byte-compatible.
func EncodePayload(p Payload) (string, error) {
	var env payloadEnvelope

	switch v := p.(type) {
	case PlainComment:
		return v.Text, nil
	case Comment:
		env = payloadEnvelope{
			Kind:     string(KindComment),
			Text:     stringPtr(v.Text),
			Mentions: v.Mentions,
		}
	case Reply:
		env = payloadEnvelope{
			Kind:     string(KindReply),
			Text:     stringPtr(v.Text),
			Mentions: v.Mentions,
			ParentID: stringPtr(v.ParentID),
		}
	case Reaction:
		env = payloadEnvelope{
			Kind:     string(KindReaction),
			TargetID: stringPtr(v.TargetID),
			Emoji:    stringPtr(v.Emoji),
		}
	case PinToggle:
		env = payloadEnvelope{
			Kind:     string(KindPinToggle),
			TargetID: stringPtr(v.TargetID),
			Pinned:   boolPtr(v.Pinned),
		}
	default:
		return "", fmt.Errorf("unknown payload variant %T", p)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	return string(data), nil
}

// DecodePayload decodes a stored payload string into its typed variant. It never fails:
// anything that is not well-formed structured data for a known variant decodes to
// PlainComment with Text set to the original string verbatim. Unknown extra fields on a
// recognized variant are ignored.
func DecodePayload(raw string) Payload {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return PlainComment{Text: raw}
	}

	var env payloadEnvelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return PlainComment{Text: raw}
	}

	switch PayloadKind(env.Kind) {
	case KindComment:
		if env.Text == nil {
			return PlainComment{Text: raw}
		}
		return Comment{Text: *env.Text, Mentions: env.Mentions}
	case KindReply:
		if env.Text == nil || env.ParentID == nil || *env.ParentID == "" {
			return PlainComment{Text: raw}
		}
		return Reply{Text: *env.Text, Mentions: env.Mentions, ParentID: *env.ParentID}
	case KindReaction:
		if env.TargetID == nil || *env.TargetID == "" || env.Emoji == nil || *env.Emoji == "" {
			return PlainComment{Text: raw}
		}
		return Reaction{TargetID: *env.TargetID, Emoji: *env.Emoji}
	case KindPinToggle:
		if env.TargetID == nil || *env.TargetID == "" || env.Pinned == nil {
			return PlainComment{Text: raw}
		}
		return PinToggle{TargetID: *env.TargetID, Pinned: *env.Pinned}
	}

	// JSON object without a recognized kind tag: treat as legacy text.
	return PlainComment{Text: raw}
}

// Helper functions to create pointers for envelope fields
func stringPtr(s string) *string {
	return &s
}

func boolPtr(b bool) *bool {
	return &b
}
