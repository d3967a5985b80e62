package discussion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Run("Comment", func(t *testing.T) {
		encoded, err := EncodePayload(Comment{Text: "Launch approved", Mentions: []string{"amara", "joel"}})
		require.NoError(t, err)

		decoded := DecodePayload(encoded)
		require.IsType(t, Comment{}, decoded)
		comment := decoded.(Comment)
		assert.Equal(t, "Launch approved", comment.Text)
		assert.Equal(t, []string{"amara", "joel"}, comment.Mentions)
	})

	t.Run("Reply", func(t *testing.T) {
		encoded, err := EncodePayload(Reply{Text: "Agreed", ParentID: "c1"})
		require.NoError(t, err)

		decoded := DecodePayload(encoded)
		require.IsType(t, Reply{}, decoded)
		assert.Equal(t, "c1", decoded.(Reply).ParentID)
	})

	t.Run("Reaction", func(t *testing.T) {
		encoded, err := EncodePayload(Reaction{TargetID: "c1", Emoji: "👍"})
		require.NoError(t, err)

		decoded := DecodePayload(encoded)
		require.IsType(t, Reaction{}, decoded)
		assert.Equal(t, "👍", decoded.(Reaction).Emoji)
	})

	t.Run("PinToggle", func(t *testing.T) {
		encoded, err := EncodePayload(PinToggle{TargetID: "c1", Pinned: true})
		require.NoError(t, err)

		decoded := DecodePayload(encoded)
		require.IsType(t, PinToggle{}, decoded)
		assert.True(t, decoded.(PinToggle).Pinned)

		// pinned=false must survive encoding even though it is the zero value
		encoded, err = EncodePayload(PinToggle{TargetID: "c1", Pinned: false})
		require.NoError(t, err)
		decoded = DecodePayload(encoded)
		require.IsType(t, PinToggle{}, decoded)
		assert.False(t, decoded.(PinToggle).Pinned)
	})
}

func TestEncodeIsStable(t *testing.T) {
	payload := Comment{Text: "same", Mentions: []string{"a", "b"}}

	first, err := EncodePayload(payload)
	require.NoError(t, err)
	second, err := EncodePayload(payload)
	require.NoError(t, err)

	assert.Equal(t, first, second, "same logical payload must always encode identically")
}

func TestDecodeLegacyPlainText(t *testing.T) {
	// Anything that is not well-formed structured data decodes to a PlainComment
	// carrying the exact original string.
	cases := []string{
		"just an old comment",
		"",
		"  leading whitespace and {braces} inline",
		`{"kind":"comment"}`,                      // recognized kind, missing text
		`{"kind":"reaction","targetId":"c1"}`,     // reaction without emoji
		`{"kind":"pin_toggle","targetId":"c1"}`,   // pin toggle without pinned
		`{"kind":"reply","text":"hi"}`,            // reply without parent
		`{"kind":"announcement","text":"what"}`,   // unknown kind
		`{"status":"running","batchCount":3}`,     // structured but foreign JSON
		`{"kind":"comment","text":123}`,           // wrong field type
		`{not json at all`,                        // malformed
	}

	for _, raw := range cases {
		decoded := DecodePayload(raw)
		require.IsType(t, PlainComment{}, decoded, "payload %q", raw)
		assert.Equal(t, raw, decoded.(PlainComment).Text, "text must be the raw string verbatim")
	}
}

func TestDecodeIgnoresUnknownFields(t *testing.T) {
	decoded := DecodePayload(`{"kind":"comment","text":"hi","clientVersion":"2.4.1","draft":false}`)
	require.IsType(t, Comment{}, decoded)
	assert.Equal(t, "hi", decoded.(Comment).Text)
}

func TestPlainCommentEncodesVerbatim(t *testing.T) {
	encoded, err := EncodePayload(PlainComment{Text: "raw legacy text"})
	require.NoError(t, err)
	assert.Equal(t, "raw legacy text", encoded)
}
