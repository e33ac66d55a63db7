package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyRoundTrip(t *testing.T) {
	key := PageKey("u1", "n1", "p1", "original", TypeProcessedText)
	assert.Equal(t, "u:u1:note:n1:page:p1:mode:original:type:processed_text", key.String())

	parsed, err := ParseKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, parsed)
}

func TestKeyEmptyFieldsRoundTrip(t *testing.T) {
	key := DictKey("u1", "你好")
	parsed, err := ParseKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, parsed)
	assert.Empty(t, parsed.NoteID)
	assert.Equal(t, "你好", parsed.PageID)
}

func TestParseKeyRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "u:u1", "x:u1:note:n:page:p:mode:m:type:t"} {
		_, err := ParseKey(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestPrefixesNest(t *testing.T) {
	key := PageKey("u1", "n1", "p1", "original", TypeProcessedText).String()
	assert.Contains(t, key, PagePrefix("u1", "n1", "p1"))
	assert.Contains(t, key, NotePrefix("u1", "n1"))
	assert.Contains(t, key, UserPrefix("u1"))
}
