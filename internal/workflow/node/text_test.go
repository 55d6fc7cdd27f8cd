package node

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateByRunes(t *testing.T) {
	assert.Equal(t, "", TruncateByRunes("abc", 0))
	assert.Equal(t, "ab", TruncateByRunes("abc", 2))
	assert.Equal(t, "日本", TruncateByRunes("日本語", 2))
	assert.Equal(t, "abc", TruncateByRunes("abc", 10))
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractJSONObject(`Here you go: {"a":1} thanks`))
	assert.Equal(t, `[1,2]`, ExtractJSONObject(`result [1,2]`))
	assert.Equal(t, "", ExtractJSONObject("   "))
}

func TestIsResponseFormatUnsupportedError(t *testing.T) {
	assert.False(t, IsResponseFormatUnsupportedError(nil))
	assert.True(t, IsResponseFormatUnsupportedError(errors.New("400: Unknown parameter 'response_format'")))
	assert.False(t, IsResponseFormatUnsupportedError(errors.New("connection reset")))
	assert.False(t, IsResponseFormatUnsupportedError(errors.New("invalid response body: unexpected EOF")))
	assert.True(t, IsResponseFormatUnsupportedError(errors.New("Error 400, Message: Invalid value for responseMimeType")))
}

func TestExtractJSONObject_SkipsInvalidCandidates(t *testing.T) {
	raw := "use {placeholder} then ```json\n{\"a\": \"}\", \"b\": [1]}\n```"
	assert.Equal(t, `{"a": "}", "b": [1]}`, ExtractJSONObject(raw))
	assert.Equal(t, "no json here", ExtractJSONObject(" no json here "))
	assert.Equal(t, "{broken", ExtractJSONObject("{broken"))
}
