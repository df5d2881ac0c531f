package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAction struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

func TestExtractObjectPlain(t *testing.T) {
	var a testAction
	err := ExtractObject(`{"action": "talkToSelf", "message": "hm"}`, &a)
	require.NoError(t, err)
	assert.Equal(t, "talkToSelf", a.Action)
}

func TestExtractObjectSurroundedByProse(t *testing.T) {
	raw := "Sure! Here is what Mira does next:\n" +
		"```json\n" +
		`{"action": "startConversation", "message": "Hey Theo!"}` +
		"\n```\nLet me know if you need anything else."

	var a testAction
	err := ExtractObject(raw, &a)
	require.NoError(t, err)
	assert.Equal(t, "startConversation", a.Action)
	assert.Equal(t, "Hey Theo!", a.Message)
}

func TestExtractObjectNestedAndQuotedBraces(t *testing.T) {
	raw := `thinking... {"action": "continueConversation", "message": "use {curly} braces :)", "extra": {"nested": true}} done`

	var a testAction
	err := ExtractObject(raw, &a)
	require.NoError(t, err)
	assert.Equal(t, "use {curly} braces :)", a.Message)
}

func TestExtractObjectTrailingComma(t *testing.T) {
	var a testAction
	err := ExtractObject(`{"action": "leaveConversation", "message": "bye",}`, &a)
	require.NoError(t, err)
	assert.Equal(t, "leaveConversation", a.Action)
}

func TestExtractObjectLeadingPlusOnNumbers(t *testing.T) {
	var delta struct {
		AffectionChange float64 `json:"affectionChange"`
		TrustChange     float64 `json:"trustChange"`
		Note            string  `json:"note"`
	}
	raw := `{"affectionChange": +5, "trustChange": -2, "note": "scored 3 + 4 today"}`

	err := ExtractObject(raw, &delta)
	require.NoError(t, err)
	assert.Equal(t, 5.0, delta.AffectionChange)
	assert.Equal(t, -2.0, delta.TrustChange)
	// Pluses inside string values stay put.
	assert.Equal(t, "scored 3 + 4 today", delta.Note)
}

func TestExtractObjectMissing(t *testing.T) {
	var a testAction
	err := ExtractObject("I would rather describe it in words.", &a)
	assert.ErrorIs(t, err, ErrNoObject)
}

func TestExtractObjectUnbalanced(t *testing.T) {
	var a testAction
	err := ExtractObject(`{"action": "talkToSelf", "message": "cut off`, &a)
	assert.ErrorIs(t, err, ErrNoObject)
}

func TestExtractArray(t *testing.T) {
	var idx []int
	err := ExtractArray("the most relevant memories are [1, 3, 5] as requested", &idx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5}, idx)

	err = ExtractArray("none of them", &idx)
	assert.ErrorIs(t, err, ErrNoArray)
}
