package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrivacyLevelValid(t *testing.T) {
	assert.True(t, PrivacyPublic.Valid())
	assert.True(t, PrivacyPrivate.Valid())
	assert.False(t, PrivacyLevel("internal").Valid())
	assert.False(t, PrivacyLevel("").Valid())
}

func TestChunkKindValid(t *testing.T) {
	for _, k := range []ChunkKind{ChunkKindText, ChunkKindTable, ChunkKindImage, ChunkKindOCR} {
		assert.True(t, k.Valid(), "kind %s", k)
	}
	assert.False(t, ChunkKind("video").Valid())
	assert.False(t, ChunkKind("").Valid())
}

func TestStrategyKinds(t *testing.T) {
	var s Strategy

	s = DocumentOnlyStrategy{}
	assert.Equal(t, StrategyDocumentOnly, s.Kind())

	s = WebOnlyStrategy{}
	assert.Equal(t, StrategyWebOnly, s.Kind())

	s = HybridStrategy{}
	assert.Equal(t, StrategyHybrid, s.Kind())
}

func TestAnswerEventTerminal(t *testing.T) {
	assert.False(t, AnswerEvent{Type: AnswerEventToken}.Terminal())
	assert.False(t, AnswerEvent{Type: AnswerEventSources}.Terminal())
	assert.False(t, AnswerEvent{Type: AnswerEventConversationID}.Terminal())
	assert.True(t, AnswerEvent{Type: AnswerEventDone}.Terminal())
	assert.True(t, AnswerEvent{Type: AnswerEventError}.Terminal())
}
