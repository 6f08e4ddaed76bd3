package randx

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMessageID(t *testing.T) {
	id := MessageID()

	_, err := uuid.Parse(id)
	assert.NoError(t, err)

	assert.NotEqual(t, id, MessageID())
}
