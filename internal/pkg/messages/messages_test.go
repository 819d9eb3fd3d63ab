package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMessageFrom(t *testing.T) {
	assert.Equal(t, &EchoMessage{RequestID: "rID"},
		NewMessageFrom(&EchoMessage{RequestID: "rID"}))
}
