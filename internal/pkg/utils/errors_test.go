package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrStorage(t *testing.T) {
	err := NewErrStorage(fmt.Errorf("olia"))
	assert.Equal(t, "storage unavailable: olia", err.Error())
}

func TestErrStorage_Unwrap(t *testing.T) {
	inner := fmt.Errorf("olia")
	err := NewErrStorage(inner)
	assert.True(t, errors.Is(err, inner))
	var se *ErrStorage
	assert.True(t, errors.As(err, &se))
}
