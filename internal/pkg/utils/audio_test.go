package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSupportAudioExt(t *testing.T) {
	tests := []struct {
		args string
		want bool
	}{
		{args: ".webm", want: true},
		{args: ".wav", want: true},
		{args: ".mp3", want: true},
		{args: ".m4a", want: true},
		{args: ".ogg", want: true},
		{args: ".txt", want: false},
		{args: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			assert.Equal(t, tt.want, SupportAudioExt(tt.args))
		})
	}
}

func TestFormatFromExt(t *testing.T) {
	assert.Equal(t, "webm", FormatFromExt(".webm"))
	assert.Equal(t, "m4a", FormatFromExt(".M4A"))
}

func TestEstimateDurationSec(t *testing.T) {
	assert.Equal(t, 0, EstimateDurationSec(0))
	assert.Equal(t, 0, EstimateDurationSec(-10))
	assert.Equal(t, 1, EstimateDurationSec(16000))
	assert.Equal(t, 3, EstimateDurationSec(50000))
}
