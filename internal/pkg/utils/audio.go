package utils

import "strings"

// assumed bytes per second of recorded audio, used for the initial
// duration guess before the transcriber reports the real one
const estimateBytesPerSec = 16000

// SupportAudioExt checks if audio ext is supported
func SupportAudioExt(ext string) bool {
	switch ext {
	case ".webm", ".wav", ".mp3", ".mp4", ".m4a", ".ogg":
		return true
	}
	return false
}

// FormatFromExt maps a file extension to the stored format tag
func FormatFromExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(ext), ".")
}

// EstimateDurationSec guesses audio length from its byte size.
// Rough approximation only, refined after transcription
func EstimateDurationSec(sizeBytes int64) int {
	if sizeBytes <= 0 {
		return 0
	}
	return int(sizeBytes / estimateBytesPerSec)
}
