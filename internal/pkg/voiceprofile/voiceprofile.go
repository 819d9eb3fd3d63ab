package voiceprofile

import (
	"regexp"
	"strings"
	"time"

	"github.com/CC90210/ECHOES-APP/internal/pkg/persistence"
)

// classification thresholds, fixed for compatibility with stored profiles
const (
	complexWordLength    = 5
	elaborateSentenceLen = 15
)

var sentenceRe = regexp.MustCompile(`[.!?]+`)

// Derive computes lexical statistics from a transcript.
// Words are whitespace tokens, trailing punctuation counts towards word
// length. Returns nil for an empty or whitespace only transcript
func Derive(transcript string, at time.Time) *persistence.VoiceProfile {
	words := strings.Fields(transcript)
	if len(words) == 0 {
		return nil
	}
	chars := 0
	for _, w := range words {
		chars += len([]rune(w))
	}
	avgWordLength := float64(chars) / float64(len(words))

	sentences := 0
	for _, s := range sentenceRe.Split(transcript, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	if sentences == 0 {
		sentences = 1
	}
	avgSentenceLength := float64(len(words)) / float64(sentences)

	res := &persistence.VoiceProfile{
		AvgWordLength:        avgWordLength,
		AvgSentenceLength:    avgSentenceLength,
		VocabularyComplexity: "moderate",
		SpeakingStyle:        "concise",
		ComputedAt:           at,
	}
	if avgWordLength > complexWordLength {
		res.VocabularyComplexity = "high"
	}
	if avgSentenceLength > elaborateSentenceLen {
		res.SpeakingStyle = "elaborate"
	}
	return res
}
