package persistence

import (
	"database/sql"
	"time"
)

type (

	// Echo table - one recorded voice message and its derived artifacts
	Echo struct {
		ID                  string
		OwnerID             sql.NullString
		QuestionID          sql.NullInt32
		AudioKey            string
		Format              string
		DurationSeconds     int
		FileSizeBytes       int64
		TranscriptionStatus string
		Transcript          sql.NullString
		EmotionalTone       sql.NullString
		Themes              []string
		AISummary           sql.NullString
		VoiceProfile        *VoiceProfile
		ErrorCode           sql.NullString
		Email               sql.NullString
		Created             time.Time
		Updated             time.Time
		Version             int32
	}

	// VoiceProfile keeps lexical statistics derived from a transcript.
	// Stored as jsonb, absence only means the metric stage did not run
	VoiceProfile struct {
		AvgWordLength        float64   `json:"avgWordLength"`
		AvgSentenceLength    float64   `json:"avgSentenceLength"`
		VocabularyComplexity string    `json:"vocabularyComplexity"`
		SpeakingStyle        string    `json:"speakingStyle"`
		ComputedAt           time.Time `json:"computedAt"`
	}

	// Question table - static prompt shown to the user while recording.
	// Read-only for the pipeline
	Question struct {
		ID       int32
		Text     string
		Category string
	}
)
