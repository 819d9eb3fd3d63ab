package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/CC90210/ECHOES-APP/internal/pkg/persistence"
	"github.com/CC90210/ECHOES-APP/internal/pkg/status"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB provides operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	res := &DB{pool: pool}
	return res, nil
}

// InsertEcho inserts a new echo into DB
func (db *DB) InsertEcho(ctx context.Context, echo *persistence.Echo) error {
	_, err := db.pool.Exec(ctx, `INSERT INTO echoes(id, owner_id, question_id, audio_key, format,
	duration_seconds, file_size_bytes, transcription_status, email, created)
	VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, echo.ID, echo.OwnerID, echo.QuestionID,
		echo.AudioKey, echo.Format, echo.DurationSeconds, echo.FileSizeBytes,
		echo.TranscriptionStatus, echo.Email, echo.Created,
	)
	if err != nil {
		return fmt.Errorf("can't insert echo: %w", err)
	}
	return nil
}

// LoadEcho loads echo from DB, returns nil if no record
func (db *DB) LoadEcho(ctx context.Context, id string) (*persistence.Echo, error) {
	var res persistence.Echo
	var vp []byte
	err := db.pool.QueryRow(ctx, `SELECT id, owner_id, question_id, audio_key, format,
	duration_seconds, file_size_bytes, transcription_status, transcript, emotional_tone,
	themes, ai_summary, voice_profile, error_code, email, created, updated, version FROM echoes
		WHERE id = $1`, id).Scan(&res.ID, &res.OwnerID, &res.QuestionID, &res.AudioKey, &res.Format,
		&res.DurationSeconds, &res.FileSizeBytes, &res.TranscriptionStatus, &res.Transcript,
		&res.EmotionalTone, &res.Themes, &res.AISummary, &vp, &res.ErrorCode, &res.Email,
		&res.Created, &res.Updated, &res.Version)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load echo: %w", err)
	}
	if len(vp) > 0 {
		res.VoiceProfile = &persistence.VoiceProfile{}
		if err := json.Unmarshal(vp, res.VoiceProfile); err != nil {
			return nil, fmt.Errorf("can't unmarshal voice profile: %w", err)
		}
	}
	return &res, nil
}

// TryStartProcessing moves echo from pending/failed to processing.
// Returns false if some other run holds the echo or it is already completed
func (db *DB) TryStartProcessing(ctx context.Context, id string) (bool, error) {
	rows, err := db.pool.Exec(ctx, `UPDATE echoes SET
	transcription_status = $2,
	updated = $3,
	version = version + 1
	WHERE id = $1 and transcription_status in ($4, $5)`, id, status.Processing.String(),
		time.Now(), status.Pending.String(), status.Failed.String())
	if err != nil {
		return false, fmt.Errorf("can't update echo status: %w", err)
	}
	return rows.RowsAffected() == 1, nil
}

// CompleteTranscription persists transcript and the authoritative duration
func (db *DB) CompleteTranscription(ctx context.Context, id, transcript string, durationSec int) error {
	rows, err := db.pool.Exec(ctx, `UPDATE echoes SET
	transcription_status = $2,
	transcript = $3,
	duration_seconds = $4,
	error_code = NULL,
	updated = $5,
	version = version + 1
	WHERE id = $1 and transcription_status = $6`, id, status.Completed.String(), transcript,
		durationSec, time.Now(), status.Processing.String())
	if err != nil {
		return fmt.Errorf("can't complete transcription: %w", err)
	}
	if rows.RowsAffected() != 1 {
		return fmt.Errorf("can't complete transcription, no processing record found")
	}
	return nil
}

// FailTranscription marks the attempt as failed, transcript fields stay untouched
func (db *DB) FailTranscription(ctx context.Context, id, errCode string) error {
	rows, err := db.pool.Exec(ctx, `UPDATE echoes SET
	transcription_status = $2,
	error_code = $3,
	updated = $4,
	version = version + 1
	WHERE id = $1`, id, status.Failed.String(), errCode, time.Now())
	if err != nil {
		return fmt.Errorf("can't fail transcription: %w", err)
	}
	if rows.RowsAffected() != 1 {
		return fmt.Errorf("can't fail transcription, no record found")
	}
	return nil
}

// UpdateAnalysis persists semantic analysis results
func (db *DB) UpdateAnalysis(ctx context.Context, id, tone string, themes []string, summary string) error {
	rows, err := db.pool.Exec(ctx, `UPDATE echoes SET
	emotional_tone = $2,
	themes = $3,
	ai_summary = $4,
	updated = $5,
	version = version + 1
	WHERE id = $1 and transcription_status = $6`, id, tone, themes, summary, time.Now(),
		status.Completed.String())
	if err != nil {
		return fmt.Errorf("can't update analysis: %w", err)
	}
	if rows.RowsAffected() != 1 {
		return fmt.Errorf("can't update analysis, no completed record found")
	}
	return nil
}

// UpdateVoiceProfile persists derived lexical metrics
func (db *DB) UpdateVoiceProfile(ctx context.Context, id string, profile *persistence.VoiceProfile) error {
	vp, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("can't marshal voice profile: %w", err)
	}
	rows, err := db.pool.Exec(ctx, `UPDATE echoes SET
	voice_profile = $2,
	updated = $3,
	version = version + 1
	WHERE id = $1 and transcription_status = $4`, id, vp, time.Now(), status.Completed.String())
	if err != nil {
		return fmt.Errorf("can't update voice profile: %w", err)
	}
	if rows.RowsAffected() != 1 {
		return fmt.Errorf("can't update voice profile, no completed record found")
	}
	return nil
}

// LoadQuestion loads question prompt from DB, returns nil if no record
func (db *DB) LoadQuestion(ctx context.Context, id int32) (*persistence.Question, error) {
	var res persistence.Question
	err := db.pool.QueryRow(ctx, `SELECT id, text, category FROM questions
		WHERE id = $1`, id).Scan(&res.ID, &res.Text, &res.Category)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load question: %w", err)
	}
	return &res, nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'gue_jobs')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}
