package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// LockEmailTable marks email sending as started for ID and msg type
// fails if the lock is already taken, so an email is never sent twice
func (db *DB) LockEmailTable(ctx context.Context, id string, msgType string) error {
	cmd, err := db.pool.Exec(ctx, `
		INSERT INTO email_lock(id, msg_type, status, created) VALUES($1, $2, 0, $3)
		ON CONFLICT (id, msg_type) DO NOTHING`, id, msgType, time.Now())
	if err != nil {
		return fmt.Errorf("can't insert email lock: %w", err)
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("email lock already taken for %s/%s", id, msgType)
	}
	return nil
}

// UnLockEmailTable releases or finalizes the email lock
// value 0 drops the lock so the send may be retried, other values are kept as final status
func (db *DB) UnLockEmailTable(ctx context.Context, id string, msgType string, value *int) error {
	var err error
	if value == nil || *value == 0 {
		_, err = db.pool.Exec(ctx, `DELETE FROM email_lock WHERE id = $1 AND msg_type = $2`, id, msgType)
	} else {
		_, err = db.pool.Exec(ctx, `UPDATE email_lock SET status = $3 WHERE id = $1 AND msg_type = $2`, id, msgType, *value)
	}
	if err != nil {
		goapp.Log.Error().Err(err).Str("ID", id).Msg("can't unlock email table")
		return fmt.Errorf("can't unlock email table: %w", err)
	}
	return nil
}
