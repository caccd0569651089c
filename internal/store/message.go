package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const earlyReceiptTTL = 10 * time.Minute

const messageColumns = `seq, conversation_jid, msg_id, kind, body, media_ref, from_me, sender_name, status, timestamp`

// AppendMessage appends m to its conversation's log. It reports false and
// leaves the log untouched when the identifier is already present.
// On insert m.Seq is set.
func (db *DB) AppendMessage(m *Message) (bool, error) {
	inserted := false
	err := db.withTx(func(tx *sql.Tx) error {
		now := time.Now().UnixMilli()
		res, err := tx.Exec(`
			INSERT INTO messages (conversation_jid, msg_id, kind, body, media_ref, from_me, sender_name, status, timestamp, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(conversation_jid, msg_id) DO NOTHING`,
			m.ConversationJID, m.ID, m.Kind, m.Body, m.MediaRef, m.FromMe, m.SenderName, m.Status, m.Timestamp, now)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return nil
		}
		inserted = true
		m.Seq, _ = res.LastInsertId()

		if _, err := tx.Exec(`
			UPDATE conversations SET
				last_message_at = MAX(last_message_at, ?),
				last_message_preview = ?,
				updated_at = ?
			WHERE jid = ?`,
			m.Timestamp, preview(m), now, m.ConversationJID); err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
		return nil
	})
	return inserted, err
}

// HasMessage reports whether id is already in jid's log.
func (db *DB) HasMessage(jid, id string) (bool, error) {
	var one int
	err := db.QueryRow(`SELECT 1 FROM messages WHERE conversation_jid = ? AND msg_id = ?`, jid, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// GetMessage returns one message, or ErrNotFound.
func (db *DB) GetMessage(jid, id string) (*Message, error) {
	row := db.QueryRow(`SELECT `+messageColumns+` FROM messages WHERE conversation_jid = ? AND msg_id = ?`, jid, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

// ListMessages returns up to limit messages of jid preceding beforeSeq
// (0 = newest), in append order.
func (db *DB) ListMessages(jid string, beforeSeq int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + messageColumns + ` FROM messages WHERE conversation_jid = ?`
	args := []any{jid}
	if beforeSeq > 0 {
		q += ` AND seq < ?`
		args = append(args, beforeSeq)
	}
	q += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// UpdateStatus moves the message with the given id forward to status.
// It returns the owning conversation and whether anything changed; a
// regression or repeat is a no-op. Unknown ids are parked as early receipts
// so a later Reconcile can apply them.
func (db *DB) UpdateStatus(id string, status Status) (string, bool, error) {
	var jid string
	changed := false
	err := db.withTx(func(tx *sql.Tx) error {
		err := tx.QueryRow(`
			UPDATE messages SET status = ?
			WHERE msg_id = ? AND status < ?
			RETURNING conversation_jid`, status, id, status).Scan(&jid)
		if err == nil {
			changed = true
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		var exists int
		err = tx.QueryRow(`SELECT 1 FROM messages WHERE msg_id = ? LIMIT 1`, id).Scan(&exists)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		now := time.Now()
		if _, err := tx.Exec(`DELETE FROM early_receipts WHERE received_at < ?`, now.Add(-earlyReceiptTTL).UnixMilli()); err != nil {
			return err
		}
		_, err = tx.Exec(`
			INSERT INTO early_receipts (msg_id, status, received_at) VALUES (?, ?, ?)
			ON CONFLICT(msg_id) DO UPDATE SET status = MAX(early_receipts.status, excluded.status)`,
			id, status, now.UnixMilli())
		return err
	})
	return jid, changed, err
}

// Reconcile replaces a provisional identifier with the authoritative one and
// moves status to at least sent, folding in any early receipt for finalID.
// If finalID is already present in the log the provisional entry is dropped.
func (db *DB) Reconcile(jid, provisionalID, finalID string) (*Message, error) {
	err := db.withTx(func(tx *sql.Tx) error {
		floor := StatusSent
		var early Status
		err := tx.QueryRow(`SELECT status FROM early_receipts WHERE msg_id = ?`, finalID).Scan(&early)
		switch {
		case err == nil:
			floor = max(floor, early)
			if _, err := tx.Exec(`DELETE FROM early_receipts WHERE msg_id = ?`, finalID); err != nil {
				return err
			}
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		var dup int
		err = tx.QueryRow(`SELECT 1 FROM messages WHERE conversation_jid = ? AND msg_id = ?`, jid, finalID).Scan(&dup)
		if err == nil {
			if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_jid = ? AND msg_id = ?`, jid, provisionalID); err != nil {
				return err
			}
			_, err = tx.Exec(`UPDATE messages SET status = MAX(status, ?) WHERE conversation_jid = ? AND msg_id = ?`, floor, jid, finalID)
			return err
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		res, err := tx.Exec(`
			UPDATE messages SET msg_id = ?, status = MAX(status, ?)
			WHERE conversation_jid = ? AND msg_id = ?`,
			finalID, floor, jid, provisionalID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return db.GetMessage(jid, finalID)
}

// SetMediaRef updates the media reference of a message.
func (db *DB) SetMediaRef(jid, id, ref string) error {
	return db.execOne(`UPDATE messages SET media_ref = ? WHERE conversation_jid = ? AND msg_id = ?`, ref, jid, id)
}

// MarkRead sets every unread inbound message of jid to read and returns their ids.
func (db *DB) MarkRead(jid string) ([]string, error) {
	var ids []string
	err := db.withTx(func(tx *sql.Tx) error {
		rows, err := tx.Query(`
			UPDATE messages SET status = ?
			WHERE conversation_jid = ? AND from_me = 0 AND status < ?
			RETURNING msg_id`, StatusRead, jid, StatusRead)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	return ids, err
}

// MessageCount returns the total number of messages.
func (db *DB) MessageCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

func scanMessage(s scanner) (*Message, error) {
	var m Message
	if err := s.Scan(&m.Seq, &m.ConversationJID, &m.ID, &m.Kind, &m.Body, &m.MediaRef,
		&m.FromMe, &m.SenderName, &m.Status, &m.Timestamp); err != nil {
		return nil, err
	}
	return &m, nil
}

func preview(m *Message) string {
	switch m.Kind {
	case KindSticker:
		return "[figurinha]"
	case KindAudio:
		return "[áudio]"
	}
	r := []rune(m.Body)
	if len(r) > 100 {
		return string(r[:100])
	}
	return m.Body
}
