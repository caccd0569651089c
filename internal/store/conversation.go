package store

import (
	"database/sql"
	"errors"
	"time"
)

const conversationColumns = `
	c.jid,
	COALESCE(NULLIF(ct.name,''), NULLIF(c.name,''), c.jid) AS display_name,
	c.avatar_url, c.kind, c.workflow_status, c.last_message_at, c.last_message_preview, c.created_at,
	(SELECT COUNT(*) FROM messages m WHERE m.conversation_jid = c.jid AND m.from_me = 0 AND m.status < 4) AS unread`

// EnsureConversation returns the conversation for jid, creating it with the
// given name and kind (workflow status "queue") when absent.
func (db *DB) EnsureConversation(jid, name string, kind PeerKind) (*Conversation, bool, error) {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		INSERT INTO conversations (jid, name, kind, workflow_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(jid) DO NOTHING`,
		jid, name, kind, DefaultWorkflowStatus, now, now)
	if err != nil {
		return nil, false, err
	}
	n, _ := res.RowsAffected()
	c, err := db.GetConversation(jid)
	if err != nil {
		return nil, false, err
	}
	return c, n == 1, nil
}

// GetConversation returns a single conversation by JID, or ErrNotFound.
func (db *DB) GetConversation(jid string) (*Conversation, error) {
	row := db.QueryRow(`
		SELECT `+conversationColumns+`
		FROM conversations c
		LEFT JOIN contacts ct ON c.jid = ct.jid
		WHERE c.jid = ?`, jid)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// ListConversations returns conversations ordered by latest activity.
// Names resolve as contact name -> conversation name -> jid.
func (db *DB) ListConversations(limit, offset int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT `+conversationColumns+`
		FROM conversations c
		LEFT JOIN contacts ct ON c.jid = ct.jid
		ORDER BY c.last_message_at DESC, c.created_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// SetWorkflowStatus updates the operator-assigned status of a conversation.
func (db *DB) SetWorkflowStatus(jid, status string) error {
	return db.execOne(`UPDATE conversations SET workflow_status = ?, updated_at = ? WHERE jid = ?`,
		status, time.Now().UnixMilli(), jid)
}

// SetAvatar stores the avatar URL of a conversation.
func (db *DB) SetAvatar(jid, url string) error {
	return db.execOne(`UPDATE conversations SET avatar_url = ?, updated_at = ? WHERE jid = ?`,
		url, time.Now().UnixMilli(), jid)
}

// DeleteConversation removes a conversation and its messages.
func (db *DB) DeleteConversation(jid string) error {
	return db.execOne(`DELETE FROM conversations WHERE jid = ?`, jid)
}

// UnreadCount returns inbound messages of jid not yet read.
func (db *DB) UnreadCount(jid string) (int, error) {
	var n int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM messages
		WHERE conversation_jid = ? AND from_me = 0 AND status < ?`, jid, StatusRead).Scan(&n)
	return n, err
}

// UnreadTotal returns unread inbound messages across all conversations.
func (db *DB) UnreadTotal() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE from_me = 0 AND status < ?`, StatusRead).Scan(&n)
	return n, err
}

// ConversationCount returns the total number of conversations.
func (db *DB) ConversationCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM conversations`).Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(s scanner) (*Conversation, error) {
	var c Conversation
	if err := s.Scan(&c.JID, &c.Name, &c.AvatarURL, &c.Kind, &c.WorkflowStatus,
		&c.LastMessageAt, &c.LastMessagePreview, &c.CreatedAt, &c.UnreadCount); err != nil {
		return nil, err
	}
	return &c, nil
}

// execOne runs a statement that must touch exactly one row.
func (db *DB) execOne(query string, args ...any) error {
	res, err := db.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
