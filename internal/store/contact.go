package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// AddContact inserts a contact. Returns ErrDuplicate if the jid or number exists.
func (db *DB) AddContact(c *Contact) error {
	_, err := db.Exec(`
		INSERT INTO contacts (jid, name, number, avatar_url, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.JID, c.Name, c.Number, c.AvatarURL, time.Now().UnixMilli())
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("contact %s: %w", c.JID, ErrDuplicate)
	}
	return err
}

// GetContact returns a contact by JID, or ErrNotFound.
func (db *DB) GetContact(jid string) (*Contact, error) {
	var c Contact
	err := db.QueryRow(`SELECT jid, name, number, avatar_url FROM contacts WHERE jid = ?`, jid).
		Scan(&c.JID, &c.Name, &c.Number, &c.AvatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ContactExists reports whether a contact with the given jid or number exists.
func (db *DB) ContactExists(jid, number string) (bool, error) {
	var one int
	err := db.QueryRow(`SELECT 1 FROM contacts WHERE jid = ? OR number = ? LIMIT 1`, jid, number).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// ListContacts returns all contacts ordered by name.
func (db *DB) ListContacts() ([]Contact, error) {
	rows, err := db.Query(`SELECT jid, name, number, avatar_url FROM contacts ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.JID, &c.Name, &c.Number, &c.AvatarURL); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteContact removes a contact by JID.
func (db *DB) DeleteContact(jid string) error {
	return db.execOne(`DELETE FROM contacts WHERE jid = ?`, jid)
}
