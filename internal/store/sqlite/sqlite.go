package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mkravets/roomcast-server/internal/store"
	"github.com/mkravets/roomcast-server/internal/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	avatar        TEXT NOT NULL,
	is_online     BOOLEAN NOT NULL DEFAULT 0,
	bio           TEXT,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at    DATETIME
);

CREATE TABLE IF NOT EXISTS rooms (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	is_private    BOOLEAN NOT NULL DEFAULT 0,
	password_hash TEXT,
	created_by    TEXT NOT NULL,
	description   TEXT,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at    DATETIME,
	FOREIGN KEY (created_by) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS messages (
	id            TEXT PRIMARY KEY,
	room_id       TEXT NOT NULL,
	sender_id     TEXT NOT NULL,
	sender_name   TEXT NOT NULL,
	sender_avatar TEXT NOT NULL,
	content       TEXT NOT NULL,
	type          TEXT NOT NULL DEFAULT 'text',
	timestamp     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (room_id) REFERENCES rooms(id),
	FOREIGN KEY (sender_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS user_relationships (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	target_id  TEXT NOT NULL,
	type       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (user_id, target_id, type),
	FOREIGN KEY (user_id) REFERENCES users(id),
	FOREIGN KEY (target_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);
CREATE INDEX IF NOT EXISTS idx_relationships_user ON user_relationships(user_id);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function after the
// schema is applied. Useful for tests to seed fixtures.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}

	if setup != nil {
		if err := setup(s.db); err != nil {
			s.db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, name, email, passwordHash, avatar string) (*store.User, error) {
	id := utils.NewID()
	query := `
		INSERT INTO users (id, name, email, password_hash, avatar, is_online, created_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, name, email, passwordHash, avatar, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, userSelect+` WHERE id = ?`, id))
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, userSelect+` WHERE email = ?`, email))
}

const userSelect = `
	SELECT id, name, email, password_hash, avatar, is_online, bio, created_at, updated_at
	FROM users
`

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var u store.User
	var updatedAt sql.NullTime
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Avatar, &u.IsOnline, &u.Bio, &u.CreatedAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	if updatedAt.Valid {
		u.UpdatedAt = &updatedAt.Time
	}
	return &u, nil
}

// ListUsers lists all users.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*store.User, error) {
	return s.queryUsers(ctx, userSelect+` ORDER BY created_at`)
}

// ListOnlineUsers lists users currently marked online.
func (s *SQLiteStore) ListOnlineUsers(ctx context.Context) ([]*store.User, error) {
	return s.queryUsers(ctx, userSelect+` WHERE is_online = 1 ORDER BY created_at`)
}

func (s *SQLiteStore) queryUsers(ctx context.Context, query string, args ...any) ([]*store.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]*store.User, 0)
	for rows.Next() {
		var u store.User
		var updatedAt sql.NullTime
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Avatar, &u.IsOnline, &u.Bio, &u.CreatedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if updatedAt.Valid {
			u.UpdatedAt = &updatedAt.Time
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// UpdateUser persists changes to name, avatar, bio, and password hash.
func (s *SQLiteStore) UpdateUser(ctx context.Context, u *store.User) error {
	query := `
		UPDATE users
		SET name = ?, avatar = ?, bio = ?, password_hash = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query, u.Name, u.Avatar, u.Bio, u.PasswordHash, time.Now().UTC(), u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireAffected(res)
}

// SetOnline updates a user's online flag.
func (s *SQLiteStore) SetOnline(ctx context.Context, id string, online bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET is_online = ? WHERE id = ?`, online, id)
	if err != nil {
		return fmt.Errorf("set online: %w", err)
	}
	return requireAffected(res)
}

// ==== RoomStore implementation ====

// CreateRoom creates a new room.
func (s *SQLiteStore) CreateRoom(ctx context.Context, name string, isPrivate bool, passwordHash *string, createdBy string, description *string) (*store.Room, error) {
	id := utils.NewID()
	query := `
		INSERT INTO rooms (id, name, is_private, password_hash, created_by, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, name, isPrivate, passwordHash, createdBy, description, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}

	return s.GetRoom(ctx, id)
}

const roomSelect = `
	SELECT id, name, is_private, password_hash, created_by, description, created_at, updated_at
	FROM rooms
`

// GetRoom retrieves a room by ID.
func (s *SQLiteStore) GetRoom(ctx context.Context, id string) (*store.Room, error) {
	var r store.Room
	var updatedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, roomSelect+` WHERE id = ?`, id).Scan(
		&r.ID, &r.Name, &r.IsPrivate, &r.PasswordHash, &r.CreatedBy, &r.Description, &r.CreatedAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	if updatedAt.Valid {
		r.UpdatedAt = &updatedAt.Time
	}
	return &r, nil
}

// ListRooms lists all rooms.
func (s *SQLiteStore) ListRooms(ctx context.Context) ([]*store.Room, error) {
	rows, err := s.db.QueryContext(ctx, roomSelect+` ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	rooms := make([]*store.Room, 0)
	for rows.Next() {
		var r store.Room
		var updatedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.Name, &r.IsPrivate, &r.PasswordHash, &r.CreatedBy, &r.Description, &r.CreatedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		if updatedAt.Valid {
			r.UpdatedAt = &updatedAt.Time
		}
		rooms = append(rooms, &r)
	}
	return rooms, rows.Err()
}

// RoomExists reports whether a room with the given ID exists.
func (s *SQLiteStore) RoomExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM rooms WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query room exists: %w", err)
	}
	return true, nil
}

// UpdateRoom persists changes to name, description, and password hash.
func (s *SQLiteStore) UpdateRoom(ctx context.Context, r *store.Room) error {
	query := `
		UPDATE rooms
		SET name = ?, description = ?, password_hash = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query, r.Name, r.Description, r.PasswordHash, time.Now().UTC(), r.ID)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	return requireAffected(res)
}

// DeleteRoom removes a room and its messages.
func (s *SQLiteStore) DeleteRoom(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE room_id = ?`, id); err != nil {
		return fmt.Errorf("delete room messages: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	return tx.Commit()
}

// ==== MessageStore implementation ====

// SaveMessage persists a message, assigning its ID and timestamp.
func (s *SQLiteStore) SaveMessage(ctx context.Context, m *store.Message) error {
	if m.ID == "" {
		m.ID = utils.NewID()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	if m.Type == "" {
		m.Type = store.MessageTypeText
	}

	query := `
		INSERT INTO messages (id, room_id, sender_id, sender_name, sender_avatar, content, type, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.RoomID, m.SenderID, m.SenderName, m.SenderAvatar, m.Content, string(m.Type), m.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

const messageSelect = `
	SELECT id, room_id, sender_id, sender_name, sender_avatar, content, type, timestamp
	FROM messages
`

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*store.Message, error) {
	var m store.Message
	err := s.db.QueryRowContext(ctx, messageSelect+` WHERE id = ?`, id).Scan(
		&m.ID, &m.RoomID, &m.SenderID, &m.SenderName, &m.SenderAvatar, &m.Content, &m.Type, &m.Timestamp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query message: %w", err)
	}
	return &m, nil
}

// ListRoomMessages returns a room's messages ascending, excluding the given senders.
func (s *SQLiteStore) ListRoomMessages(ctx context.Context, roomID string, excludeSenders []string) ([]*store.Message, error) {
	query := messageSelect + ` WHERE room_id = ?`
	args := []any{roomID}
	if clause, more := notInClause("sender_id", excludeSenders); clause != "" {
		query += ` AND ` + clause
		args = append(args, more...)
	}
	query += ` ORDER BY timestamp ASC`

	return s.queryMessages(ctx, query, args...)
}

// MessagesSince returns messages newer than the given instant, ascending, capped at limit.
func (s *SQLiteStore) MessagesSince(ctx context.Context, after time.Time, limit int) ([]*store.Message, error) {
	query := messageSelect + ` WHERE timestamp > ? ORDER BY timestamp ASC LIMIT ?`
	return s.queryMessages(ctx, query, after, limit)
}

// SearchMessages finds text messages containing query, newest first.
func (s *SQLiteStore) SearchMessages(ctx context.Context, query string, excludeSenders []string, limit int) ([]*store.Message, error) {
	q := messageSelect + ` WHERE type = 'text' AND lower(content) LIKE ?`
	args := []any{"%" + strings.ToLower(query) + "%"}
	if clause, more := notInClause("sender_id", excludeSenders); clause != "" {
		q += ` AND ` + clause
		args = append(args, more...)
	}
	q += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	return s.queryMessages(ctx, q, args...)
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.SenderName, &m.SenderAvatar, &m.Content, &m.Type, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

// ==== RelationshipStore implementation ====

// SetRelationship records a relationship, replacing the opposite type for the pair.
func (s *SQLiteStore) SetRelationship(ctx context.Context, userID, targetID string, typ store.RelationshipType) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// favorite and blocked are mutually exclusive for a pair
	opposite := store.RelationshipBlocked
	if typ == store.RelationshipBlocked {
		opposite = store.RelationshipFavorite
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_relationships WHERE user_id = ? AND target_id = ? AND type = ?`,
		userID, targetID, string(opposite),
	); err != nil {
		return fmt.Errorf("delete opposite relationship: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_relationships (id, user_id, target_id, type, created_at) VALUES (?, ?, ?, ?, ?)`,
		utils.NewID(), userID, targetID, string(typ), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("insert relationship: %w", err)
	}

	return tx.Commit()
}

// DeleteRelationship removes a relationship, reporting whether one existed.
func (s *SQLiteStore) DeleteRelationship(ctx context.Context, userID, targetID string, typ store.RelationshipType) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM user_relationships WHERE user_id = ? AND target_id = ? AND type = ?`,
		userID, targetID, string(typ),
	)
	if err != nil {
		return false, fmt.Errorf("delete relationship: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ListRelationships lists all relationships originating from a user.
func (s *SQLiteStore) ListRelationships(ctx context.Context, userID string) ([]*store.Relationship, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, target_id, type, created_at FROM user_relationships WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	defer rows.Close()

	rels := make([]*store.Relationship, 0)
	for rows.Next() {
		var r store.Relationship
		if err := rows.Scan(&r.ID, &r.UserID, &r.TargetID, &r.Type, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		rels = append(rels, &r)
	}
	return rels, rows.Err()
}

// ListBlockedIDs lists IDs of users blocked by the given user.
func (s *SQLiteStore) ListBlockedIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT target_id FROM user_relationships WHERE user_id = ? AND type = 'blocked'`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query blocked ids: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan blocked id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func notInClause(column string, values []string) (string, []any) {
	if len(values) == 0 {
		return "", nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return column + ` NOT IN (` + placeholders + `)`, args
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
