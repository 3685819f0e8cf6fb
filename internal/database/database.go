package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vincentbai/journeytrace/internal/models"
	_ "modernc.org/sqlite" // CGO-free SQLite
)

var (
	// ErrNotFound is returned when a session has nothing stored.
	ErrNotFound = errors.New("not found")
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("invalid")
)

type Database struct {
	db *sql.DB
}

func NewDatabase(databasePath string) (*Database, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", databasePath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS journey_events(
	  id           INTEGER PRIMARY KEY,
	  session_uuid TEXT    NOT NULL,
	  received_utc INTEGER NOT NULL,
	  ts           REAL    NOT NULL,
	  kind         TEXT    NOT NULL CHECK (kind IN ('category','funnel','outcome','superOutcome')),
	  count        INTEGER NOT NULL CHECK (count > 0),
	  data_json    TEXT    NOT NULL CHECK (json_valid(data_json))
	);
	CREATE INDEX IF NOT EXISTS idx_journey_events_session ON journey_events(session_uuid);
	CREATE INDEX IF NOT EXISTS idx_journey_events_ts      ON journey_events(ts);
	CREATE INDEX IF NOT EXISTS idx_journey_events_kind    ON journey_events(kind);

	CREATE TABLE IF NOT EXISTS heartbeats(
	  id            INTEGER PRIMARY KEY,
	  session_uuid  TEXT NOT NULL,
	  ts            REAL NOT NULL,
	  platform_json TEXT CHECK (platform_json IS NULL OR json_valid(platform_json)),
	  tags_json     TEXT CHECK (tags_json IS NULL OR json_valid(tags_json))
	);
	CREATE INDEX IF NOT EXISTS idx_heartbeats_session ON heartbeats(session_uuid);

	CREATE TABLE IF NOT EXISTS persons(
	  session_uuid TEXT PRIMARY KEY,
	  ts           REAL NOT NULL,
	  person_json  TEXT NOT NULL CHECK (json_valid(person_json))
	);
	`)
	if err != nil {
		return fmt.Errorf("failed to create database tables: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// ValidateParameters checks the envelope every collector endpoint shares.
func (d *Database) ValidateParameters(params models.Parameters) error {
	if params.UUID == "" {
		return fmt.Errorf("uuid cannot be empty")
	}
	if params.Timestamp <= 0 {
		return fmt.Errorf("timestamp must be positive")
	}
	return nil
}

func (d *Database) ValidateEvent(event *models.Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be null")
	}
	if eventKind(event) == "" {
		return fmt.Errorf("event needs one of category, funnel, outcome or superOutcome")
	}
	if ts, ok := event.Float(models.KeyTimestamp); !ok || ts <= 0 {
		return fmt.Errorf("timestamp must be positive")
	}
	if event.Count() <= 0 {
		return fmt.Errorf("count must be positive")
	}
	return nil
}

func eventKind(event *models.Event) string {
	for _, key := range []string{models.KeyCategory, models.KeyFunnel, models.KeySuperOutcome, models.KeyOutcome} {
		if event.Has(key) {
			return key
		}
	}
	return ""
}

// InsertJourney stores the journey of params and returns how many events
// were written.
func (d *Database) InsertJourney(params models.Parameters) (int, error) {
	if err := d.ValidateParameters(params); err != nil {
		return 0, fmt.Errorf("%w parameters: %v", ErrInvalid, err)
	}

	transaction, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := d.insertEvents(transaction, params); err != nil {
		_ = transaction.Rollback()
		return 0, err
	}
	if err := transaction.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(params.Journey), nil
}

// InsertHeartbeat stores the journey of params along with its platform and
// tags.
func (d *Database) InsertHeartbeat(params models.Parameters) (int, error) {
	if err := d.ValidateParameters(params); err != nil {
		return 0, fmt.Errorf("%w parameters: %v", ErrInvalid, err)
	}

	var platformJSON, tagsJSON sql.NullString
	if params.Platform != nil {
		data, err := json.Marshal(params.Platform)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal platform: %w", err)
		}
		platformJSON = sql.NullString{String: string(data), Valid: true}
	}
	if len(params.Tags) > 0 {
		data, err := json.Marshal(params.Tags)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal tags: %w", err)
		}
		tagsJSON = sql.NullString{String: string(data), Valid: true}
	}

	transaction, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := d.insertEvents(transaction, params); err != nil {
		_ = transaction.Rollback()
		return 0, err
	}
	if _, err := transaction.Exec(`INSERT INTO heartbeats(session_uuid, ts, platform_json, tags_json) VALUES(?,?,json(?),json(?))`,
		params.UUID, params.Timestamp, platformJSON, tagsJSON); err != nil {
		_ = transaction.Rollback()
		return 0, fmt.Errorf("failed to insert heartbeat: %w", err)
	}
	if err := transaction.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(params.Journey), nil
}

func (d *Database) insertEvents(transaction *sql.Tx, params models.Parameters) error {
	if len(params.Journey) == 0 {
		return nil
	}
	statement, err := transaction.Prepare(`INSERT INTO journey_events(session_uuid, received_utc, ts, kind, count, data_json) VALUES(?,?,?,?,?,json(?))`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer statement.Close()

	received := time.Now().UTC().UnixMilli()
	for _, event := range params.Journey {
		if err := d.ValidateEvent(event); err != nil {
			return fmt.Errorf("%w event: %v", ErrInvalid, err)
		}
		ts, _ := event.Float(models.KeyTimestamp)

		jsonData, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event data: %w", err)
		}
		if _, err := statement.Exec(params.UUID, received, ts, eventKind(event), event.Count(), string(jsonData)); err != nil {
			return fmt.Errorf("failed to execute statement: %w", err)
		}
	}
	return nil
}

// UpsertPerson attaches the person of params to its session, replacing
// any earlier one.
func (d *Database) UpsertPerson(params models.Parameters) error {
	if err := d.ValidateParameters(params); err != nil {
		return fmt.Errorf("%w parameters: %v", ErrInvalid, err)
	}
	if params.Person == nil {
		return fmt.Errorf("%w parameters: person is required", ErrInvalid)
	}
	data, err := json.Marshal(params.Person)
	if err != nil {
		return fmt.Errorf("failed to marshal person: %w", err)
	}
	_, err = d.db.Exec(`
	INSERT INTO persons(session_uuid, ts, person_json) VALUES(?,?,json(?))
	ON CONFLICT(session_uuid) DO UPDATE SET ts = excluded.ts, person_json = excluded.person_json`,
		params.UUID, params.Timestamp, string(data))
	if err != nil {
		return fmt.Errorf("failed to upsert person: %w", err)
	}
	return nil
}

// Session is everything stored for one session id.
type Session struct {
	UUID     string           `json:"uuid"`
	Journey  []*models.Event  `json:"journey"`
	Person   models.Person    `json:"person,omitzero"`
	Platform *models.Platform `json:"platform,omitempty"`
	Tags     []string         `json:"tags,omitempty"`
}

// Session loads the journey, person and latest heartbeat context of a
// session. It returns ErrNotFound when nothing was stored for it.
func (d *Database) Session(sessionUUID string) (*Session, error) {
	session := &Session{UUID: sessionUUID, Journey: []*models.Event{}}
	found := false

	rows, err := d.db.Query(`SELECT data_json FROM journey_events WHERE session_uuid = ? ORDER BY id`, sessionUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event := &models.Event{}
		if err := json.Unmarshal([]byte(data), event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		session.Journey = append(session.Journey, event)
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	var personJSON string
	err = d.db.QueryRow(`SELECT person_json FROM persons WHERE session_uuid = ?`, sessionUUID).Scan(&personJSON)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to query person: %w", err)
	default:
		if err := json.Unmarshal([]byte(personJSON), &session.Person); err != nil {
			return nil, fmt.Errorf("failed to unmarshal person: %w", err)
		}
		found = true
	}

	var platformJSON, tagsJSON sql.NullString
	err = d.db.QueryRow(`SELECT platform_json, tags_json FROM heartbeats WHERE session_uuid = ? ORDER BY id DESC LIMIT 1`, sessionUUID).
		Scan(&platformJSON, &tagsJSON)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to query heartbeat: %w", err)
	default:
		found = true
		if platformJSON.Valid {
			session.Platform = &models.Platform{}
			if err := json.Unmarshal([]byte(platformJSON.String), session.Platform); err != nil {
				return nil, fmt.Errorf("failed to unmarshal platform: %w", err)
			}
		}
		if tagsJSON.Valid {
			if err := json.Unmarshal([]byte(tagsJSON.String), &session.Tags); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
			}
		}
	}

	if !found {
		return nil, ErrNotFound
	}
	return session, nil
}
