// Package persistence provides SQLite-based snapshot storage for the
// town. Saves are full replaces; the database always holds exactly one
// consistent snapshot plus the event history it came with.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/tiny-town/internal/agents"
	"github.com/talgya/tiny-town/internal/sim"
)

// DB wraps a SQLite connection for world snapshot persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS characters (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		archetype TEXT NOT NULL,
		personality TEXT NOT NULL,
		avatar TEXT NOT NULL,
		location TEXT NOT NULL,
		home_location TEXT NOT NULL,
		energy REAL NOT NULL,
		stress REAL NOT NULL,
		social_need REAL NOT NULL,
		mood TEXT NOT NULL,
		status_description TEXT NOT NULL,
		status TEXT NOT NULL,
		category TEXT NOT NULL,
		current_action TEXT NOT NULL,
		conversation_id TEXT,
		daily_plan TEXT NOT NULL,
		reflected_on_day INTEGER NOT NULL,
		has_new_message INTEGER NOT NULL,
		new_message_alert TEXT NOT NULL,
		journal_json TEXT NOT NULL,
		relationships_json TEXT NOT NULL,
		inbox_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		location TEXT NOT NULL,
		turn_holder TEXT NOT NULL,
		active INTEGER NOT NULL,
		started_tick INTEGER NOT NULL,
		ended_tick INTEGER NOT NULL,
		participants_json TEXT NOT NULL,
		historical_json TEXT NOT NULL,
		log_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS queued_messages (
		id TEXT PRIMARY KEY,
		sender TEXT NOT NULL,
		recipient TEXT NOT NULL,
		body TEXT NOT NULL,
		sent_tick INTEGER NOT NULL,
		deliver_tick INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_conversations_active ON conversations(active);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveCharacters writes all characters to the database (full replace).
func (db *DB) SaveCharacters(w *sim.World) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM characters"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO characters
		(id, name, role, archetype, personality, avatar, location, home_location,
		 energy, stress, social_need, mood, status_description, status, category,
		 current_action, conversation_id, daily_plan, reflected_on_day,
		 has_new_message, new_message_alert, journal_json, relationships_json, inbox_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range w.Order {
		c := w.Characters[id]
		journalJSON, _ := json.Marshal(c.Journal)
		relsJSON, _ := json.Marshal(c.Relationships)
		inboxJSON, _ := json.Marshal(c.Inbox)

		var convID sql.NullString
		if c.ConversationID != nil {
			convID = sql.NullString{String: *c.ConversationID, Valid: true}
		}

		hasNew := 0
		if c.HasNewMessage {
			hasNew = 1
		}

		_, err := stmt.Exec(
			c.ID, c.Name, c.Role, c.Archetype, c.Personality, c.Avatar,
			c.Location, c.HomeLocation,
			c.Energy, c.Stress, c.SocialNeed,
			c.Mood, c.StatusDescription, c.Status, string(c.Category),
			c.CurrentAction, convID, c.DailyPlan, c.ReflectedOnDay,
			hasNew, c.NewMessageAlert,
			string(journalJSON), string(relsJSON), string(inboxJSON),
		)
		if err != nil {
			return fmt.Errorf("insert character %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// SaveConversations writes all conversations, live and finished, to the
// database (full replace).
func (db *DB) SaveConversations(w *sim.World) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM conversations"); err != nil {
		return err
	}

	for _, conv := range w.Conversations {
		participantsJSON, _ := json.Marshal(conv.Participants)
		historicalJSON, _ := json.Marshal(conv.Historical)
		logJSON, _ := json.Marshal(conv.Log)

		active := 0
		if conv.Active {
			active = 1
		}

		_, err := tx.Exec(`INSERT INTO conversations
			(id, location, turn_holder, active, started_tick, ended_tick,
			 participants_json, historical_json, log_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			conv.ID, conv.Location, conv.TurnHolder, active,
			conv.StartedTick, conv.EndedTick,
			string(participantsJSON), string(historicalJSON), string(logJSON),
		)
		if err != nil {
			return fmt.Errorf("insert conversation %s: %w", conv.ID, err)
		}
	}

	return tx.Commit()
}

// SaveQueue writes the in-flight message queue (full replace).
func (db *DB) SaveQueue(w *sim.World) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM queued_messages"); err != nil {
		return err
	}

	for _, m := range w.Queue {
		_, err := tx.Exec(`INSERT INTO queued_messages
			(id, sender, recipient, body, sent_tick, deliver_tick)
			VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, m.From, m.To, m.Body, m.SentTick, m.DeliverTick,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveEvents replaces the stored event log with the current in-memory
// window.
func (db *DB) SaveEvents(events []sim.Event) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM events"); err != nil {
		return err
	}

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (tick, description, category) VALUES (?, ?, ?)",
			e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// SaveWorldState performs a full snapshot save. Callers must hold w.Mu.
func (db *DB) SaveWorldState(w *sim.World) error {
	slog.Info("saving world state", "characters", len(w.Order), "sim_time", sim.SimTime(w.Tick))

	if err := db.SaveCharacters(w); err != nil {
		return fmt.Errorf("save characters: %w", err)
	}
	if err := db.SaveConversations(w); err != nil {
		return fmt.Errorf("save conversations: %w", err)
	}
	if err := db.SaveQueue(w); err != nil {
		return fmt.Errorf("save queue: %w", err)
	}
	if err := db.SaveEvents(w.Events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveMeta("last_tick", strconv.FormatUint(w.Tick, 10)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("world state saved")
	return nil
}

type characterRow struct {
	ID                string         `db:"id"`
	Name              string         `db:"name"`
	Role              string         `db:"role"`
	Archetype         string         `db:"archetype"`
	Personality       string         `db:"personality"`
	Avatar            string         `db:"avatar"`
	Location          string         `db:"location"`
	HomeLocation      string         `db:"home_location"`
	Energy            float64        `db:"energy"`
	Stress            float64        `db:"stress"`
	SocialNeed        float64        `db:"social_need"`
	Mood              string         `db:"mood"`
	StatusDescription string         `db:"status_description"`
	Status            string         `db:"status"`
	Category          string         `db:"category"`
	CurrentAction     string         `db:"current_action"`
	ConversationID    sql.NullString `db:"conversation_id"`
	DailyPlan         string         `db:"daily_plan"`
	ReflectedOnDay    int            `db:"reflected_on_day"`
	HasNewMessage     int            `db:"has_new_message"`
	NewMessageAlert   string         `db:"new_message_alert"`
	JournalJSON       string         `db:"journal_json"`
	RelationshipsJSON string         `db:"relationships_json"`
	InboxJSON         string         `db:"inbox_json"`
}

type conversationRow struct {
	ID               string `db:"id"`
	Location         string `db:"location"`
	TurnHolder       string `db:"turn_holder"`
	Active           int    `db:"active"`
	StartedTick      uint64 `db:"started_tick"`
	EndedTick        uint64 `db:"ended_tick"`
	ParticipantsJSON string `db:"participants_json"`
	HistoricalJSON   string `db:"historical_json"`
	LogJSON          string `db:"log_json"`
}

type queuedMessageRow struct {
	ID          string `db:"id"`
	Sender      string `db:"sender"`
	Recipient   string `db:"recipient"`
	Body        string `db:"body"`
	SentTick    uint64 `db:"sent_tick"`
	DeliverTick uint64 `db:"deliver_tick"`
}

// LoadWorldState restores a saved snapshot into a freshly seeded world.
// Returns false with no error when the database holds no snapshot yet.
// Characters present in the snapshot but missing from the scenario are
// skipped; scenario characters missing from the snapshot keep their
// seed state. Callers must hold w.Mu.
func (db *DB) LoadWorldState(w *sim.World) (bool, error) {
	lastTick, err := db.GetMeta("last_tick")
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load meta: %w", err)
	}

	tick, err := strconv.ParseUint(lastTick, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse last_tick: %w", err)
	}
	w.Tick = tick

	var charRows []characterRow
	if err := db.conn.Select(&charRows, "SELECT * FROM characters"); err != nil {
		return false, fmt.Errorf("load characters: %w", err)
	}
	for _, row := range charRows {
		c := w.Characters[row.ID]
		if c == nil {
			slog.Warn("snapshot character not in scenario, skipped", "character", row.ID)
			continue
		}
		applyCharacterRow(c, row)
	}

	var convRows []conversationRow
	if err := db.conn.Select(&convRows, "SELECT * FROM conversations"); err != nil {
		return false, fmt.Errorf("load conversations: %w", err)
	}
	for _, row := range convRows {
		conv := &sim.Conversation{
			ID:          row.ID,
			Location:    row.Location,
			TurnHolder:  row.TurnHolder,
			Active:      row.Active != 0,
			StartedTick: row.StartedTick,
			EndedTick:   row.EndedTick,
		}
		json.Unmarshal([]byte(row.ParticipantsJSON), &conv.Participants)
		json.Unmarshal([]byte(row.HistoricalJSON), &conv.Historical)
		json.Unmarshal([]byte(row.LogJSON), &conv.Log)
		w.Conversations[conv.ID] = conv
	}

	var msgRows []queuedMessageRow
	if err := db.conn.Select(&msgRows, "SELECT * FROM queued_messages"); err != nil {
		return false, fmt.Errorf("load queue: %w", err)
	}
	for _, row := range msgRows {
		w.Queue = append(w.Queue, sim.QueuedMessage{
			ID:          row.ID,
			From:        row.Sender,
			To:          row.Recipient,
			Body:        row.Body,
			SentTick:    row.SentTick,
			DeliverTick: row.DeliverTick,
		})
	}

	var events []sim.Event
	if err := db.conn.Select(&events, "SELECT tick, description, category FROM events ORDER BY id"); err != nil {
		return false, fmt.Errorf("load events: %w", err)
	}
	w.Events = events

	slog.Info("world state loaded", "characters", len(charRows),
		"conversations", len(convRows), "sim_time", sim.SimTime(w.Tick))
	return true, nil
}

func applyCharacterRow(c *agents.Character, row characterRow) {
	c.Name = row.Name
	c.Role = row.Role
	c.Archetype = row.Archetype
	c.Personality = row.Personality
	c.Avatar = row.Avatar
	c.Location = row.Location
	c.HomeLocation = row.HomeLocation
	c.Energy = row.Energy
	c.Stress = row.Stress
	c.SocialNeed = row.SocialNeed
	c.Mood = row.Mood
	c.StatusDescription = row.StatusDescription
	c.Status = row.Status
	c.Category = agents.StatusCategory(row.Category)
	c.CurrentAction = row.CurrentAction
	c.DailyPlan = row.DailyPlan
	c.ReflectedOnDay = row.ReflectedOnDay
	c.HasNewMessage = row.HasNewMessage != 0
	c.NewMessageAlert = row.NewMessageAlert

	if row.ConversationID.Valid {
		id := row.ConversationID.String
		c.ConversationID = &id
	} else {
		c.ConversationID = nil
	}

	json.Unmarshal([]byte(row.JournalJSON), &c.Journal)
	json.Unmarshal([]byte(row.RelationshipsJSON), &c.Relationships)
	json.Unmarshal([]byte(row.InboxJSON), &c.Inbox)
}

// RecentEvents returns the most recent N stored events, newest first.
func (db *DB) RecentEvents(limit int) ([]sim.Event, error) {
	var events []sim.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}
