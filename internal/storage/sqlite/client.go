package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/influencer-scout/backend/internal/storage/models"
	"github.com/influencer-scout/backend/pkg/logger"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateLead = errors.New("lead already exists for author")
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping() error {
	return c.db.Ping()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS search_history (
		id TEXT PRIMARY KEY,
		keyword TEXT NOT NULL,
		results TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		result_count INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_search_history_timestamp ON search_history(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_search_history_keyword ON search_history(keyword);

	CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		author_unique_id TEXT NOT NULL UNIQUE,
		video TEXT NOT NULL,
		state TEXT NOT NULL,
		notes TEXT,
		added_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_leads_state ON leads(state);
	CREATE INDEX IF NOT EXISTS idx_leads_added_at ON leads(added_at DESC);

	CREATE TABLE IF NOT EXISTS influencer_meta (
		influencer_unique_id TEXT PRIMARY KEY,
		summary_notes TEXT,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_influencer_meta_updated_at ON influencer_meta(updated_at DESC);

	CREATE TABLE IF NOT EXISTS influencer_notes (
		id TEXT PRIMARY KEY,
		influencer_unique_id TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_influencer_notes_unique_id ON influencer_notes(influencer_unique_id);
	CREATE INDEX IF NOT EXISTS idx_influencer_notes_created_at ON influencer_notes(created_at DESC);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// InsertLead inserts a new lead. Inserting a second lead for the same author
// unique-id returns ErrDuplicateLead and leaves the existing row untouched.
func (c *Client) InsertLead(lead *models.Lead) error {
	var exists int
	err := c.db.QueryRow(
		`SELECT COUNT(1) FROM leads WHERE author_unique_id = ?`,
		lead.Video.Author.UniqueID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check existing lead: %w", err)
	}
	if exists > 0 {
		return ErrDuplicateLead
	}

	videoJSON, err := json.Marshal(lead.Video)
	if err != nil {
		return fmt.Errorf("failed to marshal video snapshot: %w", err)
	}

	_, err = c.db.Exec(
		`INSERT INTO leads (id, author_unique_id, video, state, notes, added_at) VALUES (?, ?, ?, ?, ?, ?)`,
		lead.ID,
		lead.Video.Author.UniqueID,
		string(videoJSON),
		string(lead.State),
		lead.Notes,
		lead.AddedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}

	logger.Debug("Lead inserted",
		zap.String("lead_id", lead.ID),
		zap.String("author", lead.Video.Author.UniqueID),
	)
	return nil
}

// DeleteLead removes a lead by id. Deleting a nonexistent id is a no-op.
func (c *Client) DeleteLead(id string) error {
	_, err := c.db.Exec(`DELETE FROM leads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	return nil
}

func (c *Client) UpdateLeadState(id string, state models.LeadState) error {
	res, err := c.db.Exec(`UPDATE leads SET state = ? WHERE id = ?`, string(state), id)
	if err != nil {
		return fmt.Errorf("failed to update lead state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Client) UpdateLeadNotes(id string, notes string) error {
	res, err := c.db.Exec(`UPDATE leads SET notes = ? WHERE id = ?`, notes, id)
	if err != nil {
		return fmt.Errorf("failed to update lead notes: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListLeads returns all leads ordered by added_at descending, optionally
// restricted to one pipeline state.
func (c *Client) ListLeads(state models.LeadState) ([]models.Lead, error) {
	query := `SELECT id, video, state, notes, added_at FROM leads`
	args := []interface{}{}
	if state != "" {
		query += ` WHERE state = ?`
		args = append(args, string(state))
	}
	query += ` ORDER BY added_at DESC`

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		var l models.Lead
		var videoJSON, state string
		var notes sql.NullString
		var addedAt int64

		err := rows.Scan(&l.ID, &videoJSON, &state, &notes, &addedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if err := json.Unmarshal([]byte(videoJSON), &l.Video); err != nil {
			return nil, fmt.Errorf("failed to unmarshal video snapshot: %w", err)
		}
		l.State = models.LeadState(state)
		l.Notes = notes.String
		l.AddedAt = time.UnixMilli(addedAt)
		leads = append(leads, l)
	}

	return leads, rows.Err()
}

// GetLeadByAuthor returns the lead tracking the given author unique-id, so
// callers can offer "view existing" on a duplicate insert.
func (c *Client) GetLeadByAuthor(authorUniqueID string) (*models.Lead, error) {
	var l models.Lead
	var videoJSON, state string
	var notes sql.NullString
	var addedAt int64

	err := c.db.QueryRow(
		`SELECT id, video, state, notes, added_at FROM leads WHERE author_unique_id = ?`,
		authorUniqueID,
	).Scan(&l.ID, &videoJSON, &state, &notes, &addedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}

	if err := json.Unmarshal([]byte(videoJSON), &l.Video); err != nil {
		return nil, fmt.Errorf("failed to unmarshal video snapshot: %w", err)
	}
	l.State = models.LeadState(state)
	l.Notes = notes.String
	l.AddedAt = time.UnixMilli(addedAt)
	return &l, nil
}

func (c *Client) InsertSearchRecord(rec *models.SearchRecord) error {
	resultsJSON, err := json.Marshal(rec.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO search_history (id, keyword, results, timestamp, result_count) VALUES (?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Keyword,
		string(resultsJSON),
		rec.Timestamp.UnixMilli(),
		rec.ResultCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert search record: %w", err)
	}

	logger.Debug("Search record inserted",
		zap.String("id", rec.ID),
		zap.String("keyword", rec.Keyword),
		zap.Int("result_count", rec.ResultCount),
	)
	return nil
}

func (c *Client) ListSearchRecords(limit int) ([]models.SearchRecord, error) {
	rows, err := c.db.Query(
		`SELECT id, keyword, results, timestamp, result_count FROM search_history ORDER BY timestamp DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list search history: %w", err)
	}
	defer rows.Close()

	var records []models.SearchRecord
	for rows.Next() {
		rec, err := scanSearchRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

func (c *Client) GetSearchRecord(id string) (*models.SearchRecord, error) {
	row := c.db.QueryRow(
		`SELECT id, keyword, results, timestamp, result_count FROM search_history WHERE id = ?`,
		id,
	)
	rec, err := scanSearchRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func scanSearchRecord(scan func(...interface{}) error) (*models.SearchRecord, error) {
	var rec models.SearchRecord
	var resultsJSON string
	var timestamp int64

	err := scan(&rec.ID, &rec.Keyword, &resultsJSON, &timestamp, &rec.ResultCount)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan search record: %w", err)
	}

	if err := json.Unmarshal([]byte(resultsJSON), &rec.Results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal results: %w", err)
	}
	rec.Timestamp = time.UnixMilli(timestamp)
	return &rec, nil
}

func (c *Client) DeleteSearchRecord(id string) error {
	_, err := c.db.Exec(`DELETE FROM search_history WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete search record: %w", err)
	}
	return nil
}

func (c *Client) ClearSearchRecords() error {
	_, err := c.db.Exec(`DELETE FROM search_history`)
	if err != nil {
		return fmt.Errorf("failed to clear search history: %w", err)
	}
	return nil
}

// GetSummaryNote returns the influencer's summary note, or ErrNotFound when
// no note has been written yet.
func (c *Client) GetSummaryNote(influencerUniqueID string) (*models.SummaryNote, error) {
	var note models.SummaryNote
	var text sql.NullString
	var updatedAt int64

	err := c.db.QueryRow(
		`SELECT influencer_unique_id, summary_notes, updated_at FROM influencer_meta WHERE influencer_unique_id = ?`,
		influencerUniqueID,
	).Scan(&note.InfluencerUniqueID, &text, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary note: %w", err)
	}

	note.Text = text.String
	note.UpdatedAt = time.UnixMilli(updatedAt)
	return &note, nil
}

// UpsertSummaryNote fully overwrites the influencer's summary note.
func (c *Client) UpsertSummaryNote(influencerUniqueID, text string) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO influencer_meta (influencer_unique_id, summary_notes, updated_at) VALUES (?, ?, ?)`,
		influencerUniqueID,
		text,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert summary note: %w", err)
	}
	return nil
}

func (c *Client) ListTimelineNotes(influencerUniqueID string, limit int) ([]models.TimelineNote, error) {
	rows, err := c.db.Query(
		`SELECT id, influencer_unique_id, content, created_at
		 FROM influencer_notes
		 WHERE influencer_unique_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		influencerUniqueID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list timeline notes: %w", err)
	}
	defer rows.Close()

	var notes []models.TimelineNote
	for rows.Next() {
		var n models.TimelineNote
		var createdAt int64

		err := rows.Scan(&n.ID, &n.InfluencerUniqueID, &n.Content, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		n.CreatedAt = time.UnixMilli(createdAt)
		notes = append(notes, n)
	}

	return notes, rows.Err()
}

func (c *Client) InsertTimelineNote(note *models.TimelineNote) error {
	_, err := c.db.Exec(
		`INSERT INTO influencer_notes (id, influencer_unique_id, content, created_at) VALUES (?, ?, ?, ?)`,
		note.ID,
		note.InfluencerUniqueID,
		note.Content,
		note.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert timeline note: %w", err)
	}
	return nil
}

// DeleteTimelineNote deletes a note scoped by both the influencer unique-id
// and the note id, so a note id from one influencer can never delete another
// influencer's note. Deleting a missing note is a no-op.
func (c *Client) DeleteTimelineNote(influencerUniqueID, noteID string) error {
	_, err := c.db.Exec(
		`DELETE FROM influencer_notes WHERE id = ? AND influencer_unique_id = ?`,
		noteID,
		influencerUniqueID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete timeline note: %w", err)
	}
	return nil
}
