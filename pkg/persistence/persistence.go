// Package persistence provides SQLite-backed storage for generated parts
// and their version history.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // database driver

	"cadforge/pkg/cadexec"
	"cadforge/pkg/logx"
)

// PartStatus is the lifecycle state of a stored part.
type PartStatus string

const (
	PartStatusDraft     PartStatus = "draft"
	PartStatusGenerated PartStatus = "generated"
	PartStatusError     PartStatus = "error"
)

// Version sources.
const (
	SourceManual          = "manual"
	SourceAutosave        = "autosave"
	SourceAIGenerate      = "ai_generate"
	SourceParameterUpdate = "parameter_update"
	SourceRestore         = "restore"
)

// ErrNotFound is returned when a part or version does not exist.
var ErrNotFound = errors.New("not found")

// Part is a stored design with its current script and geometry.
type Part struct {
	ID           string               `json:"id"`
	SessionID    string               `json:"session_id"`
	Name         string               `json:"name"`
	Code         string               `json:"code,omitempty"`
	Prompt       string               `json:"prompt,omitempty"`
	Parameters   map[string]float64   `json:"parameters,omitempty"`
	BoundingBox  *cadexec.BoundingBox `json:"bounding_box,omitempty"`
	Status       PartStatus           `json:"status"`
	ErrorMessage string               `json:"error_message,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// Version is one historical snapshot of a part.
type Version struct {
	ID           string               `json:"id"`
	PartID       string               `json:"part_id"`
	Code         string               `json:"code,omitempty"`
	Prompt       string               `json:"prompt,omitempty"`
	Parameters   map[string]float64   `json:"parameters,omitempty"`
	BoundingBox  *cadexec.BoundingBox `json:"bounding_box,omitempty"`
	Status       PartStatus           `json:"status"`
	ErrorMessage string               `json:"error_message,omitempty"`
	Source       string               `json:"source"`
	CreatedAt    time.Time            `json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS parts (
	id            TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL,
	name          TEXT NOT NULL,
	code          TEXT,
	prompt        TEXT,
	parameters    TEXT,
	bounding_box  TEXT,
	status        TEXT NOT NULL DEFAULT 'draft',
	error_message TEXT,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_parts_session ON parts(session_id);

CREATE TABLE IF NOT EXISTS part_versions (
	id            TEXT PRIMARY KEY,
	part_id       TEXT NOT NULL REFERENCES parts(id) ON DELETE CASCADE,
	code          TEXT,
	prompt        TEXT,
	parameters    TEXT,
	bounding_box  TEXT,
	status        TEXT NOT NULL,
	error_message TEXT,
	source        TEXT NOT NULL DEFAULT 'manual',
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_versions_part ON part_versions(part_id, created_at);
`

// Store wraps the SQLite connection. SQLite supports a single writer, so
// the pool is pinned to one connection.
type Store struct {
	db     *sql.DB
	logger *logx.Logger
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		path,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	logger := logx.NewLogger("persistence")
	logger.Info("database initialized: %s", path)
	return &Store{db: db, logger: logger}, nil
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SavePart inserts or updates a part. New parts get an id and creation
// timestamp; every save bumps updated_at.
func (s *Store) SavePart(p *Part) error {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.New().String()
		p.CreatedAt = now
	}
	if p.Status == "" {
		p.Status = PartStatusDraft
	}
	p.UpdatedAt = now

	paramsJSON, bboxJSON, err := encodeJSONFields(p.Parameters, p.BoundingBox)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO parts (id, session_id, name, code, prompt, parameters, bounding_box, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			session_id = excluded.session_id,
			name = excluded.name,
			code = excluded.code,
			prompt = excluded.prompt,
			parameters = excluded.parameters,
			bounding_box = excluded.bounding_box,
			status = excluded.status,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at`,
		p.ID, p.SessionID, p.Name, p.Code, p.Prompt, paramsJSON, bboxJSON,
		string(p.Status), p.ErrorMessage, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save part %s: %w", p.ID, err)
	}
	return nil
}

// GetPart loads one part by id.
func (s *Store) GetPart(id string) (*Part, error) {
	row := s.db.QueryRow(`
		SELECT id, session_id, name, code, prompt, parameters, bounding_box, status, error_message, created_at, updated_at
		FROM parts WHERE id = ?`, id)
	return scanPart(row)
}

// ListParts returns all parts of a session, newest first.
func (s *Store) ListParts(sessionID string) ([]*Part, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, name, code, prompt, parameters, bounding_box, status, error_message, created_at, updated_at
		FROM parts WHERE session_id = ? ORDER BY updated_at DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list parts: %w", err)
	}
	defer rows.Close()

	var parts []*Part
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// DeletePart removes a part and (via cascade) its versions.
func (s *Store) DeletePart(id string) error {
	res, err := s.db.Exec(`DELETE FROM parts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete part %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddVersion snapshots the given state into the part's history.
func (s *Store) AddVersion(v *Version) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.Source == "" {
		v.Source = SourceManual
	}
	v.CreatedAt = time.Now().UTC()

	paramsJSON, bboxJSON, err := encodeJSONFields(v.Parameters, v.BoundingBox)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO part_versions (id, part_id, code, prompt, parameters, bounding_box, status, error_message, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.PartID, v.Code, v.Prompt, paramsJSON, bboxJSON,
		string(v.Status), v.ErrorMessage, v.Source, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add version for part %s: %w", v.PartID, err)
	}
	return nil
}

// SnapshotPart records the part's current state as a version.
func (s *Store) SnapshotPart(p *Part, source string) error {
	return s.AddVersion(&Version{
		PartID:       p.ID,
		Code:         p.Code,
		Prompt:       p.Prompt,
		Parameters:   p.Parameters,
		BoundingBox:  p.BoundingBox,
		Status:       p.Status,
		ErrorMessage: p.ErrorMessage,
		Source:       source,
	})
}

// ListVersions returns a part's history, newest first.
func (s *Store) ListVersions(partID string) ([]*Version, error) {
	rows, err := s.db.Query(`
		SELECT id, part_id, code, prompt, parameters, bounding_box, status, error_message, source, created_at
		FROM part_versions WHERE part_id = ? ORDER BY created_at DESC, id DESC`, partID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []*Version
	for rows.Next() {
		v := &Version{}
		var paramsJSON, bboxJSON sql.NullString
		var status string
		if err := rows.Scan(&v.ID, &v.PartID, &v.Code, &v.Prompt, &paramsJSON, &bboxJSON,
			&status, &v.ErrorMessage, &v.Source, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		v.Status = PartStatus(status)
		if err := decodeJSONFields(paramsJSON, bboxJSON, &v.Parameters, &v.BoundingBox); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// RestoreVersion copies a version's state back onto its part. The
// pre-restore state is snapshotted first so the restore itself is
// reversible.
func (s *Store) RestoreVersion(versionID string) (*Part, error) {
	versionRow := s.db.QueryRow(`
		SELECT id, part_id, code, prompt, parameters, bounding_box, status, error_message, source, created_at
		FROM part_versions WHERE id = ?`, versionID)

	v := &Version{}
	var paramsJSON, bboxJSON sql.NullString
	var status string
	err := versionRow.Scan(&v.ID, &v.PartID, &v.Code, &v.Prompt, &paramsJSON, &bboxJSON,
		&status, &v.ErrorMessage, &v.Source, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load version %s: %w", versionID, err)
	}
	v.Status = PartStatus(status)
	if err := decodeJSONFields(paramsJSON, bboxJSON, &v.Parameters, &v.BoundingBox); err != nil {
		return nil, err
	}

	part, err := s.GetPart(v.PartID)
	if err != nil {
		return nil, err
	}
	if err := s.SnapshotPart(part, SourceRestore); err != nil {
		return nil, err
	}

	part.Code = v.Code
	part.Prompt = v.Prompt
	part.Parameters = v.Parameters
	part.BoundingBox = v.BoundingBox
	part.Status = v.Status
	part.ErrorMessage = v.ErrorMessage
	if err := s.SavePart(part); err != nil {
		return nil, err
	}
	return part, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPart(row rowScanner) (*Part, error) {
	p := &Part{}
	var paramsJSON, bboxJSON sql.NullString
	var status string
	err := row.Scan(&p.ID, &p.SessionID, &p.Name, &p.Code, &p.Prompt, &paramsJSON, &bboxJSON,
		&status, &p.ErrorMessage, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan part: %w", err)
	}
	p.Status = PartStatus(status)
	if err := decodeJSONFields(paramsJSON, bboxJSON, &p.Parameters, &p.BoundingBox); err != nil {
		return nil, err
	}
	return p, nil
}

func encodeJSONFields(params map[string]float64, bbox *cadexec.BoundingBox) (sql.NullString, sql.NullString, error) {
	var paramsJSON, bboxJSON sql.NullString
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return paramsJSON, bboxJSON, fmt.Errorf("failed to encode parameters: %w", err)
		}
		paramsJSON = sql.NullString{String: string(data), Valid: true}
	}
	if bbox != nil {
		data, err := json.Marshal(bbox)
		if err != nil {
			return paramsJSON, bboxJSON, fmt.Errorf("failed to encode bounding box: %w", err)
		}
		bboxJSON = sql.NullString{String: string(data), Valid: true}
	}
	return paramsJSON, bboxJSON, nil
}

func decodeJSONFields(paramsJSON, bboxJSON sql.NullString, params *map[string]float64, bbox **cadexec.BoundingBox) error {
	if paramsJSON.Valid && paramsJSON.String != "" {
		if err := json.Unmarshal([]byte(paramsJSON.String), params); err != nil {
			return fmt.Errorf("failed to decode parameters: %w", err)
		}
	}
	if bboxJSON.Valid && bboxJSON.String != "" {
		var b cadexec.BoundingBox
		if err := json.Unmarshal([]byte(bboxJSON.String), &b); err != nil {
			return fmt.Errorf("failed to decode bounding box: %w", err)
		}
		*bbox = &b
	}
	return nil
}
