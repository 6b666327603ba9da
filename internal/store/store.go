// Package store provides SQLite-backed persistence for shelfcam.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fentz26/shelfcam/internal/models"
)

// ErrNoPendingImage is returned when a product is registered while the
// pending image slot is empty.
var ErrNoPendingImage = errors.New("no pending image")

// Store provides access to the shelfcam SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price TEXT NOT NULL,
		description TEXT NOT NULL,
		user_name TEXT NOT NULL,
		image_uri TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pending_image (
		slot INTEGER PRIMARY KEY CHECK (slot = 1),
		locator TEXT NOT NULL,
		kind TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		session_id TEXT,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at);
	CREATE INDEX IF NOT EXISTS idx_decisions_session_id ON decisions(session_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Product Operations ---

// AddProduct inserts a product with an explicit image.
func (s *Store) AddProduct(name, price, description, user string, image models.Locator) (*models.Product, error) {
	p := newProduct(name, price, description, user, image)
	if err := insertProduct(s.db, p); err != nil {
		return nil, err
	}
	return p, nil
}

// RegisterProductTx stores a product using the pending image and clears the
// slot in a single transaction. It returns ErrNoPendingImage if the slot is
// empty; on any error neither change is persisted.
func (s *Store) RegisterProductTx(name, price, description, user string) (*models.Product, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locator string
	err = tx.QueryRow(`SELECT locator FROM pending_image WHERE slot = 1`).Scan(&locator)
	if err == sql.ErrNoRows {
		return nil, ErrNoPendingImage
	}
	if err != nil {
		return nil, fmt.Errorf("query pending image: %w", err)
	}

	p := newProduct(name, price, description, user, models.Locator(locator))
	if err := insertProduct(tx, p); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`DELETE FROM pending_image WHERE slot = 1`); err != nil {
		return nil, fmt.Errorf("clear pending image: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return p, nil
}

func newProduct(name, price, description, user string, image models.Locator) *models.Product {
	return &models.Product{
		ID:          uuid.New().String(),
		Name:        name,
		Price:       price,
		Description: description,
		User:        user,
		ImageURI:    image,
		CreatedAt:   time.Now().UTC(),
	}
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func insertProduct(db execer, p *models.Product) error {
	_, err := db.Exec(
		`INSERT INTO products (id, name, price, description, user_name, image_uri, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Price, p.Description, p.User, string(p.ImageURI), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetProduct retrieves a product by ID.
func (s *Store) GetProduct(id string) (*models.Product, error) {
	p := &models.Product{}
	var image string
	err := s.db.QueryRow(
		`SELECT id, name, price, description, user_name, image_uri, created_at FROM products WHERE id = ?`,
		id,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Description, &p.User, &image, &p.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	p.ImageURI = models.Locator(image)
	return p, nil
}

// ListProducts returns products newest first. A limit <= 0 returns all.
func (s *Store) ListProducts(limit int) ([]models.Product, error) {
	query := `SELECT id, name, price, description, user_name, image_uri, created_at FROM products ORDER BY created_at DESC, rowid DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		var image string
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Description, &p.User, &image, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.ImageURI = models.Locator(image)
		products = append(products, p)
	}
	return products, rows.Err()
}

// --- Pending Image Operations ---

// SetPendingImage replaces the pending image slot.
func (s *Store) SetPendingImage(loc models.Locator, kind models.ArtifactKind) (*models.PendingImage, error) {
	img := &models.PendingImage{Locator: loc, Kind: kind, UpdatedAt: time.Now().UTC()}
	_, err := s.db.Exec(
		`INSERT INTO pending_image (slot, locator, kind, updated_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET locator = excluded.locator, kind = excluded.kind, updated_at = excluded.updated_at`,
		string(img.Locator), string(img.Kind), img.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("set pending image: %w", err)
	}
	return img, nil
}

// PendingImage returns the pending image, or nil if the slot is empty.
func (s *Store) PendingImage() (*models.PendingImage, error) {
	img := &models.PendingImage{}
	var loc, kind string
	err := s.db.QueryRow(`SELECT locator, kind, updated_at FROM pending_image WHERE slot = 1`).
		Scan(&loc, &kind, &img.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query pending image: %w", err)
	}
	img.Locator = models.Locator(loc)
	img.Kind = models.ArtifactKind(kind)
	return img, nil
}

// ClearPendingImage empties the pending image slot.
func (s *Store) ClearPendingImage() error {
	if _, err := s.db.Exec(`DELETE FROM pending_image WHERE slot = 1`); err != nil {
		return fmt.Errorf("clear pending image: %w", err)
	}
	return nil
}

// --- Decision Operations ---

// WriteDecision writes a decision record.
func (s *Store) WriteDecision(action, inputsHash, outcome, sessionID, details string) (*models.DecisionRecord, error) {
	rec := &models.DecisionRecord{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		SessionID:  sessionID,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO decisions (id, action, inputs_hash, outcome, session_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Action, rec.InputsHash, rec.Outcome, rec.SessionID, rec.Details, rec.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert decision: %w", err)
	}
	return rec, nil
}

// ListDecisions returns decisions newest first, optionally filtered by
// session. A limit <= 0 returns all.
func (s *Store) ListDecisions(sessionID string, limit int) ([]models.DecisionRecord, error) {
	query := `SELECT id, action, inputs_hash, outcome, session_id, details, timestamp FROM decisions`
	var args []interface{}

	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY timestamp DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var recs []models.DecisionRecord
	for rows.Next() {
		var rec models.DecisionRecord
		var sessionID, details sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Action, &rec.InputsHash, &rec.Outcome, &sessionID, &details, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if sessionID.Valid {
			rec.SessionID = sessionID.String
		}
		if details.Valid {
			rec.Details = details.String
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
