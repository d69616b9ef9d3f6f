package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zombar/stylecheck/internal/models"
	"github.com/zombar/stylecheck/internal/nlp"
)

// CreateDocument inserts a new document. The analysis is saved separately
// once it is available.
func (db *DB) CreateDocument(ctx context.Context, doc *models.StoredDocument) error {
	settingsJSON, err := json.Marshal(doc.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if doc.Status == "" {
		doc.Status = models.StatusQueued
	}

	_, err = db.conn.ExecContext(ctx, db.rebind(`
		INSERT INTO documents (id, text, settings, status, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), doc.ID, doc.Text, string(settingsJSON), doc.Status, doc.LastError, doc.CreatedAt.UTC(), doc.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document with its latest analysis, if any
func (db *DB) GetDocument(ctx context.Context, id string) (*models.StoredDocument, error) {
	var (
		doc          = &models.StoredDocument{ID: id}
		settingsJSON string
		annotated    sql.NullString
		reportJSON   sql.NullString
	)

	err := db.conn.QueryRowContext(ctx, db.rebind(`
		SELECT d.text, d.settings, d.status, d.last_error, d.created_at, d.updated_at, a.annotated, a.report
		FROM documents d
		LEFT JOIN analyses a ON a.document_id = d.id
		WHERE d.id = ?
	`), id).Scan(&doc.Text, &settingsJSON, &doc.Status, &doc.LastError, &doc.CreatedAt, &doc.UpdatedAt, &annotated, &reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if err := json.Unmarshal([]byte(settingsJSON), &doc.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if annotated.Valid {
		if doc.Annotated, err = decodeAnnotated(annotated.String); err != nil {
			return nil, err
		}
	}
	if reportJSON.Valid {
		var report models.Report
		if err := json.Unmarshal([]byte(reportJSON.String), &report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		doc.Report = &report
	}
	return doc, nil
}

// ListDocuments returns the most recently updated documents without their
// analyses, newest first.
func (db *DB) ListDocuments(ctx context.Context, limit int) ([]*models.StoredDocument, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT id, text, status, last_error, created_at, updated_at
		FROM documents
		ORDER BY updated_at DESC, id
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []*models.StoredDocument{}
	for rows.Next() {
		doc := &models.StoredDocument{}
		if err := rows.Scan(&doc.ID, &doc.Text, &doc.Status, &doc.LastError, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return docs, nil
}

// UpdateDocumentText replaces the text of a document and marks it queued
// for re-analysis. The previous analysis is kept until the new one is saved.
func (db *DB) UpdateDocumentText(ctx context.Context, id, text string) error {
	return db.execOne(ctx, `
		UPDATE documents SET text = ?, status = ?, last_error = '', updated_at = ?
		WHERE id = ?
	`, text, models.StatusQueued, time.Now().UTC(), id)
}

// UpdateStatus sets the status of a document
func (db *DB) UpdateStatus(ctx context.Context, id, status, lastError string) error {
	return db.execOne(ctx, `
		UPDATE documents SET status = ?, last_error = ?, updated_at = ?
		WHERE id = ?
	`, status, lastError, time.Now().UTC(), id)
}

// SaveAnalysis stores the annotated document and report of a document and
// marks it analyzed.
func (db *DB) SaveAnalysis(ctx context.Context, id string, annotated *models.AnnotatedDocument, report *models.Report) error {
	encoded, err := encodeAnnotated(annotated)
	if err != nil {
		return err
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	now := time.Now().UTC()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, db.rebind(`
		UPDATE documents SET status = ?, last_error = '', updated_at = ?
		WHERE id = ?
	`), models.StatusAnalyzed, now, id)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}

	_, err = tx.ExecContext(ctx, db.rebind(`
		INSERT INTO analyses (document_id, annotated, report, partial, analyzed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (document_id) DO UPDATE SET
			annotated = excluded.annotated,
			report = excluded.report,
			partial = excluded.partial,
			analyzed_at = excluded.analyzed_at
	`), id, encoded, string(reportJSON), report != nil && report.Partial, now)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteDocument deletes a document and its analysis
func (db *DB) DeleteDocument(ctx context.Context, id string) error {
	return db.execOne(ctx, `DELETE FROM documents WHERE id = ?`, id)
}

// AddUserWords persists words accepted by the user. Words are stored
// lowercased; duplicates are ignored.
func (db *DB) AddUserWords(ctx context.Context, words ...string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, w := range words {
		w = nlp.Lower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, db.rebind(`
			INSERT INTO user_words (word, created_at) VALUES (?, ?)
			ON CONFLICT (word) DO NOTHING
		`), w, now)
		if err != nil {
			return fmt.Errorf("failed to insert user word: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UserWords returns every persisted user word in alphabetical order
func (db *DB) UserWords(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT word FROM user_words ORDER BY word`)
	if err != nil {
		return nil, fmt.Errorf("failed to query user words: %w", err)
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

// execOne runs a statement that must affect exactly one row
func (db *DB) execOne(ctx context.Context, query string, args ...interface{}) error {
	res, err := db.conn.ExecContext(ctx, db.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
