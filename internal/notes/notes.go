// Package notes implements the note entity, its request validation, and the
// PostgreSQL-backed gateway.
package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/kuitang/notes-api/internal/errs"
)

// ErrMsgNotFound is the public message for a missing note.
const ErrMsgNotFound = "Note not found"

const noteColumns = `id, title, content, created_at`

const (
	listNotesQuery  = `SELECT ` + noteColumns + ` FROM notes ORDER BY id DESC`
	getNoteQuery    = `SELECT ` + noteColumns + ` FROM notes WHERE id = $1`
	createNoteQuery = `INSERT INTO notes (title, content) VALUES ($1, $2) RETURNING ` + noteColumns
	updateNoteQuery = `UPDATE notes SET title = $1, content = $2 WHERE id = $3 RETURNING ` + noteColumns
	deleteNoteQuery = `DELETE FROM notes WHERE id = $1`
)

// MaxID is the largest id the SERIAL column can hold.
const MaxID = math.MaxInt32

// Store is the PostgreSQL implementation of Gateway. Every method runs a
// single parameterized statement on the shared pool.
type Store struct {
	db *sql.DB
}

var _ Gateway = (*Store)(nil)

// NewStore creates a Store over an open connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// List returns all notes, newest first. An empty table yields an empty slice.
func (s *Store) List(ctx context.Context) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, listNotesQuery)
	if err != nil {
		return nil, storeError("list notes", err)
	}
	defer rows.Close()

	notes := make([]Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, storeError("scan note", err)
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate notes", err)
	}
	return notes, nil
}

// Get returns the note with the given id.
func (s *Store) Get(ctx context.Context, id int64) (*Note, error) {
	if !validID(id) {
		return nil, notFound(id)
	}
	n, err := scanNote(s.db.QueryRowContext(ctx, getNoteQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storeError("get note", err)
	}
	return n, nil
}

// Create inserts a note and returns it with the store-assigned id and created_at.
func (s *Store) Create(ctx context.Context, in NoteInput) (*Note, error) {
	n, err := scanNote(s.db.QueryRowContext(ctx, createNoteQuery, in.Title, in.Content))
	if err != nil {
		return nil, storeError("create note", err)
	}
	return n, nil
}

// Update replaces title and content of the note with the given id.
func (s *Store) Update(ctx context.Context, id int64, in NoteInput) (*Note, error) {
	if !validID(id) {
		return nil, notFound(id)
	}
	n, err := scanNote(s.db.QueryRowContext(ctx, updateNoteQuery, in.Title, in.Content, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storeError("update note", err)
	}
	return n, nil
}

// Delete permanently removes the note with the given id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if !validID(id) {
		return notFound(id)
	}
	res, err := s.db.ExecContext(ctx, deleteNoteQuery, id)
	if err != nil {
		return storeError("delete note", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storeError("delete note", err)
	}
	if affected == 0 {
		return notFound(id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*Note, error) {
	var n Note
	if err := row.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

// validID reports whether id could have been issued. Out-of-range ids would
// otherwise fail parameter encoding and surface as store errors.
func validID(id int64) bool {
	return id > 0 && id <= MaxID
}

func notFound(id int64) error {
	return errs.Wrap(errs.NotFound, ErrMsgNotFound, fmt.Errorf("note %d", id))
}

func storeError(op string, err error) error {
	return errs.Wrap(errs.Internal, "failed to "+op, err)
}
