package notes

import (
	"context"
	"time"
)

// Note is the single persisted entity. ID and CreatedAt are assigned by the
// store and never change.
type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NoteInput is the request payload for create and update.
type NoteInput struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// Gateway is the persistence contract the HTTP handlers depend on.
//
// Get, Update and Delete return an error coded errs.NotFound when no row
// matches. Every other failure is coded errs.Internal.
type Gateway interface {
	List(ctx context.Context) ([]Note, error)
	Get(ctx context.Context, id int64) (*Note, error)
	Create(ctx context.Context, in NoteInput) (*Note, error)
	Update(ctx context.Context, id int64, in NoteInput) (*Note, error)
	Delete(ctx context.Context, id int64) error
}
