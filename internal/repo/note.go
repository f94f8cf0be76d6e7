package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// NoteRepo covers the part of note storage the tag policies depend on.
// Note content editing is handled elsewhere.
type NoteRepo interface {
	// Create inserts a note owned by ownerID and returns its id.
	Create(ctx context.Context, ownerID uuid.UUID, title, body string) (uuid.UUID, error)

	// AttachTag links a note to a tag. Attaching twice is a no-op.
	AttachTag(ctx context.Context, noteID, tagID uuid.UUID) error

	// CountByTag returns how many notes carry the tag.
	CountByTag(ctx context.Context, tagID uuid.UUID) (int64, error)
}

type pgNoteRepo struct {
	db db
}

// NewNoteRepo constructs a NoteRepo backed by the provided db connection.
func NewNoteRepo(db db) NoteRepo {
	return &pgNoteRepo{db: db}
}

func (r *pgNoteRepo) Create(ctx context.Context, ownerID uuid.UUID, title, body string) (uuid.UUID, error) {
	const q = `
		INSERT INTO notes (owner_id, title, body)
		VALUES (@owner_id, @title, @body)
		RETURNING id`

	var id pgtype.UUID
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"owner_id": ownerID,
		"title":    title,
		"body":     body,
	}).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("repo.NoteRepo.Create: %w", err)
	}
	return uuid.UUID(id.Bytes), nil
}

func (r *pgNoteRepo) AttachTag(ctx context.Context, noteID, tagID uuid.UUID) error {
	const q = `
		INSERT INTO note_tags (note_id, tag_id)
		VALUES (@note_id, @tag_id)
		ON CONFLICT DO NOTHING`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"note_id": noteID, "tag_id": tagID}); err != nil {
		return fmt.Errorf("repo.NoteRepo.AttachTag: %w", err)
	}
	return nil
}

func (r *pgNoteRepo) CountByTag(ctx context.Context, tagID uuid.UUID) (int64, error) {
	const q = `SELECT count(*) FROM note_tags WHERE tag_id = @tag_id`

	var n int64
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"tag_id": tagID}).Scan(&n); err != nil {
		return 0, fmt.Errorf("repo.NoteRepo.CountByTag: %w", err)
	}
	return n, nil
}
