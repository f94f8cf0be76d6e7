package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/notekeeper/backend/internal/domain"
)

// Postgres error codes the tag repo translates into domain errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// TagRepo defines the persistence operations for the Tag aggregate.
// A tag and its grants are always loaded and written together.
type TagRepo interface {
	// GetByID loads a tag with all of its grants in grant order.
	// Returns domain.ErrNotFound if no tag with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tag, error)

	// Create inserts a new tag and any grants it already carries.
	// Returns domain.ErrConflict if the owner already has a tag with that name.
	Create(ctx context.Context, tag *domain.Tag) error

	// Save writes the tag's name, updated_at and full grant list, provided the
	// stored version still equals tag.Version(), and then advances the tag to
	// the new version. Otherwise it returns domain.ErrConflict and writes nothing.
	Save(ctx context.Context, tag *domain.Tag) error

	// Delete removes a tag and its grants. Returns domain.ErrNotFound if it does
	// not exist, or domain.TagHasNotes if notes still reference it.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByOwner returns one page of the owner's tags ordered by name, and the total count.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, p domain.PaginationParams) ([]*domain.Tag, int64, error)

	// ListSharedWith returns every tag on which userID holds a grant, ordered by name.
	ListSharedWith(ctx context.Context, userID uuid.UUID) ([]*domain.Tag, error)

	// NameTaken reports whether ownerID has another tag (other than excludeID)
	// with the given name, compared case-insensitively.
	NameTaken(ctx context.Context, ownerID uuid.UUID, name string, excludeID uuid.UUID) (bool, error)
}

// pgTagRepo is the Postgres implementation of TagRepo.
type pgTagRepo struct {
	db db
}

// NewTagRepo constructs a TagRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTagRepo(db db) TagRepo {
	return &pgTagRepo{db: db}
}

// tagRow is the tags table row before grants are attached.
type tagRow struct {
	id        uuid.UUID
	ownerID   uuid.UUID
	name      string
	version   int64
	createdAt time.Time
	updatedAt time.Time
}

const tagColumns = `t.id, t.owner_id, t.name, t.version, t.created_at, t.updated_at`

// GetByID loads a single tag and its grants.
func (r *pgTagRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tag, error) {
	const q = `SELECT ` + tagColumns + ` FROM tags t WHERE t.id = @id`

	row, err := scanTagRow(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return nil, fmt.Errorf("repo.TagRepo.GetByID: %w", err)
	}
	tags, err := r.attachAccess(ctx, []tagRow{row})
	if err != nil {
		return nil, fmt.Errorf("repo.TagRepo.GetByID: %w", err)
	}
	return tags[0], nil
}

// Create inserts the tag row and its grants in one transaction.
func (r *pgTagRepo) Create(ctx context.Context, tag *domain.Tag) error {
	const q = `
		INSERT INTO tags (id, owner_id, name, version, created_at, updated_at)
		VALUES (@id, @owner_id, @name, @version, @created_at, @updated_at)`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo.TagRepo.Create: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	version := tag.Version()
	if version == 0 {
		version = 1
	}
	_, err = tx.Exec(ctx, q, pgx.NamedArgs{
		"id":         tag.ID(),
		"owner_id":   tag.OwnerID(),
		"name":       tag.Name(),
		"version":    version,
		"created_at": tag.CreatedAt(),
		"updated_at": tag.UpdatedAt(),
	})
	if err != nil {
		return fmt.Errorf("repo.TagRepo.Create: %w", translatePgError(err))
	}
	if err := insertAccess(ctx, tx, tag.ID(), tag.Snapshot()); err != nil {
		return fmt.Errorf("repo.TagRepo.Create: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repo.TagRepo.Create: commit: %w", err)
	}
	return nil
}

// Save replaces the stored state with the aggregate's current state.
// The version predicate makes the write fail if anyone saved in between.
// On success the aggregate carries the new version.
func (r *pgTagRepo) Save(ctx context.Context, tag *domain.Tag) error {
	const q = `
		UPDATE tags
		SET name       = @name,
		    updated_at = @updated_at,
		    version    = version + 1
		WHERE id = @id AND version = @version
		RETURNING version`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo.TagRepo.Save: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var version int64
	err = tx.QueryRow(ctx, q, pgx.NamedArgs{
		"id":         tag.ID(),
		"name":       tag.Name(),
		"updated_at": tag.UpdatedAt(),
		"version":    tag.Version(),
	}).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("repo.TagRepo.Save: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("repo.TagRepo.Save: %w", translatePgError(err))
	}

	if _, err := tx.Exec(ctx, `DELETE FROM tag_access WHERE tag_id = @id`, pgx.NamedArgs{"id": tag.ID()}); err != nil {
		return fmt.Errorf("repo.TagRepo.Save: clear access: %w", err)
	}
	if err := insertAccess(ctx, tx, tag.ID(), tag.Snapshot()); err != nil {
		return fmt.Errorf("repo.TagRepo.Save: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repo.TagRepo.Save: commit: %w", err)
	}
	tag.MarkSaved(version)
	return nil
}

// Delete removes a tag by primary key. Grants go with it via ON DELETE CASCADE;
// note links are RESTRICT, so a tag that still has notes cannot be removed.
func (r *pgTagRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM tags WHERE id = @id`

	ct, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			// note_tags is the only RESTRICT reference to tags.
			return fmt.Errorf("repo.TagRepo.Delete: %w", domain.TagHasNotes)
		}
		return fmt.Errorf("repo.TagRepo.Delete: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("repo.TagRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// ListByOwner returns one page of the owner's tags ordered by name.
func (r *pgTagRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, p domain.PaginationParams) ([]*domain.Tag, int64, error) {
	const countQ = `SELECT count(*) FROM tags WHERE owner_id = @owner_id`
	const q = `
		SELECT ` + tagColumns + `
		FROM tags t
		WHERE t.owner_id = @owner_id
		ORDER BY lower(t.name), t.id
		LIMIT @limit OFFSET @offset`

	var total int64
	if err := r.db.QueryRow(ctx, countQ, pgx.NamedArgs{"owner_id": ownerID}).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.TagRepo.ListByOwner: count: %w", err)
	}

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{
		"owner_id": ownerID,
		"limit":    p.Limit,
		"offset":   p.Offset(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TagRepo.ListByOwner: %w", err)
	}
	tags, err := r.collectTags(ctx, rows)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TagRepo.ListByOwner: %w", err)
	}
	return tags, total, nil
}

// ListSharedWith returns the tags userID has been granted access to.
func (r *pgTagRepo) ListSharedWith(ctx context.Context, userID uuid.UUID) ([]*domain.Tag, error) {
	const q = `
		SELECT ` + tagColumns + `
		FROM tags t
		JOIN tag_access ta ON ta.tag_id = t.id
		WHERE ta.recipient_id = @user_id
		ORDER BY lower(t.name), t.id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("repo.TagRepo.ListSharedWith: %w", err)
	}
	tags, err := r.collectTags(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("repo.TagRepo.ListSharedWith: %w", err)
	}
	return tags, nil
}

// NameTaken checks the case-insensitive (owner_id, name) uniqueness rule.
func (r *pgTagRepo) NameTaken(ctx context.Context, ownerID uuid.UUID, name string, excludeID uuid.UUID) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM tags
			WHERE owner_id = @owner_id
			  AND lower(name) = lower(@name)
			  AND id <> @exclude_id
		)`

	var taken bool
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"owner_id":   ownerID,
		"name":       name,
		"exclude_id": excludeID,
	}).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("repo.TagRepo.NameTaken: %w", err)
	}
	return taken, nil
}

// collectTags drains rows before loading grants: a connection (or tx) can
// only run one query at a time.
func (r *pgTagRepo) collectTags(ctx context.Context, rows pgx.Rows) ([]*domain.Tag, error) {
	tagRows, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (tagRow, error) {
		return scanTagRow(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(tagRows) == 0 {
		return []*domain.Tag{}, nil
	}
	return r.attachAccess(ctx, tagRows)
}

// attachAccess loads the grants for all rows in one query and rebuilds the aggregates.
func (r *pgTagRepo) attachAccess(ctx context.Context, tagRows []tagRow) ([]*domain.Tag, error) {
	const q = `
		SELECT tag_id, recipient_id, recipient_email, granted_at
		FROM tag_access
		WHERE tag_id = ANY(@ids::uuid[])
		ORDER BY tag_id, position`

	ids := make([]string, len(tagRows))
	for i, tr := range tagRows {
		ids[i] = tr.id.String()
	}

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("load access: %w", err)
	}
	defer rows.Close()

	byTag := make(map[uuid.UUID][]domain.TagAccess, len(tagRows))
	for rows.Next() {
		var (
			tagID, recipientID pgtype.UUID
			rawEmail           string
			a                  domain.TagAccess
		)
		if err := rows.Scan(&tagID, &recipientID, &rawEmail, &a.GrantedAt); err != nil {
			return nil, fmt.Errorf("load access: scan: %w", err)
		}
		email, err := domain.NewRecipientEmail(rawEmail)
		if err != nil {
			return nil, fmt.Errorf("load access: stored email %q: %w", rawEmail, err)
		}
		a.RecipientID = uuid.UUID(recipientID.Bytes)
		a.RecipientEmail = email
		id := uuid.UUID(tagID.Bytes)
		byTag[id] = append(byTag[id], a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load access: rows: %w", err)
	}

	tags := make([]*domain.Tag, len(tagRows))
	for i, tr := range tagRows {
		tag, err := domain.NewTag(tr.id, tr.ownerID, tr.name, byTag[tr.id],
			domain.WithVersion(tr.version),
			domain.WithTimestamps(tr.createdAt, tr.updatedAt),
		)
		if err != nil {
			return nil, fmt.Errorf("rehydrate tag %s: %w", tr.id, err)
		}
		tags[i] = tag
	}
	return tags, nil
}

// insertAccess writes grants with their list position so the load order
// matches the grant order.
func insertAccess(ctx context.Context, tx pgx.Tx, tagID uuid.UUID, access []domain.TagAccess) error {
	if len(access) == 0 {
		return nil
	}
	const q = `
		INSERT INTO tag_access (tag_id, recipient_id, recipient_email, granted_at, position)
		VALUES ($1, $2, $3, $4, $5)`

	batch := &pgx.Batch{}
	for i, a := range access {
		batch.Queue(q, tagID, a.RecipientID, a.RecipientEmail.String(), a.GrantedAt, i)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert access: %w", err)
	}
	return nil
}

// scanTagRow maps a single tags row.
func scanTagRow(s scanner) (tagRow, error) {
	var (
		tr      tagRow
		id, own pgtype.UUID
	)
	err := s.Scan(&id, &own, &tr.name, &tr.version, &tr.createdAt, &tr.updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tagRow{}, domain.ErrNotFound
		}
		return tagRow{}, err
	}
	tr.id = uuid.UUID(id.Bytes)
	tr.ownerID = uuid.UUID(own.Bytes)
	return tr, nil
}

// translatePgError maps a unique violation onto domain.ErrConflict.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
	}
	return err
}
