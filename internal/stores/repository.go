package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const storeColumns = `id, owner_id, name, business_type, hours, address, phone, menu_text, persona, tone,
	greeting, custom_system_prompt, language, owner_email, talktalk_token, active, created_at, updated_at`

// Repository provides CRUD for stores.
type Repository struct {
	db DB
}

func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// Create inserts s.
func (r *Repository) Create(ctx context.Context, s *Store) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	_, err := r.db.Exec(ctx, `
		INSERT INTO stores (`+storeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		s.ID, s.OwnerID, s.Name, s.BusinessType, s.Hours, s.Address, s.Phone, s.MenuText, s.Persona, s.Tone,
		s.Greeting, s.CustomSystemPrompt, s.Language, s.OwnerEmail, s.TalkTalkToken, s.Active, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("stores: create: %w", err)
	}
	return nil
}

// Get returns a store by ID or ErrNotFound.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Store, error) {
	row := r.db.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id)
	s, err := scanStore(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stores: get: %w", err)
	}
	return s, nil
}

// List returns stores, narrowed to one owner unless ownerID is uuid.Nil.
func (r *Repository) List(ctx context.Context, ownerID uuid.UUID) ([]Store, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if ownerID == uuid.Nil {
		rows, err = r.db.Query(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY created_at DESC`)
	} else {
		rows, err = r.db.Query(ctx, `SELECT `+storeColumns+` FROM stores WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	}
	if err != nil {
		return nil, fmt.Errorf("stores: list: %w", err)
	}
	defer rows.Close()

	out := []Store{}
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("stores: scan: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Update overwrites the editable fields of s.
func (r *Repository) Update(ctx context.Context, s *Store) error {
	s.UpdatedAt = time.Now().UTC()
	tag, err := r.db.Exec(ctx, `
		UPDATE stores SET name = $2, business_type = $3, hours = $4, address = $5, phone = $6,
		    menu_text = $7, persona = $8, tone = $9, greeting = $10, custom_system_prompt = $11,
		    language = $12, owner_email = $13, talktalk_token = $14, active = $15, updated_at = $16
		WHERE id = $1`,
		s.ID, s.Name, s.BusinessType, s.Hours, s.Address, s.Phone, s.MenuText, s.Persona, s.Tone,
		s.Greeting, s.CustomSystemPrompt, s.Language, s.OwnerEmail, s.TalkTalkToken, s.Active, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("stores: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a store.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("stores: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanStore(row pgx.Row) (*Store, error) {
	var s Store
	err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.BusinessType, &s.Hours, &s.Address, &s.Phone,
		&s.MenuText, &s.Persona, &s.Tone, &s.Greeting, &s.CustomSystemPrompt, &s.Language,
		&s.OwnerEmail, &s.TalkTalkToken, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
