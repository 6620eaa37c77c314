package customers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Repository persists customers with database/sql and lib/pq.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const customerColumns = `id, store_id, name, phone, email, talktalk_user_id, tags, memo, visit_count, last_visit_at, created_at, updated_at`

const upsertQuery = `
	INSERT INTO customers (id, store_id, name, phone, email, talktalk_user_id, tags, memo, visit_count, last_visit_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (store_id, phone) DO UPDATE SET
		name = EXCLUDED.name,
		email = COALESCE(NULLIF(EXCLUDED.email, ''), customers.email),
		talktalk_user_id = COALESCE(NULLIF(EXCLUDED.talktalk_user_id, ''), customers.talktalk_user_id),
		tags = CASE WHEN cardinality(EXCLUDED.tags) > 0 THEN EXCLUDED.tags ELSE customers.tags END,
		memo = COALESCE(NULLIF(EXCLUDED.memo, ''), customers.memo),
		visit_count = GREATEST(EXCLUDED.visit_count, customers.visit_count),
		last_visit_at = COALESCE(EXCLUDED.last_visit_at, customers.last_visit_at),
		updated_at = NOW()
	RETURNING id, created_at, updated_at
`

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Upsert inserts the customer or updates the existing row for the same
// store and phone. Empty fields in c do not overwrite stored values.
func (r *Repository) Upsert(ctx context.Context, c *Customer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return upsert(ctx, r.db, c)
}

// UpsertMany upserts every customer for the store in one transaction.
// Customers must already be validated.
func (r *Repository) UpsertMany(ctx context.Context, storeID string, list []Customer) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("customers: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range list {
		list[i].StoreID = storeID
		if err := upsert(ctx, tx, &list[i]); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("customers: commit: %w", err)
	}
	return len(list), nil
}

func upsert(ctx context.Context, q queryRower, c *Customer) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	var lastVisit sql.NullTime
	if c.LastVisitAt != nil {
		lastVisit = sql.NullTime{Time: *c.LastVisitAt, Valid: true}
	}
	err := q.QueryRowContext(ctx, upsertQuery,
		c.ID, c.StoreID, c.Name, c.Phone, c.Email, c.TalkTalkUserID,
		pq.Array(c.Tags), c.Memo, c.VisitCount, lastVisit,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("customers: upsert %s: %w", c.Phone, err)
	}
	return nil
}

// Get returns a customer scoped to the store.
func (r *Repository) Get(ctx context.Context, storeID, id string) (*Customer, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE store_id = $1 AND id = $2`, storeID, id)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("customers: get: %w", err)
	}
	return c, nil
}

// FindByTalkTalkUser looks a customer up by their TalkTalk user ID.
func (r *Repository) FindByTalkTalkUser(ctx context.Context, storeID, userID string) (*Customer, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE store_id = $1 AND talktalk_user_id = $2`, storeID, userID)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("customers: find by talktalk user: %w", err)
	}
	return c, nil
}

// List returns a store's customers, newest first. search matches name or phone.
func (r *Repository) List(ctx context.Context, storeID, search string, limit int) ([]Customer, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	pattern := ""
	if s := strings.TrimSpace(search); s != "" {
		pattern = "%" + s + "%"
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+customerColumns+` FROM customers
		WHERE store_id = $1 AND ($2 = '' OR name ILIKE $2 OR phone LIKE $2)
		ORDER BY created_at DESC LIMIT $3`, storeID, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("customers: list: %w", err)
	}
	defer rows.Close()

	out := []Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("customers: scan: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Delete removes a customer.
func (r *Repository) Delete(ctx context.Context, storeID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE store_id = $1 AND id = $2`, storeID, id)
	if err != nil {
		return fmt.Errorf("customers: delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*Customer, error) {
	var (
		c         Customer
		email     sql.NullString
		talkID    sql.NullString
		memo      sql.NullString
		lastVisit sql.NullTime
		tags      []string
	)
	if err := row.Scan(&c.ID, &c.StoreID, &c.Name, &c.Phone, &email, &talkID,
		pq.Array(&tags), &memo, &c.VisitCount, &lastVisit, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Email = email.String
	c.TalkTalkUserID = talkID.String
	c.Memo = memo.String
	if tags == nil {
		tags = []string{}
	}
	c.Tags = tags
	if lastVisit.Valid {
		t := lastVisit.Time
		c.LastVisitAt = &t
	}
	return &c, nil
}
