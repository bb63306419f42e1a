package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrProviderNotFound is returned when the referenced provider does not exist.
var ErrProviderNotFound = errors.New("provider not found")

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides read/write access to providers.
type Store struct {
	db DB
}

// NewStore creates a provider store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Create inserts a provider.
func (s *Store) Create(ctx context.Context, p *Provider) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	plans, err := json.Marshal(p.Plans)
	if err != nil {
		return fmt.Errorf("providers: marshal plans: %w", err)
	}
	schedule, err := json.Marshal(p.Schedule)
	if err != nil {
		return fmt.Errorf("providers: marshal schedule: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO providers (id, org_id, name, active, self_pay_price_cents, plans, schedule, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.OrgID, p.Name, p.Active, p.SelfPayPriceCents, plans, schedule, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("providers: create: %w", err)
	}
	return nil
}

// GetByID loads a provider by id.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, org_id, name, active, self_pay_price_cents, plans, schedule, created_at, updated_at
		FROM providers
		WHERE id = $1`, id)

	var p Provider
	var plans, schedule []byte
	err := row.Scan(&p.ID, &p.OrgID, &p.Name, &p.Active, &p.SelfPayPriceCents, &plans, &schedule, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProviderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("providers: get by id: %w", err)
	}

	if len(plans) > 0 {
		if err := json.Unmarshal(plans, &p.Plans); err != nil {
			return nil, fmt.Errorf("providers: decode plans: %w", err)
		}
	}
	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &p.Schedule); err != nil {
			return nil, fmt.Errorf("providers: decode schedule: %w", err)
		}
	}
	return &p, nil
}

// UpdateSchedule replaces a provider's weekly template.
func (s *Store) UpdateSchedule(ctx context.Context, id uuid.UUID, schedule WeekSchedule) error {
	data, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("providers: marshal schedule: %w", err)
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE providers SET schedule = $1, updated_at = $2
		WHERE id = $3`, data, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("providers: update schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProviderNotFound
	}
	return nil
}
