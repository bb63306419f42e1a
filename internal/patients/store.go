package patients

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

// Store provides CRUD operations for patients.
type Store struct {
	db DB
}

// NewStore creates a patient store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

const patientColumns = "id, org_id, name, phone, insurance, created_at, updated_at"

// FindByPhone looks a patient up by exact normalized phone within an org.
func (s *Store) FindByPhone(ctx context.Context, orgID, phone string) (*Patient, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE org_id = $1 AND phone = $2`, orgID, phone)
	return scanPatient(row)
}

// GetByID loads a patient by id.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE id = $1`, id)
	return scanPatient(row)
}

// Create inserts a new patient. The (org_id, phone) pair is unique.
func (s *Store) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.Exec(ctx, `
		INSERT INTO patients (id, org_id, name, phone, insurance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.OrgID, p.Name, p.Phone, p.Insurance, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("patients: create: %w", err)
	}
	return nil
}

// Resolve finds the patient for (org, phone), creating the record when the
// phone is unknown. A changed name on an existing patient is updated in place.
func (s *Store) Resolve(ctx context.Context, orgID, phone, name, insurance string) (*Patient, error) {
	normalized, err := NormalizeE164(phone)
	if err != nil {
		return nil, err
	}

	existing, err := s.FindByPhone(ctx, orgID, normalized)
	if err != nil && !errors.Is(err, ErrPatientNotFound) {
		return nil, err
	}
	if existing != nil {
		if name != "" && existing.Name != name {
			existing.Name = name
			if _, err := s.db.Exec(ctx, `
				UPDATE patients SET name = $1, updated_at = $2 WHERE id = $3`,
				name, time.Now().UTC(), existing.ID); err != nil {
				return nil, fmt.Errorf("patients: update name: %w", err)
			}
		}
		return existing, nil
	}

	p := &Patient{OrgID: orgID, Name: name, Phone: normalized, Insurance: insurance}
	if err := s.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.OrgID, &p.Name, &p.Phone, &p.Insurance, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patients: scan: %w", err)
	}
	return &p, nil
}
