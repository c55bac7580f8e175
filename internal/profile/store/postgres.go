package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"organchain/internal/models"
	"organchain/pkg/domain"
	"organchain/pkg/platform/sentinel"
	"organchain/pkg/platform/tx"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresDonors persists donor profiles in PostgreSQL.
type PostgresDonors struct {
	db *sql.DB
}

func NewPostgresDonors(db *sql.DB) *PostgresDonors {
	return &PostgresDonors{db: db}
}

const donorColumns = `id, wallet_address, name, age, blood_type, email, phone, organs,
	medical_history, emergency_contact, status, created_at`

func scanProfile(row rowScanner) (*models.Profile, error) {
	var (
		p      models.Profile
		organs []string
	)
	err := row.Scan(&p.ID, &p.WalletAddress, &p.Name, &p.Age, &p.BloodType, &p.Email, &p.Phone,
		pq.Array(&organs), &p.MedicalHistory, &p.EmergencyContact, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Organs = organsFromStrings(organs)
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (s *PostgresDonors) Create(ctx context.Context, p *models.Profile) error {
	query := `INSERT INTO donor_profiles (` + donorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		p.ID, p.WalletAddress, p.Name, p.Age, p.BloodType, p.Email, p.Phone,
		pq.Array(domain.OrganStrings(p.Organs)), p.MedicalHistory, p.EmergencyContact, p.Status, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert donor profile: %w", err)
	}
	return nil
}

func (s *PostgresDonors) FindByAddress(ctx context.Context, addr domain.Address) (*models.Profile, error) {
	row := tx.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+donorColumns+` FROM donor_profiles WHERE wallet_address = $1`, addr)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find donor profile: %w", err)
	}
	return p, nil
}

func (s *PostgresDonors) List(ctx context.Context) ([]*models.Profile, error) {
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx,
		`SELECT `+donorColumns+` FROM donor_profiles ORDER BY created_at, wallet_address`)
	if err != nil {
		return nil, fmt.Errorf("list donor profiles: %w", err)
	}
	defer rows.Close()

	var out []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donor profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donor profiles: %w", err)
	}
	return out, nil
}

// Update locks the row, applies mutate and writes every mutable column back.
func (s *PostgresDonors) Update(ctx context.Context, addr domain.Address, mutate func(*models.Profile) error) (*models.Profile, error) {
	var updated *models.Profile
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		q := tx.Executor(ctx, s.db)
		p, err := scanProfile(q.QueryRowContext(ctx,
			`SELECT `+donorColumns+` FROM donor_profiles WHERE wallet_address = $1 FOR UPDATE`, addr))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock donor profile: %w", err)
		}
		if err := mutate(p); err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, `
			UPDATE donor_profiles SET
				name = $2, age = $3, blood_type = $4, email = $5, phone = $6, organs = $7,
				medical_history = $8, emergency_contact = $9, status = $10
			WHERE wallet_address = $1`,
			addr, p.Name, p.Age, p.BloodType, p.Email, p.Phone, pq.Array(domain.OrganStrings(p.Organs)),
			p.MedicalHistory, p.EmergencyContact, p.Status)
		if err != nil {
			return fmt.Errorf("update donor profile: %w", err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// PostgresRecipients persists recipients in PostgreSQL.
type PostgresRecipients struct {
	db *sql.DB
}

func NewPostgresRecipients(db *sql.DB) *PostgresRecipients {
	return &PostgresRecipients{db: db}
}

const recipientColumns = `id, wallet_address, name, age, blood_type, email, phone, organ_needed,
	urgency_level, medical_history, doctor_info, status, created_at`

func scanRecipient(row rowScanner) (*models.Recipient, error) {
	var r models.Recipient
	err := row.Scan(&r.ID, &r.WalletAddress, &r.Name, &r.Age, &r.BloodType, &r.Email, &r.Phone,
		&r.OrganNeeded, &r.UrgencyLevel, &r.MedicalHistory, &r.DoctorInfo, &r.Status, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

func (s *PostgresRecipients) Create(ctx context.Context, r *models.Recipient) error {
	query := `INSERT INTO recipients (` + recipientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		r.ID, r.WalletAddress, r.Name, r.Age, r.BloodType, r.Email, r.Phone, r.OrganNeeded,
		r.UrgencyLevel, r.MedicalHistory, r.DoctorInfo, r.Status, r.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert recipient: %w", err)
	}
	return nil
}

func (s *PostgresRecipients) FindByAddress(ctx context.Context, addr domain.Address) (*models.Recipient, error) {
	row := tx.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+recipientColumns+` FROM recipients WHERE wallet_address = $1`, addr)
	r, err := scanRecipient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find recipient: %w", err)
	}
	return r, nil
}

func (s *PostgresRecipients) List(ctx context.Context) ([]*models.Recipient, error) {
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx,
		`SELECT `+recipientColumns+` FROM recipients ORDER BY urgency_level DESC, created_at, wallet_address`)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	var out []*models.Recipient
	for rows.Next() {
		r, err := scanRecipient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipients: %w", err)
	}
	return out, nil
}

func (s *PostgresRecipients) Update(ctx context.Context, addr domain.Address, mutate func(*models.Recipient) error) (*models.Recipient, error) {
	var updated *models.Recipient
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		q := tx.Executor(ctx, s.db)
		r, err := scanRecipient(q.QueryRowContext(ctx,
			`SELECT `+recipientColumns+` FROM recipients WHERE wallet_address = $1 FOR UPDATE`, addr))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock recipient: %w", err)
		}
		if err := mutate(r); err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, `
			UPDATE recipients SET
				email = $2, phone = $3, urgency_level = $4, medical_history = $5,
				doctor_info = $6, status = $7
			WHERE wallet_address = $1`,
			addr, r.Email, r.Phone, r.UrgencyLevel, r.MedicalHistory, r.DoctorInfo, r.Status)
		if err != nil {
			return fmt.Errorf("update recipient: %w", err)
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
