package mysql

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/bryanwahyu/diagnoflow/internal/domain/staff"
)

// StaffDirectory reads the accounts table. This core never writes it.
type StaffDirectory struct {
	db *sql.DB
}

func NewStaffDirectory(db *sql.DB) *StaffDirectory {
	return &StaffDirectory{db: db}
}

// Get one account by id
func (d *StaffDirectory) Get(ctx context.Context, id string) (*domain.Member, error) {
	const q = `SELECT id, email, role, full_name, status FROM accounts WHERE id=? LIMIT 1;`
	m := &domain.Member{}
	var name sql.NullString
	err := d.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.Email, &m.Role, &name, &m.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.FullName = name.String
	return m, nil
}

// DisplayName resolves an account id to a human name, falling back to
// the email when no profile name is set
func (d *StaffDirectory) DisplayName(ctx context.Context, id string) (string, error) {
	m, err := d.Get(ctx, id)
	if err != nil || m == nil {
		return "", err
	}
	if m.FullName != "" {
		return m.FullName, nil
	}
	return m.Email, nil
}

// ActivePathologists lists approved pathologists in stable id order
func (d *StaffDirectory) ActivePathologists(ctx context.Context) ([]*domain.Member, error) {
	const q = `
SELECT id, email, role, full_name, status
FROM accounts
WHERE role = 'pathologist' AND status = 'approved'
ORDER BY id;`
	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Member
	for rows.Next() {
		m := &domain.Member{}
		var name sql.NullString
		if err := rows.Scan(&m.ID, &m.Email, &m.Role, &name, &m.Status); err != nil {
			return nil, err
		}
		m.FullName = name.String
		out = append(out, m)
	}
	return out, rows.Err()
}
