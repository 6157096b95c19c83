package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/proctor-backend/internal/model"
)

const profileColumns = `id, email, first_name, father_name, surname, mobile, role, password_hash, created_at`

// ProfileRepository handles student and admin profiles.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) getOne(ctx context.Context, where string, arg any) (*model.Profile, error) {
	p := &model.Profile{}
	err := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE `+where, arg).
		Scan(&p.ID, &p.Email, &p.FirstName, &p.FatherName, &p.Surname, &p.Mobile, &p.Role, &p.PasswordHash, &p.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

// GetByID retrieves a profile by ID.
func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByEmail retrieves a profile by case-insensitive email.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return r.getOne(ctx, "LOWER(email) = LOWER($1)", email)
}

// Create inserts a profile. A taken email yields ErrDuplicate.
func (r *ProfileRepository) Create(ctx context.Context, p *model.Profile) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO profiles (email, password_hash, first_name, father_name, surname, mobile, role)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		p.Email, p.PasswordHash, p.FirstName, p.FatherName, p.Surname, p.Mobile, p.Role,
	).Scan(&p.ID, &p.CreatedAt)
	return translate(err)
}

// UpdatePassword replaces a profile's password hash.
func (r *ProfileRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE profiles SET password_hash = $1 WHERE id = $2`, hash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ListStudents retrieves all student profiles ordered by name.
func (r *ProfileRepository) ListStudents(ctx context.Context) ([]model.Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE role = $1 ORDER BY first_name, surname`, model.RoleStudent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []model.Profile{}
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.FirstName, &p.FatherName, &p.Surname, &p.Mobile, &p.Role, &p.PasswordHash, &p.CreatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
