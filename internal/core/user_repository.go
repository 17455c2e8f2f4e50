package core

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
)

const userColumns = `id, uid, email, username, role, created_at, updated_at`

type UserStorer interface {
	Find(id string) (*User, error)
	FindByUID(uid string) (*User, error)
	FindByEmail(email string) (*User, error)
	FindByRole(role UserRoleName) ([]*User, error)
	Authenticate(email string, password string) (*User, error)
}

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) Find(id string) (*User, error) {
	user := &User{}

	err := r.db.Get(user, `SELECT `+userColumns+` FROM users WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (r *UserRepository) FindByUID(uid string) (*User, error) {
	user := &User{}

	err := r.db.Get(user, `SELECT `+userColumns+` FROM users WHERE uid = $1 LIMIT 1`, uid)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (r *UserRepository) FindByEmail(email string) (*User, error) {
	user := &User{}

	err := r.db.Get(user, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1) LIMIT 1`, email)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (r *UserRepository) FindByRole(role UserRoleName) ([]*User, error) {
	users := []*User{}

	err := r.db.Select(&users,
		`SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY username ASC`,
		string(role),
	)
	if err != nil {
		return nil, err
	}

	return users, nil
}

// Authenticate returns nil user and nil error when credentials don't match.
// Passwords are stored as pgcrypto crypt() hashes.
func (r *UserRepository) Authenticate(email string, password string) (*User, error) {
	u := &User{}
	err := r.db.Get(u, `SELECT `+userColumns+` FROM users
		WHERE password = crypt($1, password) AND lower(email) = lower($2) LIMIT 1`,
		password,
		email,
	)
	if err != nil {
		if err != sql.ErrNoRows {
			return nil, err
		}
		return nil, nil
	}

	return u, nil
}
