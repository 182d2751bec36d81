package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/playperu/cityguesser/internal/geoquiz"
)

type AdminStore interface {
	AdminByEmail(ctx context.Context, email string) (adminID, passwordHash string, err error)
	CreateAdminSession(ctx context.Context, adminID string) (sessionID string, err error)
	DeleteAdminSession(ctx context.Context, sessionID string) error
	AdminFromSession(ctx context.Context, sessionID string) (adminSession, error)
}

// SQLAdminStore keeps admins and their cookie sessions in the SQLite
// database created by the migrations.
type SQLAdminStore struct {
	db *sql.DB
}

func NewSQLAdminStore(db *sql.DB) *SQLAdminStore {
	return &SQLAdminStore{db: db}
}

// EnsureAdmin creates the admin account or replaces its password hash.
func (s *SQLAdminStore) EnsureAdmin(ctx context.Context, email, passwordHash string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || passwordHash == "" {
		return errors.New("admin email and password hash are required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (id, email, password_hash) VALUES (?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET password_hash = excluded.password_hash
	`, uuid.NewString(), email, passwordHash)
	if err != nil {
		return fmt.Errorf("upserting admin: %w", err)
	}
	return nil
}

func (s *SQLAdminStore) AdminByEmail(ctx context.Context, email string) (string, string, error) {
	var id, hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM admins WHERE email = ?`, email,
	).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", geoquiz.ErrNotFound
	}
	if err != nil {
		return "", "", err
	}
	return id, hash, nil
}

func (s *SQLAdminStore) CreateAdminSession(ctx context.Context, adminID string) (string, error) {
	sessionID := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admin_sessions (id, admin_id) VALUES (?, ?)`, sessionID, adminID,
	)
	if err != nil {
		return "", fmt.Errorf("creating admin session: %w", err)
	}
	return sessionID, nil
}

func (s *SQLAdminStore) DeleteAdminSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE id = ?`, sessionID)
	return err
}

func (s *SQLAdminStore) AdminFromSession(ctx context.Context, sessionID string) (adminSession, error) {
	var as adminSession
	err := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.email
		FROM admin_sessions s
		JOIN admins a ON a.id = s.admin_id
		WHERE s.id = ?
	`, sessionID).Scan(&as.AdminID, &as.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return adminSession{}, errNoAdminSession
	}
	return as, err
}
