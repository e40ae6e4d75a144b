package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"restomap.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users() UserStore             { return &userStore{db: s.db} }
func (s *PGStore) ResetTokens() ResetTokenStore { return &resetTokenStore{db: s.db} }

const uniqueViolation = "23505"

// translateErr maps driver errors to the package sentinels so duplicate keys
// never surface as raw 500s.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}

// User store ---------------------------------------------------------------

type userStore struct{ db *sql.DB }

const userColumns = `id, email, password_hash, role, status, registered_at, last_login_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var (
		u         User
		lastLogin sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Status, &u.RegisteredAt, &lastLogin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

func (s *userStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.Role == "" {
		u.Role = RoleStandard
	}
	if u.Status == "" {
		u.Status = StatusActive
	}
	if u.RegisteredAt.IsZero() {
		u.RegisteredAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, password_hash, role, status, registered_at) values($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Email, u.PasswordHash, u.Role, u.Status, u.RegisteredAt,
	)
	return translateErr(err)
}

func (s *userStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, email)
	return scanUser(row)
}

func (s *userStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password_hash=$2 where id=$1`, userID, passwordHash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *userStore) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update users set last_login_at=$2 where id=$1`, userID, at)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *userStore) SetRole(ctx context.Context, userID, role string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set role=$2 where id=$1`, userID, role)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *userStore) SetStatus(ctx context.Context, userID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set status=$2 where id=$1`, userID, status)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *userStore) Delete(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *userStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `select count(*) from users`).Scan(&n)
	return n, err
}

func (s *userStore) CountRegisteredSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`select count(*) from users where registered_at >= $1`, since).Scan(&n)
	return n, err
}

func (s *userStore) CountActiveSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`select count(*) from users where last_login_at >= $1`, since).Scan(&n)
	return n, err
}

func (s *userStore) MonthlyRegistrations(ctx context.Context, months int) ([]MonthlyCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`select extract(year from registered_at)::int as y,
		        extract(month from registered_at)::int as m,
		        count(*)
		 from users
		 group by y, m
		 order by y desc, m desc
		 limit $1`, months)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []MonthlyCount
	for rows.Next() {
		var mc MonthlyCount
		if err := rows.Scan(&mc.Year, &mc.Month, &mc.Count); err != nil {
			return nil, err
		}
		res = append(res, mc)
	}
	return res, rows.Err()
}

func (s *userStore) Latest(ctx context.Context, n int) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users order by registered_at desc limit $1`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (s *userStore) List(ctx context.Context, offset, limit int) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users order by registered_at desc offset $1 limit $2`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func collectUsers(rows *sql.Rows) ([]User, error) {
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Reset-token store --------------------------------------------------------

type resetTokenStore struct{ db *sql.DB }

func (s *resetTokenStore) Create(ctx context.Context, t *ResetToken) error {
	if t.ID == "" {
		t.ID = ids.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into reset_tokens(id, token, email, user_id, created_at) values($1,$2,$3,$4,$5)`,
		t.ID, t.Token, t.Email, t.UserID, t.CreatedAt,
	)
	return translateErr(err)
}

func (s *resetTokenStore) FindByToken(ctx context.Context, token string) (*ResetToken, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, token, email, user_id, created_at from reset_tokens where token=$1`, token)
	var t ResetToken
	if err := row.Scan(&t.ID, &t.Token, &t.Email, &t.UserID, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *resetTokenStore) DeleteByID(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `delete from reset_tokens where id=$1`, id)
	return err
}

func (s *resetTokenStore) DeleteForUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `delete from reset_tokens where user_id=$1`, userID)
	return err
}

func (s *resetTokenStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from reset_tokens where created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
