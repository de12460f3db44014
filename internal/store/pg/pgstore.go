package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"clinidesk.app/internal/auth"
)

// Store backs auth.Store with PostgreSQL through database/sql and the
// pgx stdlib driver.
type Store struct {
	db *sql.DB
}

var _ auth.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection pool (used by tests).
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Employees(ctx context.Context) auth.EmployeeStore { return employees{s.db} }
func (s *Store) Roles(ctx context.Context) auth.RoleStore { return roles{s.db} }
func (s *Store) Sessions(ctx context.Context) auth.SessionStore { return sessions{s.db} }
func (s *Store) TwoFactor(ctx context.Context) auth.TwoFactorStore { return twofactor{s.db} }
func (s *Store) LoginLog(ctx context.Context) auth.LoginLogStore { return loginlog{s.db} }
func (s *Store) Whitelist(ctx context.Context) auth.WhitelistStore { return whitelist{s.db} }

type employees struct{ db *sql.DB }

const employeeColumns = `
	id, coalesce(auth_user_id,''), employee_no, name, email,
	coalesce(phone,''), coalesce(department_id,''), status,
	deleted_at, created_at, updated_at`

func scanEmployee(row *sql.Row) (*auth.Employee, error) {
	var e auth.Employee
	err := row.Scan(
		&e.ID, &e.AuthUserID, &e.Number, &e.Name, &e.Email,
		&e.Phone, &e.DepartmentID, &e.Status,
		&e.DeletedAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s employees) Find(ctx context.Context, id string) (*auth.Employee, error) {
	return scanEmployee(s.db.QueryRowContext(ctx, `
		select`+employeeColumns+`
		from employees
		where id=$1 and deleted_at is null
	`, id))
}

func (s employees) FindByEmail(ctx context.Context, email string) (*auth.Employee, error) {
	return scanEmployee(s.db.QueryRowContext(ctx, `
		select`+employeeColumns+`
		from employees
		where lower(email)=lower($1) and deleted_at is null
	`, email))
}

func (s employees) FindByAuthUserID(ctx context.Context, authUserID string) (*auth.Employee, error) {
	return scanEmployee(s.db.QueryRowContext(ctx, `
		select`+employeeColumns+`
		from employees
		where auth_user_id=$1 and deleted_at is null
	`, authUserID))
}

func (s employees) PasswordHash(ctx context.Context, employeeID string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `
		select coalesce(password_hash,'')
		from employees
		where id=$1 and deleted_at is null
	`, employeeID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", auth.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if hash == "" {
		return "", auth.ErrNotFound
	}
	return hash, nil
}

type roles struct{ db *sql.DB }

// ForEmployee loads the employee's roles with grants preloaded, two
// queries total.
func (s roles) ForEmployee(ctx context.Context, employeeID string) ([]auth.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		select r.id, r.code, r.name, r.level, er.is_primary
		from roles r
		join employee_roles er on er.role_id = r.id
		where er.employee_id = $1
		order by r.level desc, r.code
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.Role
	index := map[string]int{}
	for rows.Next() {
		var r auth.Role
		if err := rows.Scan(&r.ID, &r.Code, &r.Name, &r.Level, &r.Primary); err != nil {
			return nil, err
		}
		index[r.ID] = len(result)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}

	grants, err := s.db.QueryContext(ctx, `
		select rp.role_id, p.code, p.category, rp.scope,
		       rp.can_create, rp.can_read, rp.can_update,
		       rp.can_delete, rp.can_export, rp.can_bulk_edit
		from role_permissions rp
		join permissions p on p.id = rp.permission_id
		join employee_roles er on er.role_id = rp.role_id
		where er.employee_id = $1
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer grants.Close()

	for grants.Next() {
		var (
			roleID string
			g      auth.Grant
			scope  string
		)
		if err := grants.Scan(
			&roleID, &g.PermissionCode, &g.Category, &scope,
			&g.Capabilities.Create, &g.Capabilities.Read, &g.Capabilities.Update,
			&g.Capabilities.Delete, &g.Capabilities.Export, &g.Capabilities.BulkEdit,
		); err != nil {
			return nil, err
		}
		g.Scope = auth.ParseScope(scope)
		if i, ok := index[roleID]; ok {
			result[i].Grants = append(result[i].Grants, g)
		}
	}
	if err := grants.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type sessions struct{ db *sql.DB }

func (s sessions) Create(ctx context.Context, sess *auth.Session) error {
	_, err := s.db.ExecContext(ctx, `
		insert into user_sessions (
			id, employee_id, token, ip, user_agent,
			browser, os, device_type, is_internal, is_active,
			login_at, expires_at, last_seen_at
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		sess.ID, sess.EmployeeID, sess.Token, sess.IP, sess.UserAgent,
		sess.Device.Browser, sess.Device.OS, sess.Device.DeviceType,
		sess.Internal, sess.Active,
		sess.LoginAt, sess.ExpiresAt, sess.LastSeenAt,
	)
	return err
}

const sessionColumns = `
	id, employee_id, token, coalesce(ip,''), coalesce(user_agent,''),
	coalesce(browser,''), coalesce(os,''), coalesce(device_type,''),
	is_internal, is_active, login_at, expires_at, last_seen_at, logout_at`

func scanSession(scan func(dest ...any) error) (*auth.Session, error) {
	var sess auth.Session
	err := scan(
		&sess.ID, &sess.EmployeeID, &sess.Token, &sess.IP, &sess.UserAgent,
		&sess.Device.Browser, &sess.Device.OS, &sess.Device.DeviceType,
		&sess.Internal, &sess.Active,
		&sess.LoginAt, &sess.ExpiresAt, &sess.LastSeenAt, &sess.LogoutAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s sessions) FindByToken(ctx context.Context, token string) (*auth.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		select`+sessionColumns+`
		from user_sessions
		where token=$1
	`, token)
	return scanSession(row.Scan)
}

func (s sessions) ActiveByEmployee(ctx context.Context, employeeID string) ([]*auth.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		select`+sessionColumns+`
		from user_sessions
		where employee_id=$1 and is_active
		order by login_at asc
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*auth.Session
	for rows.Next() {
		sess, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, sess)
	}
	return result, rows.Err()
}

func (s sessions) Deactivate(ctx context.Context, sessionID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update user_sessions
		set is_active=false, logout_at=$2
		where id=$1 and is_active
	`, sessionID, at)
	if err != nil {
		return err
	}
	// Already-inactive rows are fine; only a missing row is an error.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`select exists(select 1 from user_sessions where id=$1)`, sessionID,
		).Scan(&exists); err == nil && !exists {
			return auth.ErrSessionNotFound
		}
	}
	return nil
}

func (s sessions) Touch(ctx context.Context, sessionID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		update user_sessions set last_seen_at=$2 where id=$1
	`, sessionID, at)
	return err
}

type twofactor struct{ db *sql.DB }

func (s twofactor) Find(ctx context.Context, employeeID string) (*auth.TwoFactorCredential, error) {
	var cred auth.TwoFactorCredential
	err := s.db.QueryRowContext(ctx, `
		select employee_id, method, coalesce(secret,''), enabled, updated_at
		from employee_2fa
		where employee_id=$1
	`, employeeID).Scan(&cred.EmployeeID, &cred.Method, &cred.Secret, &cred.Enabled, &cred.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// Upsert replaces the credential in one statement, so a newly issued
// code atomically invalidates the previous one.
func (s twofactor) Upsert(ctx context.Context, cred *auth.TwoFactorCredential) error {
	_, err := s.db.ExecContext(ctx, `
		insert into employee_2fa (employee_id, method, secret, enabled, updated_at)
		values ($1,$2,$3,$4,$5)
		on conflict (employee_id) do update
		set method=excluded.method,
		    secret=excluded.secret,
		    enabled=excluded.enabled,
		    updated_at=excluded.updated_at
	`, cred.EmployeeID, cred.Method, cred.Secret, cred.Enabled, cred.UpdatedAt)
	return err
}

func (s twofactor) ClearCode(ctx context.Context, employeeID string) error {
	_, err := s.db.ExecContext(ctx, `
		update employee_2fa
		set secret=''
		where employee_id=$1 and method in ('sms','email')
	`, employeeID)
	return err
}

type loginlog struct{ db *sql.DB }

func (s loginlog) Append(ctx context.Context, a *auth.LoginAttempt) error {
	_, err := s.db.ExecContext(ctx, `
		insert into login_logs (
			id, employee_id, email, ip, user_agent,
			browser, os, device_type,
			success, failure_reason, is_internal, two_factor_required,
			login_type, attempted_at
		) values ($1, nullif($2,''), $3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		a.ID, a.EmployeeID, a.Email, a.IP, a.UserAgent,
		a.Device.Browser, a.Device.OS, a.Device.DeviceType,
		a.Success, a.FailureReason, a.Internal, a.TwoFactorRequired,
		a.LoginType, a.AttemptedAt,
	)
	return err
}

type whitelist struct{ db *sql.DB }

func (s whitelist) Entries(ctx context.Context) ([]auth.WhitelistEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		select pattern, coalesce(description,''), created_at
		from ip_whitelist
		order by created_at asc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.WhitelistEntry
	for rows.Next() {
		var e auth.WhitelistEntry
		if err := rows.Scan(&e.Pattern, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s whitelist) Add(ctx context.Context, entry auth.WhitelistEntry) error {
	_, err := s.db.ExecContext(ctx, `
		insert into ip_whitelist (pattern, description, created_at)
		values ($1,$2,$3)
		on conflict (pattern) do update
		set description=excluded.description
	`, entry.Pattern, entry.Description, entry.CreatedAt)
	return err
}

func (s whitelist) Remove(ctx context.Context, pattern string) error {
	res, err := s.db.ExecContext(ctx, `
		delete from ip_whitelist where pattern=$1
	`, pattern)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrNotFound
	}
	return nil
}
