package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"clinidesk.app/internal/auth"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func employeeRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "auth_user_id", "employee_no", "name", "email",
		"phone", "department_id", "status",
		"deleted_at", "created_at", "updated_at",
	}).AddRow(
		"emp-1", "idp-77", "E1001", "Kim", "kim@clinic.example",
		"+821055551234", "dept-derm", "active",
		nil, now, now,
	)
}

func TestEmployeeFindByEmail(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("select.*from employees.*lower\\(email\\)=lower\\(\\$1\\).*deleted_at is null").
		WithArgs("kim@clinic.example").
		WillReturnRows(employeeRows())

	e, err := store.Employees(ctx).FindByEmail(ctx, "kim@clinic.example")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if e.ID != "emp-1" || e.AuthUserID != "idp-77" || e.Status != "active" {
		t.Fatalf("unexpected employee: %+v", e)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEmployeeFindMissingMapsToNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("select.*from employees.*where id=\\$1").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Employees(ctx).Find(ctx, "ghost")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRolesForEmployeePreloadsGrants(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("select r.id, r.code, r.name, r.level, er.is_primary.*from roles").
		WithArgs("emp-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "level", "is_primary"}).
			AddRow("r-head", "head_nurse", "Head Nurse", 20, true).
			AddRow("r-nurse", "nurse", "Nurse", 10, false))

	mock.ExpectQuery("select rp.role_id, p.code, p.category, rp.scope.*from role_permissions").
		WithArgs("emp-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"role_id", "code", "category", "scope",
			"can_create", "can_read", "can_update", "can_delete", "can_export", "can_bulk_edit",
		}).
			AddRow("r-nurse", "patient.record", "patient", "own", false, true, false, false, false, false).
			AddRow("r-head", "patient.record", "patient", "department", true, true, true, false, false, false))

	roles, err := store.Roles(ctx).ForEmployee(ctx, "emp-1")
	if err != nil {
		t.Fatalf("ForEmployee: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(roles))
	}
	if roles[0].Code != "head_nurse" || !roles[0].Primary {
		t.Fatalf("order or primary flag wrong: %+v", roles[0])
	}
	var head *auth.Role
	for i := range roles {
		if roles[i].ID == "r-head" {
			head = &roles[i]
		}
	}
	if head == nil || len(head.Grants) != 1 {
		t.Fatalf("grants not attached: %+v", roles)
	}
	if head.Grants[0].Scope != auth.ScopeDepartment || !head.Grants[0].Capabilities.Update {
		t.Fatalf("grant decoded wrong: %+v", head.Grants[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionCreateAndFind(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	sess := &auth.Session{
		ID: "sess-1", EmployeeID: "emp-1", Token: "tok",
		IP: "10.0.0.1", UserAgent: "ua",
		Device:   auth.DeviceInfo{Browser: "Chrome", OS: "Windows", DeviceType: "Desktop"},
		Internal: true, Active: true,
		LoginAt: now, ExpiresAt: now.Add(8 * time.Hour), LastSeenAt: now,
	}
	mock.ExpectExec("insert into user_sessions").
		WithArgs(
			sess.ID, sess.EmployeeID, sess.Token, sess.IP, sess.UserAgent,
			"Chrome", "Windows", "Desktop", true, true,
			sess.LoginAt, sess.ExpiresAt, sess.LastSeenAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.Sessions(ctx).Create(ctx, sess); err != nil {
		t.Fatalf("Create: %v", err)
	}

	mock.ExpectQuery("select.*from user_sessions.*where token=\\$1").
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "employee_id", "token", "ip", "user_agent",
			"browser", "os", "device_type",
			"is_internal", "is_active", "login_at", "expires_at", "last_seen_at", "logout_at",
		}).AddRow(
			"sess-1", "emp-1", "tok", "10.0.0.1", "ua",
			"Chrome", "Windows", "Desktop",
			true, true, now, now.Add(8*time.Hour), now, nil,
		))
	got, err := store.Sessions(ctx).FindByToken(ctx, "tok")
	if err != nil {
		t.Fatalf("FindByToken: %v", err)
	}
	if got.ID != "sess-1" || !got.Active || !got.Internal {
		t.Fatalf("unexpected session: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionFindByTokenMissing(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("select.*from user_sessions.*where token=\\$1").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Sessions(ctx).FindByToken(ctx, "nope")
	if !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestTwoFactorUpsertSingleStatement(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectExec("insert into employee_2fa.*on conflict \\(employee_id\\) do update").
		WithArgs("emp-1", "sms", "123456:1767225600", true, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.TwoFactor(ctx).Upsert(ctx, &auth.TwoFactorCredential{
		EmployeeID: "emp-1", Method: auth.MethodSMS,
		Secret: "123456:1767225600", Enabled: true, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoginLogAppend(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectExec("insert into login_logs").
		WithArgs(
			"log-1", "emp-1", "kim@clinic.example", "10.0.0.1", "ua",
			"Chrome", "Windows", "Desktop",
			true, "", true, false, "password", now,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.LoginLog(ctx).Append(ctx, &auth.LoginAttempt{
		ID: "log-1", EmployeeID: "emp-1", Email: "kim@clinic.example",
		IP: "10.0.0.1", UserAgent: "ua",
		Device:  auth.DeviceInfo{Browser: "Chrome", OS: "Windows", DeviceType: "Desktop"},
		Success: true, Internal: true, LoginType: "password", AttemptedAt: now,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWhitelistRemoveMissing(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("delete from ip_whitelist").
		WithArgs("203.0.113.9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Whitelist(ctx).Remove(ctx, "203.0.113.9")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
