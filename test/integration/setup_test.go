//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/admin"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/identity"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/scheduling"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/auth"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/db"
	"github.com/Hatice4217/lum-nex-next-sub000/migrations"
)

// globalPool is shared by every test and initialised once in TestMain.
var globalPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	connStr := os.Getenv("INTEGRATION_DATABASE_URL")
	cleanup := func() {}
	if connStr == "" {
		var err error
		connStr, cleanup, err = startPostgresContainer(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping integration tests: %v\n", err)
			os.Exit(0)
		}
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err == nil {
		err = pool.Ping(ctx)
	}
	if err != nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "connect to database: %v\n", err)
		os.Exit(1)
	}

	globalPool = pool
	code := m.Run()
	pool.Close()
	cleanup()
	os.Exit(code)
}

// uniqueTenantID returns a tenant id no other test uses.
func uniqueTenantID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, strings.ReplaceAll(uuid.NewString()[:8], "-", ""))
}

// createTenant creates and migrates a tenant schema and drops it when the
// test ends.
func createTenant(t *testing.T, prefix string) string {
	t.Helper()
	ctx := context.Background()
	tenantID := uniqueTenantID(prefix)
	if err := db.CreateTenantSchema(ctx, globalPool, tenantID, migrations.FS); err != nil {
		t.Fatalf("create tenant %s: %v", tenantID, err)
	}
	t.Cleanup(func() {
		if _, err := globalPool.Exec(context.Background(),
			fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", db.SchemaName(tenantID))); err != nil {
			t.Logf("drop schema: %v", err)
		}
	})
	return tenantID
}

// inTenant runs fn on a connection pinned to the tenant schema.
func inTenant(t *testing.T, tenantID string, fn func(ctx context.Context) error) {
	t.Helper()
	if err := db.WithTenant(context.Background(), globalPool, tenantID, fn); err != nil {
		t.Fatalf("tenant %s: %v", tenantID, err)
	}
}

type clinic struct {
	hospital   *admin.Hospital
	department *admin.Department
}

func createClinic(t *testing.T, tenantID, name string) clinic {
	t.Helper()
	c := clinic{
		hospital: &admin.Hospital{Name: name, City: "Istanbul", IsActive: true},
	}
	inTenant(t, tenantID, func(ctx context.Context) error {
		if err := admin.NewHospitalRepoPG(globalPool).Create(ctx, c.hospital); err != nil {
			return err
		}
		c.department = &admin.Department{HospitalID: c.hospital.ID, Name: "Cardiology", IsActive: true}
		return admin.NewDepartmentRepoPG(globalPool).Create(ctx, c.department)
	})
	return c
}

func createUser(t *testing.T, tenantID, role, first, last string) *identity.User {
	t.Helper()
	u := &identity.User{
		Email:        strings.ToLower(first) + "." + uuid.NewString()[:6] + "@example.com",
		PasswordHash: "x",
		FirstName:    first,
		LastName:     last,
		Role:         role,
		IsActive:     true,
	}
	inTenant(t, tenantID, func(ctx context.Context) error {
		return identity.NewUserRepoPG(globalPool).Create(ctx, u)
	})
	return u
}

func createDoctor(t *testing.T, tenantID string, c clinic, first, last string) *identity.DoctorProfile {
	t.Helper()
	u := createUser(t, tenantID, auth.RoleDoctor, first, last)
	d := &identity.DoctorProfile{
		UserID:          u.ID,
		HospitalID:      c.hospital.ID,
		DepartmentID:    c.department.ID,
		Specialty:       "Cardiology",
		ConsultationFee: 75000,
		Currency:        "TRY",
		SlotMinutes:     30,
		IsActive:        true,
	}
	inTenant(t, tenantID, func(ctx context.Context) error {
		return identity.NewDoctorRepoPG(globalPool).Create(ctx, d)
	})
	return d
}

// newIdentity builds the directory half of the identity service; token and
// clinic collaborators are not needed by these tests.
func newIdentity() *identity.Service {
	return identity.NewService(
		identity.NewUserRepoPG(globalPool),
		identity.NewPatientRepoPG(globalPool),
		identity.NewDoctorRepoPG(globalPool),
		db.NewTxRunner(globalPool), nil, nil, nil, zerolog.Nop(),
	)
}

func newScheduling() *scheduling.Service {
	return scheduling.NewService(
		scheduling.NewAppointmentRepoPG(globalPool),
		scheduling.NewWorkingHoursRepoPG(globalPool),
		scheduling.NewBlockedSlotRepoPG(globalPool),
		newIdentity(), db.NewTxRunner(globalPool), nil, nil, zerolog.Nop(),
		scheduling.Options{DefaultSlotMinutes: 30},
	)
}

func ptrStr(s string) *string { return &s }
