package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/Hatice4217/lum-nex-next-sub000/migrations"
)

func sqlFS(files ...string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for _, name := range files {
		fsys[name] = &fstest.MapFile{Data: []byte("-- " + name)}
	}
	return fsys
}

func TestLoadMigrations_OrderAndNames(t *testing.T) {
	got, err := NewMigrator(nil, sqlFS(
		"010_audit.sql", "002_scheduling.sql", "001_core.sql", "005_prescriptions.sql",
		"readme.sql", "notes.txt", "abc_bad.sql", "000_zero.sql",
	)).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}

	want := []struct {
		version int
		name    string
	}{{1, "core"}, {2, "scheduling"}, {5, "prescriptions"}, {10, "audit"}}
	if len(got) != len(want) {
		t.Fatalf("expected %d migrations, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i].Version != w.version || got[i].Name != w.name {
			t.Errorf("migration %d = %d %q, want %d %q", i, got[i].Version, got[i].Name, w.version, w.name)
		}
		if len(got[i].Checksum) != 64 {
			t.Errorf("migration %d has checksum %q", i, got[i].Checksum)
		}
	}
	if got[0].SQL != "-- 001_core.sql" || got[0].File != "001_core.sql" {
		t.Errorf("unexpected first migration %+v", got[0])
	}
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	_, err := NewMigrator(nil, sqlFS("003_billing.sql", "003_payments.sql")).LoadMigrations()
	if err == nil || !strings.Contains(err.Error(), "share version 3") {
		t.Fatalf("expected a duplicate version error, got %v", err)
	}
}

func TestLoadMigrations_Sources(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_core.sql"), []byte("SELECT 1;"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got, err := NewMigrator(nil, os.DirFS(dir)).LoadMigrations(); err != nil || len(got) != 1 {
		t.Errorf("directory: got %d migrations, err %v", len(got), err)
	}

	if got, err := NewMigrator(nil, fstest.MapFS{}).LoadMigrations(); err != nil || len(got) != 0 {
		t.Errorf("empty: got %d migrations, err %v", len(got), err)
	}

	if _, err := NewMigrator(nil, os.DirFS(filepath.Join(dir, "missing"))).LoadMigrations(); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestLoadMigrations_Embedded(t *testing.T) {
	got, err := NewMigrator(nil, migrations.FS).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	for i, m := range got {
		if m.Version != i+1 {
			t.Errorf("embedded migrations have a gap at %s", m.File)
		}
	}
}

func TestStatusOf(t *testing.T) {
	migs := []Migration{
		{Version: 1, Name: "core", Checksum: "aaa"},
		{Version: 2, Name: "scheduling", Checksum: "bbb"},
		{Version: 3, Name: "billing", Checksum: "ccc"},
	}
	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	applied := map[int]ledgerRow{
		1: {appliedAt: at, checksum: "aaa"},
		2: {appliedAt: at, checksum: "changed"},
	}

	got := statusOf(migs, applied)
	if len(got) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(got))
	}
	if !got[0].Applied || got[0].Modified || !got[0].AppliedAt.Equal(at) {
		t.Errorf("core: %+v", got[0])
	}
	if !got[1].Applied || !got[1].Modified {
		t.Errorf("scheduling should be flagged as modified: %+v", got[1])
	}
	if got[2].Applied || got[2].AppliedAt != nil {
		t.Errorf("billing should be pending: %+v", got[2])
	}
}
