//go:build integration

package integration

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

const postgresImage = "postgres:16-alpine"

// startPostgresContainer runs a throwaway postgres through the docker CLI.
// Docker picks the host port, which avoids racing other test binaries for a
// free one.
func startPostgresContainer(ctx context.Context) (string, func(), error) {
	if _, err := exec.LookPath("docker"); err != nil {
		return "", nil, fmt.Errorf("docker not available: %w", err)
	}

	out, err := docker(ctx, "run", "-d", "--rm",
		"--label", "clinic-integration=1",
		"-p", "127.0.0.1::5432",
		"-e", "POSTGRES_USER=clinic",
		"-e", "POSTGRES_PASSWORD=clinic",
		"-e", "POSTGRES_DB=clinictest",
		postgresImage,
		"-c", "fsync=off",
	)
	if err != nil {
		return "", nil, err
	}
	id := out
	cleanup := func() { _, _ = docker(context.Background(), "rm", "-f", id) }

	addr, err := docker(ctx, "port", id, "5432/tcp")
	if err != nil {
		cleanup()
		return "", nil, err
	}
	// "docker port" may print one line per address family.
	addr = strings.SplitN(addr, "\n", 2)[0]
	if _, _, err := net.SplitHostPort(addr); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("unexpected docker port output %q", addr)
	}

	connStr := fmt.Sprintf("postgres://clinic:clinic@%s/clinictest?sslmode=disable", addr)
	if err := waitForPostgres(ctx, connStr, 45*time.Second); err != nil {
		cleanup()
		return "", nil, err
	}
	return connStr, cleanup, nil
}

func docker(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "docker", args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("docker %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// waitForPostgres retries until the server answers SELECT 1. The image
// restarts postgres once after init.
func waitForPostgres(ctx context.Context, connStr string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()
	var lastErr error
	for {
		if lastErr = ping(ctx, connStr); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres not ready after %v: %w", timeout, lastErr)
		case <-tick.C:
		}
	}
}

func ping(ctx context.Context, connStr string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())
	var one int
	return conn.QueryRow(ctx, "SELECT 1").Scan(&one)
}
