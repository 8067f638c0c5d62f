package bootstrap

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"
)

// storageProbeMarker is the throwaway file written to verify a storage path
// is writable.
const storageProbeMarker = ".filemanager_write_test"

// EnsureStoragePath creates the upload directory if absent and verifies it is
// writable with a write-then-delete probe. Idempotent. A failure is logged
// with remediation and returned to the caller, which treats it as non-fatal:
// the application can still boot and fail individual file operations later.
func EnsureStoragePath(path string, sugar *zap.SugaredLogger) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		sugar.Errorw("Cannot resolve storage path", "path", path, "error", err)
		return fmt.Errorf("failed to resolve absolute path for %s: %w", path, err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		sugar.Errorw("Cannot create storage directory",
			"path", absPath,
			"error", err,
			"remediation", fmt.Sprintf("ensure the parent directory exists and is writable, or run 'mkdir -p %s && chmod 755 %s'", absPath, absPath))
		return fmt.Errorf("failed to create storage directory %s: %w", path, err)
	}

	marker := filepath.Join(absPath, storageProbeMarker)
	if err := os.WriteFile(marker, []byte("probe"), 0644); err != nil {
		sugar.Errorw("Storage directory is not writable",
			"path", absPath,
			"error", err,
			"remediation", "check filesystem permissions; for Docker ensure the volume is mounted with write access")
		return fmt.Errorf("storage directory %s is not writable: %w", path, err)
	}
	os.Remove(marker)

	sugar.Infow("Storage directory ready", "path", absPath)
	return nil
}

// ClassifyConnectionError turns a raw database connection failure into an
// operator-facing message with the likely cause and remediation, so a
// misconfiguration can be corrected without reading source.
func ClassifyConnectionError(err error, endpoint string) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("Connection to Postgres at %s timed out.\n"+
			"  Possible causes:\n"+
			"  - The database is still provisioning (wait and retry)\n"+
			"  - A firewall or platform network policy is blocking the connection\n"+
			"  Remediation:\n"+
			"  - Verify the database add-on is attached to this service\n"+
			"  - Check connectivity from the platform shell: nc -zv <host> <port>", endpoint)
	}

	if errors.Is(err, syscall.ECONNREFUSED) || hasFold(errStr, "connection refused") {
		return fmt.Sprintf("Connection refused by Postgres at %s.\n"+
			"  The database process is not accepting connections.\n"+
			"  Remediation:\n"+
			"  - Check the database service is running in the platform dashboard\n"+
			"  - Verify DATABASE_URL points at the internal hostname, not localhost", endpoint)
	}

	if hasFold(errStr, "no such host") || hasFold(errStr, "lookup") {
		return fmt.Sprintf("Cannot resolve the hostname in DATABASE_URL (%s).\n"+
			"  Remediation:\n"+
			"  - Copy the connection string from the platform dashboard verbatim\n"+
			"  - Internal hostnames only resolve inside the platform network", endpoint)
	}

	if hasFold(errStr, "password authentication failed") || hasFold(errStr, "authentication") || hasFold(errStr, "denied") {
		return fmt.Sprintf("Authentication failed for Postgres at %s.\n"+
			"  Remediation:\n"+
			"  - Re-copy the credentials from the platform dashboard\n"+
			"  - Rotated database passwords require updating DATABASE_URL", endpoint)
	}

	if hasFold(errStr, "does not exist") {
		return fmt.Sprintf("The database named in DATABASE_URL does not exist at %s.\n"+
			"  Remediation:\n"+
			"  - Check the database-name segment of the connection string\n"+
			"  - Create the database or attach the correct add-on", endpoint)
	}

	return fmt.Sprintf("Failed to connect to Postgres at %s: %v\n"+
		"  Remediation:\n"+
		"  - Verify DATABASE_URL is set and well-formed\n"+
		"  - Confirm the database is reachable from this service", endpoint, err)
}

// hasFold reports whether s contains substr, case-insensitively.
func hasFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
