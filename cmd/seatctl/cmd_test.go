package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"seatbooking/internal/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`app:
  timezone: UTC
database:
  path: %s
exports:
  path: %s
backup:
  storage_path: %s
logging:
  level: error
  output: stderr
`, filepath.Join(dir, "seat.db"), filepath.Join(dir, "exports"), filepath.Join(dir, "backups"))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

// executeCommand runs seatctl with args and returns captured output.
func executeCommand(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	root, a := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append([]string{"--config", configPath}, args...))
	err := root.Execute()
	require.NoError(t, a.close())
	return buf.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

func TestSlotsAndRestaurantSet(t *testing.T) {
	cfg := writeConfig(t)

	out, err := executeCommand(t, cfg, "slots")
	require.NoError(t, err)
	got := lines(out)
	require.Len(t, got, 12)
	assert.Equal(t, "10:00-11:00", got[0])

	_, err = executeCommand(t, cfg, "restaurant", "set", "--seats", "80", "--slot-duration", "90")
	require.NoError(t, err)

	out, err = executeCommand(t, cfg, "slots")
	require.NoError(t, err)
	assert.Len(t, lines(out), 8)

	out, err = executeCommand(t, cfg, "restaurant", "show")
	require.NoError(t, err)
	var r struct {
		TotalSeats   int `json:"totalSeats"`
		SlotDuration int `json:"slotDuration"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, 80, r.TotalSeats)
	assert.Equal(t, 90, r.SlotDuration)

	_, err = executeCommand(t, cfg, "restaurant", "set")
	assert.Error(t, err)

	_, err = executeCommand(t, cfg, "restaurant", "set", "--opening", "23:00")
	assert.Error(t, err)
}

func TestExportCommand(t *testing.T) {
	cfg := writeConfig(t)

	out, err := executeCommand(t, cfg, "export", "--from", "2026-01-01", "--to", "2026-01-07")
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.True(t, strings.HasSuffix(path, "bookings_2026-01-01_to_2026-01-07.xlsx"))
	_, err = os.Stat(path)
	assert.NoError(t, err)

	target := filepath.Join(t.TempDir(), "week.xlsx")
	_, err = executeCommand(t, cfg, "export", "--from", "2026-01-01", "--to", "2026-01-07", "--out", target)
	require.NoError(t, err)
	_, err = os.Stat(target)
	assert.NoError(t, err)

	out, err = executeCommand(t, cfg, "export", "--from", "2026-01-01", "--to", "2026-01-07", "--out", "-")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "PK"), "xlsx is a zip archive")

	_, err = executeCommand(t, cfg, "export", "--from", "2026-01-07", "--to", "2026-01-01")
	assert.Error(t, err)

	_, err = executeCommand(t, cfg, "export", "--from", "2026-01-07")
	assert.Error(t, err)
}

func TestSweepCommand(t *testing.T) {
	cfg := writeConfig(t)

	out, err := executeCommand(t, cfg, "sweep")
	require.NoError(t, err)

	var res scheduler.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 0, res.Scanned)
	assert.False(t, res.Skipped)

	help, err := executeCommand(t, cfg, "sweep", "--help")
	require.NoError(t, err)
	assert.Contains(t, help, "overlapping sweeps in two processes can notify a customer twice")
}

func TestBackupCommand(t *testing.T) {
	cfg := writeConfig(t)

	out, err := executeCommand(t, cfg, "backup")
	require.NoError(t, err)
	_, err = os.Stat(strings.TrimSpace(out))
	assert.NoError(t, err)
}

func TestMissingConfig(t *testing.T) {
	_, err := executeCommand(t, filepath.Join(t.TempDir(), "nope.yaml"), "slots")
	assert.Error(t, err)
}
