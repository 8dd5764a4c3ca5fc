package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Default().Validate())
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	content := `
coordinator:
  listen_tcp: "127.0.0.1:45710"
  listen_udp: "127.0.0.1:44710"
auth:
  addr: "127.0.0.1:41710"
  members_file: "./members.txt"
quote:
  addr: "127.0.0.1:43710"
  quotes_file: "./quotes.txt"
ledger:
  addr: "127.0.0.1:42710"
  portfolios_file: "./portfolios.txt"
journal:
  type: sqlite
  db_path: "./journal.db"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:45710", cfg.Coordinator.ListenTCP)
	assert.Equal(t, "sqlite", cfg.Journal.Type)
	assert.Equal(t, "./journal.db", cfg.Journal.DBPath)
}

func TestSaveAndReloadJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.Journal = JournalConfig{Type: "csv", ExecutionsFile: "./executions.csv"}
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidateRejectsMissingFields(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Auth.MembersFile = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Journal = JournalConfig{Type: "csv"}
	assert.Error(t, cfg.Validate(), "csv journal needs a file")

	cfg = Default()
	cfg.Journal = JournalConfig{Type: "bogus"}
	assert.Error(t, cfg.Validate())
}
