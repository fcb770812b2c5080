package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/mrsinham/importctx/internal/importmode"
	"github.com/mrsinham/importctx/internal/modality"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvMode, EnvLogLevel, EnvBackupPath, EnvRegistryPath} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, importmode.DirectTransfer, cfg.ImportMode())
	assert.Equal(t, zapcore.InfoLevel, cfg.Level())
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join("testdata", "importctx.yaml"))
	require.NoError(t, err)

	assert.Equal(t, importmode.RemoteQuery, cfg.ImportMode())
	require.NotNil(t, cfg.UseStudyCard)
	assert.False(t, *cfg.UseStudyCard)
	assert.True(t, cfg.FillSoleCandidates)
	assert.Equal(t, Principal{Expert: true}, cfg.Principal)
	assert.Equal(t, "/tmp/importctx/backup.yaml", cfg.BackupPath)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level())
}

func TestLoadTOML(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join("testdata", "importctx.toml"))
	require.NoError(t, err)

	assert.Equal(t, importmode.SmallAnimal, cfg.ImportMode())
	assert.Nil(t, cfg.UseStudyCard)
	assert.Equal(t, Principal{Admin: true, Expert: true}, cfg.Principal)
	assert.Equal(t, "registry.yaml", cfg.RegistryPath)
	assert.Equal(t, zapcore.WarnLevel, cfg.Level())
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvMode, "eeg")
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvBackupPath, "/var/lib/importctx/backup.yaml")
	t.Setenv(EnvRegistryPath, "/etc/importctx/registry.yaml")

	cfg, err := Load(filepath.Join("testdata", "importctx.yaml"))
	require.NoError(t, err)
	assert.Equal(t, importmode.Electro, cfg.ImportMode())
	assert.Equal(t, zapcore.ErrorLevel, cfg.Level())
	assert.Equal(t, "/var/lib/importctx/backup.yaml", cfg.BackupPath)
	assert.Equal(t, "/etc/importctx/registry.yaml", cfg.RegistryPath)
}

func TestLoadRejects(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		invalid bool
	}{
		{name: "unknown mode", file: "a.yaml", content: "mode: fax\n", invalid: true},
		{name: "bad log level", file: "b.yaml", content: "log_level: chatty\n", invalid: true},
		{name: "unknown yaml field", file: "c.yaml", content: "modes: DICOM\n"},
		{name: "unknown toml field", file: "d.toml", content: "modes = \"DICOM\"\n"},
		{name: "malformed toml", file: "e.toml", content: "mode = \n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.file)
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o600))
			_, err := Load(path)
			require.Error(t, err)
			assert.Equal(t, tc.invalid, eris.Is(err, ErrInvalid))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestStudyCardEnabled(t *testing.T) {
	var cfg Config
	assert.True(t, cfg.StudyCardEnabled(modality.MR))
	assert.False(t, cfg.StudyCardEnabled(modality.CT))

	on := true
	cfg.UseStudyCard = &on
	assert.True(t, cfg.StudyCardEnabled(modality.CT))
}
