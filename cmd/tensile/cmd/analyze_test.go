package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLookup(t *testing.T) {
	missing := filepath.Join(t.TempDir(), defaultLookupPath)

	lookup, err := loadLookup(missing, false)
	require.NoError(t, err)
	assert.Empty(t, lookup.Force)

	_, err = loadLookup(missing, true)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestConnFlagsPrecedence(t *testing.T) {
	t.Setenv("TENSILE_PORT", "/dev/ttyACM0")
	t.Setenv("TENSILE_SESSION", "from env")
	t.Setenv("TENSILE_OUTPUT_DIR", "")

	path := filepath.Join(t.TempDir(), "tensile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("serial_port: /dev/ttyUSB0\nsession_name: from file\noutput_dir: /runs\n"), 0o600))

	c := &cobra.Command{Use: "test"}
	var f connFlags
	f.register(c)
	require.NoError(t, c.Flags().Parse([]string{"--config", path, "--session", "from flag"}))

	cfg, err := f.config(c)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", cfg.SerialPort)
	assert.Equal(t, "from flag", cfg.SessionName)
	assert.Equal(t, "/runs", cfg.OutputDir)
}
