package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/autosave/internal/testutil"
)

func iocFile(name string) string {
	return filepath.Join("..", "..", "testdata", "iocs", name)
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// copyIOC copies a fixture into a temp dir so a test can modify it.
func copyIOC(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(iocFile(name))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestValidate_Valid(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), iocFile("ts1.yaml"))

	require.NoError(t, err)
	assert.Contains(t, out, "✓ TS1 valid (2 records, 2 autosave marks)")
}

func TestValidate_ValidJSON(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), iocFile("vx1.cue"))
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "VX1", data["ioc"])
	assert.Equal(t, true, data["valid"])
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		wantCode string
		wantExit int
	}{
		{name: "missing file", file: "nope.yaml", wantCode: ErrCodeNotFound, wantExit: ExitCommandError},
		{name: "schema violation", file: "unknown_key.yaml", wantCode: ErrCodeSchema, wantExit: ExitFailure},
		{name: "invalid autosave field", file: "bad_field.yaml", wantCode: ErrCodeInvalidField, wantExit: ExitFailure},
		{name: "missing root path", file: "no_path.yaml", wantCode: ErrCodeMissingConfig, wantExit: ExitFailure},
		{name: "beamline mismatch", file: "bl_mismatch.yaml", wantCode: ErrCodeConfigMismatch, wantExit: ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), iocFile(tt.file))

			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantCode)
			assert.Contains(t, out, "Error ["+tt.wantCode+"]")
		})
	}
}

func TestValidate_ExtraRecordTypes(t *testing.T) {
	dir := t.TempDir()
	def := filepath.Join(dir, "mot.yaml")
	require.NoError(t, os.WriteFile(def, []byte(`ioc: MOT
autosave: {path: /data}
records:
  - name: "MOT:X"
    type: motor
    autosave: {pass0: [VELO]}
`), 0644))
	schema := filepath.Join(dir, "motor.yaml")
	require.NoError(t, os.WriteFile(schema, []byte("common: [DESC]\ntypes:\n  motor: [VAL, VELO]\n"), 0644))

	_, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeUnknownField)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), def, "--schema", schema)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ MOT valid")

	_, err = execute(t, NewValidateCommand(&RootOptions{Format: "text"}), def, "--schema", filepath.Join(dir, "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeRecordTypes)
}

func TestGenerate_WritesFiles(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, NewGenerateCommand(&RootOptions{Format: "text"}), iocFile("ts1.yaml"), "-o", dir)
	require.NoError(t, err)

	for _, name := range []string{"db/TS1.db", "db/TS1_expanded.substitutions", "db/Makefile", "stTS1.cmd"} {
		assert.FileExists(t, filepath.Join(dir, filepath.FromSlash(name)))
		assert.Contains(t, out, "wrote "+name)
	}

	db, err := os.ReadFile(filepath.Join(dir, "db", "TS1.db"))
	require.NoError(t, err)
	assert.Contains(t, string(db), "{\n#% autosave 0 VAL\n#% autosave 1 DRVH\n    field(DESC, \"Setpoint\")\n")

	mk, err := os.ReadFile(filepath.Join(dir, "db", "Makefile"))
	require.NoError(t, err)
	assert.Contains(t, string(mk), "%_0.req %_1.req %_2.req: ../%.db %_expanded.substitutions\n")
	assert.Contains(t, string(mk), "DATA += TS1_2.req\n")

	boot, err := os.ReadFile(filepath.Join(dir, "stTS1.cmd"))
	require.NoError(t, err)
	assert.Contains(t, string(boot), "set_savefile_path \"/data/ioc/TS1\"\n")
	assert.Contains(t, string(boot), "iocInit\n\ncreate_monitor_set \"TS1_0.req\",  5, \"\"\n")
}

func TestGenerate_JSON(t *testing.T) {
	out, err := execute(t, NewGenerateCommand(&RootOptions{Format: "json"}), iocFile("vx1.cue"), "-o", t.TempDir())
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   GenerateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "VX1", resp.Data.IOC)
	assert.Len(t, resp.Data.Files, 4)
	assert.Len(t, resp.Data.ManifestHash, 64)
	assert.Nil(t, resp.Data.Run)
}

func TestGenerate_FailureWritesNothing(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, NewGenerateCommand(&RootOptions{Format: "text"}), iocFile("no_path.yaml"), "-o", dir)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerateCheckHistory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")
	def := copyIOC(t, "ts1.yaml")
	ids := testutil.NewSequenceIDGenerator("run")
	opts := &RootOptions{Format: "text"}

	_, err := execute(t, NewCheckCommand(opts), def, "--db", dbPath)
	require.Error(t, err, "history database does not exist yet")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)

	out, err := execute(t, newGenerateCommand(opts, ids), def, "-o", filepath.Join(dir, "out"), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "recorded run run-0001 (seq 1)")

	out, err = execute(t, NewCheckCommand(opts), def, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ TS1 matches run run-0001 (seq 1)")

	data, err := os.ReadFile(def)
	require.NoError(t, err)
	changed := strings.Replace(string(data), "/data/ioc", "/data/other", 1)
	require.NoError(t, os.WriteFile(def, []byte(changed), 0644))

	out, err = execute(t, NewCheckCommand(opts), def, "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ TS1 drifted from run run-0001 (seq 1)")
	assert.Contains(t, out, "  modified stTS1.cmd\n")
	assert.NotContains(t, out, "db/TS1.db", "only the boot script depends on the root path")

	_, err = execute(t, newGenerateCommand(opts, ids), def, "-o", filepath.Join(dir, "out"), "--db", dbPath)
	require.NoError(t, err)

	out, err = execute(t, NewHistoryCommand(opts), "TS1", "--db", dbPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "run-0001")
	assert.Contains(t, lines[1], "run-0002")
	assert.Contains(t, lines[1], "linux-x86_64")
}

func TestCheck_DriftJSON(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")
	def := copyIOC(t, "ts1.yaml")
	ids := testutil.NewFixedIDGenerator("run-a")

	_, err := execute(t, newGenerateCommand(&RootOptions{Format: "text"}, ids), def, "-o", dir, "--db", dbPath)
	require.NoError(t, err)

	data, err := os.ReadFile(def)
	require.NoError(t, err)
	changed := strings.Replace(string(data), "fields: {DESC: Setpoint, EGU: mA}", "fields: {DESC: Setpoint, EGU: A}", 1)
	require.NoError(t, os.WriteFile(def, []byte(changed), 0644))

	out, err := execute(t, NewCheckCommand(&RootOptions{Format: "json"}), def, "--db", dbPath)
	require.Error(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   CheckResult `json:"data"`
		Error  *CLIError   `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeDrift, resp.Error.Code)
	assert.Equal(t, "run-a", resp.Data.Run.ID)
	require.Len(t, resp.Data.Changes, 1)
	assert.Equal(t, "db/TS1.db", resp.Data.Changes[0].Name)
}

func TestCheck_NoHistoryForIOC(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")

	_, err := execute(t, newGenerateCommand(&RootOptions{Format: "text"}, testutil.NewFixedIDGenerator("")), iocFile("vx1.cue"), "-o", dir, "--db", dbPath)
	require.NoError(t, err)

	out, err := execute(t, NewCheckCommand(&RootOptions{Format: "text"}), iocFile("ts1.yaml"), "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeNoHistory+"]")
}

func TestHistory_Empty(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")
	_, err := execute(t, newGenerateCommand(&RootOptions{Format: "text"}, testutil.NewFixedIDGenerator("")), iocFile("vx1.cue"), "-o", dir, "--db", dbPath)
	require.NoError(t, err)

	out, err := execute(t, NewHistoryCommand(&RootOptions{Format: "text"}), "TS1", "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "no recorded runs for TS1\n", out)

	out, err = execute(t, NewHistoryCommand(&RootOptions{Format: "json"}), "VX1", "--db", dbPath)
	require.NoError(t, err)
	var resp struct {
		Data HistoryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, "test-run-default", resp.Data.Runs[0].ID)
}

func TestClassify(t *testing.T) {
	code, exit := classify(assert.AnError)
	assert.Equal(t, ErrCodeGeneric, code)
	assert.Equal(t, ExitFailure, exit)
}
