package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_SwapInputsRenamesDownstream(t *testing.T) {
	out, err := runCLI(t, "--format", "json", "set", benchGraph, "Subtract1",
		"--input", "IN+=scope.CH2", "--input", "IN-=scope.CH1")
	require.NoError(t, err)

	var result SetResult
	status, _ := decodeData(t, out, &result)
	assert.Equal(t, "ok", status)
	assert.True(t, result.Reconfigured)
	assert.Equal(t, int64(1), result.Seq)
	assert.Equal(t, "CH2 - CH1", result.DisplayName)
	assert.Equal(t, []ChangeView{
		{Kind: "input", Field: "IN+", Old: "scope.CH1", New: "scope.CH2"},
		{Kind: "input", Field: "IN-", Old: "scope.CH2", New: "scope.CH1"},
		{Kind: "name", Field: "display_name", Old: "CH1 - CH2", New: "CH2 - CH1"},
	}, result.Changes)
	assert.Equal(t, []RenameView{
		{Node: "FFT1", Old: "FFT(CH1 - CH2)", New: "FFT(CH2 - CH1)"},
	}, result.Renames)
	assert.Empty(t, result.Rejections)
}

func TestSet_JournalCarriesAcrossRuns(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")

	_, err := runCLI(t, "set", benchGraph, "Subtract1",
		"--input", "IN+=scope.CH2", "--input", "IN-=scope.CH1", "--db", db)
	require.NoError(t, err)

	// The second run starts from the description, so it only sees the swap
	// through the journal.
	out, err := runCLI(t, "--format", "json", "inputs", benchGraph, "Subtract1", "--db", db)
	require.NoError(t, err)
	var inputs InputsResult
	decodeData(t, out, &inputs)
	assert.Equal(t, "CH2 - CH1", inputs.DisplayName)
	assert.Equal(t, "scope.CH2", inputs.Inputs[0].Ref)

	out, err = runCLI(t, "--format", "json", "set", benchGraph, "FFT1", "--name", "spectrum", "--db", db)
	require.NoError(t, err)
	var result SetResult
	decodeData(t, out, &result)
	assert.Equal(t, int64(2), result.Seq, "clock resumes after the journal")
	assert.Equal(t, []ChangeView{
		{Kind: "name", Field: "display_name", Old: "FFT(CH2 - CH1)", New: "spectrum"},
	}, result.Changes)
}

func TestSet_RejectedEditsExitOne(t *testing.T) {
	out, err := runCLI(t, "set", benchGraph, "FFT1",
		"--param", "Range=loud", "--param", "Window=Hamming")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ FFT1 reconfigured")
	assert.Contains(t, out, `param Window: "Hann" -> "Hamming"`)
	assert.Contains(t, out, "rejected INVALID_FORMAT Range")
	assert.Contains(t, out, "✗ 1 edit(s) rejected")
}

func TestSet_RejectedEditsJSON(t *testing.T) {
	out, err := runCLI(t, "--format", "json", "set", benchGraph, "Subtract1", "--input", "IN+=scope.I1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result SetResult
	status, cliErr := decodeData(t, out, &result)
	assert.Equal(t, "error", status)
	require.NotNil(t, cliErr)
	assert.Equal(t, "INCOMPATIBLE_STREAM", cliErr.Code)
	assert.False(t, result.Reconfigured)
	require.Len(t, result.Rejections, 1)
	assert.Equal(t, "IN+", result.Rejections[0].Field)
}

func TestSet_UnchangedPass(t *testing.T) {
	out, err := runCLI(t, "set", benchGraph, "FFT1", "--param", "Window=Hann")
	require.NoError(t, err)
	assert.Contains(t, out, "= FFT1 unchanged")
}

func TestSet_BadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"nothing to set", nil, "nothing to set"},
		{"missing equals", []string{"--input", "IN+"}, "want name=value"},
		{"empty key", []string{"--param", "=3"}, "want name=value"},
		{"name and default", []string{"--name", "x", "--default"}, "mutually exclusive"},
		{"unknown port", []string{"--input", "OUT=scope.CH1"}, `has no input "OUT"`},
		{"unknown stream", []string{"--input", "IN+=scope.CH9"}, "no channel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"set", benchGraph, "Subtract1"}, tt.args...)
			out, err := runCLI(t, args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error [E009]")
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestSet_VerboseShowsMetrics(t *testing.T) {
	out, err := runCLI(t, "-v", "set", benchGraph, "FFT1", "--param", "Window=Hamming")
	require.NoError(t, err)
	assert.Contains(t, out, "=== Metrics ===")
	assert.Contains(t, out, "scopecfg_pass_total{result=committed} 1")
	assert.Contains(t, out, "scopecfg_pass_changes_total{kind=param} 1")
}

func TestParsePairs_ValueMayContainEquals(t *testing.T) {
	pairs, err := parsePairs("--param", []string{"Label= a=b "})
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "Label", pairs[0].key)
	assert.Equal(t, " a=b ", pairs[0].value)
}
