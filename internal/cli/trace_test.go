package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// journalWithTwoPasses records a Subtract1 swap then an FFT1 window change.
func journalWithTwoPasses(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "journal.db")
	_, err := runCLI(t, "set", benchGraph, "Subtract1",
		"--input", "IN+=scope.CH2", "--input", "IN-=scope.CH1", "--db", db)
	require.NoError(t, err)
	_, err = runCLI(t, "set", benchGraph, "FFT1", "--param", "Window=Hamming", "--db", db)
	require.NoError(t, err)
	return db
}

func TestTrace_Timeline(t *testing.T) {
	db := journalWithTwoPasses(t)

	out, err := runCLI(t, "--format", "json", "trace", "--db", db)
	require.NoError(t, err)

	var result TraceResult
	decodeData(t, out, &result)
	require.Len(t, result.Timeline, 2)
	assert.Equal(t, int64(1), result.Timeline[0].Seq)
	assert.Equal(t, "Subtract1", result.Timeline[0].Node)
	assert.Equal(t, []BindingView{
		{Input: "IN+", Stream: "scope.CH2"},
		{Input: "IN-", Stream: "scope.CH1"},
	}, result.Timeline[0].Inputs)
	assert.Equal(t, "FFT1", result.Timeline[1].Node)

	assert.Equal(t, TraceStats{
		Passes:  2,
		Nodes:   []string{"FFT1", "Subtract1"},
		Inputs:  2,
		Params:  1,
		Names:   1,
		LastSeq: 2,
	}, result.Stats)
}

func TestTrace_NodeFilter(t *testing.T) {
	db := journalWithTwoPasses(t)

	out, err := runCLI(t, "trace", "--db", db, "--node", "FFT1")
	require.NoError(t, err)
	assert.Contains(t, out, "Journal for node: FFT1")
	assert.Contains(t, out, `[2] FFT1 (FFT) "FFT(CH2 - CH1)"`)
	assert.Contains(t, out, `param Window: "Hann" -> "Hamming"`)
	assert.NotContains(t, out, "Subtract1")
	assert.Contains(t, out, "Param changes:  1")
}

func TestTrace_SinglePass(t *testing.T) {
	db := journalWithTwoPasses(t)

	out, err := runCLI(t, "--format", "json", "trace", "--db", db)
	require.NoError(t, err)
	var all TraceResult
	decodeData(t, out, &all)
	id := all.Timeline[1].ID

	out, err = runCLI(t, "--format", "json", "trace", "--db", db, "--pass", id)
	require.NoError(t, err)
	var one TraceResult
	decodeData(t, out, &one)
	require.Len(t, one.Timeline, 1)
	assert.Equal(t, id, one.Timeline[0].ID)
	assert.Equal(t, 1, one.Stats.Params)
	assert.Zero(t, one.Stats.Inputs)
}

func TestTrace_Errors(t *testing.T) {
	db := journalWithTwoPasses(t)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"no database", []string{"trace"}, ErrCodeBadFlag},
		{"missing journal", []string{"trace", "--db", filepath.Join(t.TempDir(), "none.db")}, ErrCodeJournal},
		{"unknown pass", []string{"trace", "--db", db, "--pass", "nope"}, ErrCodeJournal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}
