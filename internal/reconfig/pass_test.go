package reconfig

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mldulaney/scopehal-apps/internal/graph"
	"github.com/mldulaney/scopehal-apps/internal/param"
	"github.com/mldulaney/scopehal-apps/internal/testutil"
	"github.com/mldulaney/scopehal-apps/internal/unit"
)

func TestSetInput_EmitsOneEvent(t *testing.T) {
	b := testutil.NewBench(t)
	fft := b.Node(t, "FFT")
	c, log := newBenchController(t, b)

	ed := c.Open(fft)
	defer ed.Close()

	out, err := ed.SetInput(context.Background(), 0, testutil.Stream(b.CH1))
	require.NoError(t, err)
	require.True(t, out.Reconfigured())
	require.NotNil(t, out.Event)

	want := []Change{
		{Kind: ChangeInput, Field: "din", Old: "NULL", New: "scope.CH1"},
		{Kind: ChangeName, Field: DisplayNameField, Old: "FFT(NULL)", New: "FFT(CH1)"},
	}
	if diff := cmp.Diff(want, out.Changes); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, log.events, 1)
	assert.Equal(t, "pass-0001", log.events[0].PassID)
	assert.Equal(t, int64(1), log.events[0].Seq)
	assert.Same(t, fft, log.events[0].Node)
	assert.Equal(t, "FFT(CH1)", ed.WorkingName())
}

func TestSetInput_SameStreamIsNotAChange(t *testing.T) {
	b := testutil.NewBench(t)
	fft := b.Node(t, "FFT")
	c, log := newBenchController(t, b)

	ed := c.Open(fft)
	defer ed.Close()

	_, err := ed.SetInput(context.Background(), 0, testutil.Stream(b.CH1))
	require.NoError(t, err)

	out, err := ed.SetInput(context.Background(), 0, testutil.Stream(b.CH1))
	require.NoError(t, err)
	assert.False(t, out.Reconfigured())
	assert.Nil(t, out.Event)
	assert.Len(t, log.events, 1, "no event for an unchanged binding")
	assert.Equal(t, "scope.CH1", fft.Input(0).Ref())
}

func TestSetInput_NotACandidate(t *testing.T) {
	b := testutil.NewBench(t)
	fft := b.Node(t, "FFT")
	c, log := newBenchController(t, b)

	ed := c.Open(fft)
	defer ed.Close()

	clk := graph.StreamDescriptor{Producer: b.LA, Index: 0}
	_, err := ed.SetInput(context.Background(), 0, clk)
	assert.True(t, IsIncompatibleStream(err))
	assert.True(t, fft.Input(0).IsNone())
	assert.Empty(t, log.events)

	// The failed call must not leave a pass open.
	p, err := ed.BeginPass()
	require.NoError(t, err)
	p.Abandon()
}

func TestSetInput_Sentinel(t *testing.T) {
	b := testutil.NewBench(t)
	fft := b.Node(t, "FFT")
	b.Bind(t, fft, 0, testutil.Stream(b.CH2))
	c, _ := newBenchController(t, b)

	ed := c.Open(fft)
	defer ed.Close()

	out, err := ed.SetInput(context.Background(), 0, graph.None())
	require.NoError(t, err)
	require.True(t, out.Reconfigured())
	assert.Equal(t, Change{Kind: ChangeInput, Field: "din", Old: "scope.CH2", New: "NULL"}, out.Changes[0])
	assert.True(t, fft.Input(0).IsNone())
}

func TestSelectCandidate(t *testing.T) {
	b := testutil.NewBench(t)
	fft := b.Node(t, "FFT")
	c, _ := newBenchController(t, b)

	ed := c.Open(fft)
	defer ed.Close()

	p, err := ed.BeginPass()
	require.NoError(t, err)
	cands, selected, err := p.Candidates(0)
	require.NoError(t, err)
	assert.Equal(t, 0, selected)

	idx := -1
	for i, cand := range cands {
		if cand.Label == "CH2" {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	require.NoError(t, p.SelectCandidate(0, idx))
	assert.True(t, IsIncompatibleStream(p.SelectCandidate(0, len(cands))))

	_, err = p.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "scope.CH2", fft.Input(0).Ref())
}

func TestCommitParamEdit_ValueAndText(t *testing.T) {
	b := testutil.NewBench(t)
	th := b.Node(t, "Threshold")
	c, _ := newBenchController(t, b)

	ed := c.Open(th)
	defer ed.Close()

	out, err := ed.CommitParamEdit(context.Background(), "Threshold", "3.3 V")
	require.NoError(t, err)
	require.True(t, out.Reconfigured())
	assert.Equal(t, Change{Kind: ChangeParam, Field: "Threshold", Old: "0 V", New: "3.3 V", Value: "3.3 V"}, out.Changes[0])

	v, err := th.Params().Float("Threshold")
	require.NoError(t, err)
	assert.InDelta(t, 3.3, v, 1e-12)
	assert.Equal(t, "Threshold(NULL, 3.3 V)", th.DisplayName())

	text, ok := ed.PendingText("Threshold")
	assert.True(t, ok)
	assert.Equal(t, "3.3 V", text, "committed text stays in the field")
}

func TestCommitParamEdit_InvalidFormatKeepsValue(t *testing.T) {
	b := testutil.NewBench(t)
	th := b.Node(t, "Threshold")
	c, log := newBenchController(t, b)

	ed := c.Open(th)
	defer ed.Close()

	_, err := ed.CommitParamEdit(context.Background(), "Threshold", "3.3")
	require.NoError(t, err)
	require.Len(t, log.events, 1)

	out, err := ed.CommitParamEdit(context.Background(), "Threshold", "not_a_number")
	require.Error(t, err)
	assert.True(t, IsInvalidFormat(err))
	assert.True(t, errors.Is(err, unit.ErrInvalidFormat))
	require.NotNil(t, out)
	assert.False(t, out.Reconfigured())
	require.Len(t, out.Rejections, 1)
	assert.Equal(t, "Threshold", out.Rejections[0].Field)

	v, err := th.Params().Float("Threshold")
	require.NoError(t, err)
	assert.InDelta(t, 3.3, v, 1e-12)

	text, ok := ed.PendingText("Threshold")
	assert.True(t, ok)
	assert.Equal(t, "not_a_number", text)
	assert.Len(t, log.events, 1, "rejected edit emits nothing")
}

func TestCommitParamEdit_Kinds(t *testing.T) {
	b := testutil.NewBench(t)
	uart := b.Node(t, "UART")
	c, _ := newBenchController(t, b)

	ed := c.Open(uart)
	defer ed.Close()
	ctx := context.Background()

	_, err := ed.CommitParamEdit(ctx, "Baud Rate", "9600")
	require.NoError(t, err)
	n, err := uart.Params().Int("Baud Rate")
	require.NoError(t, err)
	assert.Equal(t, int64(9600), n)

	_, err = ed.CommitParamEdit(ctx, "Parity", "Even")
	require.NoError(t, err)
	code, err := uart.Params().Enum("Parity")
	require.NoError(t, err)
	assert.Equal(t, int32(2), code)

	_, err = ed.CommitParamEdit(ctx, "Parity", "Sideways")
	assert.True(t, IsInvalidFormat(err))

	_, err = ed.CommitParamEdit(ctx, "Invert", "true")
	require.NoError(t, err)
	inv, err := uart.Params().Bool("Invert")
	require.NoError(t, err)
	assert.True(t, inv)

	_, err = ed.CommitParamEdit(ctx, "Label", "console")
	require.NoError(t, err)
	assert.Equal(t, "UART(NULL, 9.6 kBd) console", uart.DisplayName())
}

func TestCommitParamEdit_UnsupportedKind(t *testing.T) {
	b := testutil.NewBench(t)
	uart := b.Node(t, "UART")
	c, _ := newBenchController(t, b)

	ed := c.Open(uart)
	defer ed.Close()

	before, _ := uart.Params().Get("Idle Pattern")
	out, err := ed.CommitParamEdit(context.Background(), "Idle Pattern", "K28.1")
	assert.True(t, IsUnsupportedKind(err))
	require.NotNil(t, out)
	assert.False(t, out.Reconfigured())

	after, _ := uart.Params().Get("Idle Pattern")
	assert.True(t, param.Equal(before.Value, after.Value))
}

func TestCommitParamEdit_UnknownParameter(t *testing.T) {
	b := testutil.NewBench(t)
	fft := b.Node(t, "FFT")
	c, _ := newBenchController(t, b)

	ed := c.Open(fft)
	defer ed.Close()

	_, err := ed.CommitParamEdit(context.Background(), "Overlap", "50")
	assert.True(t, IsUnknownParameter(err))
}

func TestPass_BatchesEverythingIntoOneEvent(t *testing.T) {
	b := testutil.NewBench(t)
	eye := b.Node(t, "Eye")
	c, log := newBenchController(t, b)

	ed := c.Open(eye)
	defer ed.Close()

	p, err := ed.BeginPass()
	require.NoError(t, err)
	// Staged out of order; applied inputs first, by index.
	require.NoError(t, p.EditParam("Center Voltage", "100 mV"))
	require.NoError(t, p.SelectInput(1, graph.StreamDescriptor{Producer: b.LA, Index: 0}))
	require.NoError(t, p.SelectInput(0, testutil.Stream(b.CH1)))

	out, err := p.Commit(context.Background())
	require.NoError(t, err)

	want := []Change{
		{Kind: ChangeInput, Field: "din", Old: "NULL", New: "scope.CH1"},
		{Kind: ChangeInput, Field: "clk", Old: "NULL", New: "scope.LA.clk"},
		{Kind: ChangeParam, Field: "Center Voltage", Old: "0 V", New: "100 mV", Value: "0.1 V"},
		{Kind: ChangeName, Field: DisplayNameField, Old: "Eye(NULL)", New: "Eye(CH1)"},
	}
	if diff := cmp.Diff(want, out.Changes); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, log.events, 1)
	assert.Equal(t, want, log.events[0].Changes)
}

func TestPass_RejectionsDoNotBlockOtherEdits(t *testing.T) {
	b := testutil.NewBench(t)
	lpf := b.Node(t, "LowPass")
	c, log := newBenchController(t, b)

	ed := c.Open(lpf)
	defer ed.Close()

	p, err := ed.BeginPass()
	require.NoError(t, err)
	require.NoError(t, p.EditParam("Cutoff Frequency", "fast"))
	require.NoError(t, p.EditParam("Ripple", "1 dB"))
	require.NoError(t, p.EditParam("Order", "8"))

	out, err := p.Commit(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Rejections, 2)
	assert.Equal(t, ErrCodeInvalidFormat, out.Rejections[0].Code)
	assert.Equal(t, ErrCodeUnknownParameter, out.Rejections[1].Code)

	agg := out.Err()
	require.Error(t, agg)
	assert.True(t, IsInvalidFormat(agg))

	assert.True(t, out.Reconfigured())
	order, err := lpf.Params().Int("Order")
	require.NoError(t, err)
	assert.Equal(t, int64(8), order)
	require.Len(t, log.events, 1)
}

func TestPass_AbandonHasNoSideEffects(t *testing.T) {
	b := testutil.NewBench(t)
	lpf := b.Node(t, "LowPass")
	c, log := newBenchController(t, b)

	ed := c.Open(lpf)
	defer ed.Close()
	name := lpf.DisplayName()

	p, err := ed.BeginPass()
	require.NoError(t, err)
	require.NoError(t, p.SelectInput(0, testutil.Stream(b.CH1)))
	require.NoError(t, p.EditParam("Cutoff Frequency", "2 MHz"))
	require.NoError(t, p.Rename("smooth"))
	p.Abandon()
	p.Abandon()

	assert.True(t, lpf.Input(0).IsNone())
	v, err := lpf.Params().Float("Cutoff Frequency")
	require.NoError(t, err)
	assert.Equal(t, 1e6, v)
	assert.Equal(t, name, lpf.DisplayName())
	assert.True(t, lpf.UsingDefaultName())
	assert.Empty(t, log.events)

	text, ok := ed.PendingText("Cutoff Frequency")
	assert.True(t, ok, "abandoning keeps typed text")
	assert.Equal(t, "2 MHz", text)

	_, err = p.Commit(context.Background())
	assert.True(t, IsPassClosed(err))
	assert.True(t, IsPassClosed(p.SelectInput(0, graph.None())))
}

func TestPass_CommitTwice(t *testing.T) {
	b := testutil.NewBench(t)
	fft := b.Node(t, "FFT")
	c, _ := newBenchController(t, b)

	ed := c.Open(fft)
	defer ed.Close()

	p, err := ed.BeginPass()
	require.NoError(t, err)
	_, err = p.Commit(context.Background())
	require.NoError(t, err)
	_, err = p.Commit(context.Background())
	assert.True(t, IsPassClosed(err))
}

func TestPass_CancelledContext(t *testing.T) {
	b := testutil.NewBench(t)
	fft := b.Node(t, "FFT")
	c, log := newBenchController(t, b)

	ed := c.Open(fft)
	defer ed.Close()

	p, err := ed.BeginPass()
	require.NoError(t, err)
	require.NoError(t, p.SelectInput(0, testutil.Stream(b.CH1)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Commit(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, fft.Input(0).IsNone())
	assert.Empty(t, log.events)

	q, err := ed.BeginPass()
	require.NoError(t, err, "a cancelled commit releases the pass")
	q.Abandon()
}

func TestPass_StaleCandidateRemoved(t *testing.T) {
	b := testutil.NewBench(t)
	sub := b.Node(t, "Subtract")
	fft := b.Node(t, "FFT")
	c, log := newBenchController(t, b)

	ed := c.Open(fft)
	defer ed.Close()

	p, err := ed.BeginPass()
	require.NoError(t, err)
	require.NoError(t, p.SelectInput(0, testutil.Stream(sub)))

	_, err = b.Graph.RemoveNode(sub)
	require.NoError(t, err)

	out, err := p.Commit(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Rejections, 1)
	assert.True(t, IsStaleCandidate(out.Rejections[0]))
	assert.Equal(t, "din", out.Rejections[0].Field)
	assert.True(t, fft.Input(0).IsNone())
	assert.False(t, out.Reconfigured())
	assert.Empty(t, log.events)
}

func TestPass_StaleCandidateNowIllegal(t *testing.T) {
	b := testutil.NewBench(t)
	sub := b.Node(t, "Subtract")
	b.Bind(t, sub, 0, testutil.Stream(b.CH1))
	c, _ := newBenchController(t, b)

	ed := c.Open(sub)
	defer ed.Close()

	p, err := ed.BeginPass()
	require.NoError(t, err)
	require.NoError(t, p.SelectInput(1, testutil.Stream(b.CH2)))

	// The other input moves to a current channel behind the pass's back.
	b.Bind(t, sub, 0, testutil.Stream(b.I1))

	out, err := p.Commit(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Rejections, 1)
	assert.Equal(t, ErrCodeStaleCandidate, out.Rejections[0].Code)
	assert.True(t, sub.Input(1).IsNone())
}

func TestPass_LaterInputCheckedAgainstEarlierOne(t *testing.T) {
	b := testutil.NewBench(t)
	sub := b.Node(t, "Subtract")
	c, log := newBenchController(t, b)

	ed := c.Open(sub)
	defer ed.Close()

	p, err := ed.BeginPass()
	require.NoError(t, err)
	// Both inputs are NULL, so each is offered volts and amps alike.
	require.NoError(t, p.SelectInput(0, testutil.Stream(b.CH1)))
	require.NoError(t, p.SelectInput(1, testutil.Stream(b.I1)))

	out, err := p.Commit(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Rejections, 1)
	assert.Equal(t, ErrCodeStaleCandidate, out.Rejections[0].Code)
	assert.Equal(t, "IN-", out.Rejections[0].Field)

	assert.Equal(t, "scope.CH1", sub.Input(0).Ref())
	assert.True(t, sub.Input(1).IsNone())
	assert.True(t, b.Filters.Validators().Valid(sub, 0, sub.Input(0)))
	require.Len(t, log.events, 1)
}

func TestPass_MatchingPairCommitsTogether(t *testing.T) {
	b := testutil.NewBench(t)
	sub := b.Node(t, "Subtract")
	c, _ := newBenchController(t, b)

	ed := c.Open(sub)
	defer ed.Close()

	p, err := ed.BeginPass()
	require.NoError(t, err)
	require.NoError(t, p.SelectInput(0, testutil.Stream(b.CH1)))
	require.NoError(t, p.SelectInput(1, testutil.Stream(b.CH2)))

	out, err := p.Commit(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out.Rejections)
	assert.Equal(t, "scope.CH1", sub.Input(0).Ref())
	assert.Equal(t, "scope.CH2", sub.Input(1).Ref())
}

func TestPass_StaleButStillLegal(t *testing.T) {
	b := testutil.NewBench(t)
	fft := b.Node(t, "FFT")
	c, _ := newBenchController(t, b)

	ed := c.Open(fft)
	defer ed.Close()

	p, err := ed.BeginPass()
	require.NoError(t, err)
	require.NoError(t, p.SelectInput(0, testutil.Stream(b.CH1)))

	b.Node(t, "LowPass")

	out, err := p.Commit(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out.Rejections)
	assert.Equal(t, "scope.CH1", fft.Input(0).Ref())
}

func TestPass_RenameAndUseDefault(t *testing.T) {
	b := testutil.NewBench(t)
	sub := b.Node(t, "Subtract")
	c, _ := newBenchController(t, b)

	ed := c.Open(sub)
	defer ed.Close()
	ctx := context.Background()

	p, err := ed.BeginPass()
	require.NoError(t, err)
	require.NoError(t, p.Rename("diff"))
	out, err := p.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Change{{Kind: ChangeName, Field: DisplayNameField, Old: "NULL - NULL", New: "diff"}}, out.Changes)
	assert.False(t, sub.UsingDefaultName())
	assert.Equal(t, "diff", ed.WorkingName())

	out, err = ed.SetInput(ctx, 0, testutil.Stream(b.CH1))
	require.NoError(t, err)
	require.Len(t, out.Changes, 1, "user names are not regenerated")
	assert.Equal(t, "diff", sub.DisplayName())

	p, err = ed.BeginPass()
	require.NoError(t, err)
	require.NoError(t, p.UseDefaultName())
	out, err = p.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Change{{Kind: ChangeName, Field: DisplayNameField, Old: "diff", New: "CH1 - NULL"}}, out.Changes)
	assert.True(t, sub.UsingDefaultName())
}

type fixedNamer string

func (f fixedNamer) DefaultName(*graph.Node) (string, bool) {
	return string(f), true
}

func TestPass_DefaultNameIndependentOfBinding(t *testing.T) {
	b := testutil.NewBench(t)
	n, err := graph.NewNode(graph.NodeConfig{
		Type:    "Gain",
		HWName:  "FILTER1",
		Inputs:  []graph.InputPort{{Name: "in"}},
		Outputs: []graph.Stream{{Name: "out", Type: graph.StreamAnalog}},
	})
	require.NoError(t, err)
	require.NoError(t, b.Graph.AddNode(n))

	c := New(b.Graph, WithNamer(fixedNamer("FILTER1")), WithLogger(discardLogger()))
	ed := c.Open(n)
	defer ed.Close()

	out, err := ed.SetInput(context.Background(), 0, testutil.Stream(b.CH1))
	require.NoError(t, err)
	require.Len(t, out.Changes, 1)
	assert.Equal(t, ChangeInput, out.Changes[0].Kind)
	assert.Equal(t, "FILTER1", n.DisplayName())
	assert.True(t, n.UsingDefaultName())
}

func TestPass_ListenerErrorsAreReported(t *testing.T) {
	b := testutil.NewBench(t)
	fft := b.Node(t, "FFT")
	boom := errors.New("disk full")
	c, log := newBenchController(t, b, WithListener(ListenerFunc(func(context.Context, Event) error {
		return boom
	})))

	ed := c.Open(fft)
	defer ed.Close()

	out, err := ed.SetInput(context.Background(), 0, testutil.Stream(b.CH1))
	require.NoError(t, err)
	require.Len(t, out.ListenerErrors, 1)
	assert.ErrorIs(t, out.ListenerErrors[0], boom)
	assert.Equal(t, "scope.CH1", fft.Input(0).Ref(), "listener failure does not undo the pass")
	assert.Len(t, log.events, 1, "other listeners still run")
}

func TestPass_SequenceIncreases(t *testing.T) {
	b := testutil.NewBench(t)
	fft := b.Node(t, "FFT")
	lpf := b.Node(t, "LowPass")
	c, log := newBenchController(t, b)
	ctx := context.Background()

	edFFT := c.Open(fft)
	_, err := edFFT.SetInput(ctx, 0, testutil.Stream(b.CH1))
	require.NoError(t, err)
	edFFT.Close()

	edLPF := c.Open(lpf)
	_, err = edLPF.SetInput(ctx, 0, testutil.Stream(b.CH2))
	require.NoError(t, err)
	_, err = edLPF.CommitParamEdit(ctx, "Order", "2")
	require.NoError(t, err)
	edLPF.Close()

	require.Len(t, log.events, 3)
	for i, ev := range log.events {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
	assert.Equal(t, int64(3), c.Clock().Current())
}
