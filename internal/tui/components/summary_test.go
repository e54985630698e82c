package components

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummarySuccessfulRun(t *testing.T) {
	t.Parallel()

	out := NewSummary(SummaryData{Total: 3, Completed: 3, Finished: true, Elapsed: 1.5}).View()
	require.Contains(t, out, "Nodes: 3/3 completed")
	require.Contains(t, out, "Pipeline completed in 1.50s")
}

func TestSummaryFailedRun(t *testing.T) {
	t.Parallel()

	out := NewSummary(SummaryData{
		Total:     3,
		Completed: 1,
		Finished:  true,
		Failed:    true,
		Failure:   "axis stalled",
	}).View()
	require.Contains(t, out, "Pipeline failed: axis stalled")
	require.NotContains(t, out, "completed in")
}

func TestSummaryCancelledRunWinsOverFailure(t *testing.T) {
	t.Parallel()

	out := NewSummary(SummaryData{Total: 2, Cancelled: true, Failed: true}).View()
	require.Contains(t, out, "Run cancelled")
	require.NotContains(t, out, "Pipeline failed")
}

func TestSummaryListsDeviceAlerts(t *testing.T) {
	t.Parallel()

	out := NewSummary(SummaryData{
		Total:  1,
		Alerts: []string{"servo-1: overcurrent", "loadcell-2: drift"},
	}).View()
	require.Contains(t, out, "Device alerts:")
	require.Contains(t, out, "! servo-1: overcurrent")
	require.Contains(t, out, "! loadcell-2: drift")
}

func TestSummaryEmptyWhenNothingToReport(t *testing.T) {
	t.Parallel()

	require.Empty(t, NewSummary(SummaryData{}).View())
}
