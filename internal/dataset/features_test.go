package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func engineerFrame() *Frame {
	f := NewFrame(4)
	f.SetNumeric("total_sent", []float64{10, 0, 4, 2})
	f.SetNumeric("total_received", []float64{5, 0, 8, 2})
	f.SetNumeric("avg_transaction_sent", []float64{2, 0, 1, 1})
	f.SetNumeric("avg_transaction_received", []float64{1, 0, 2, 1})
	f.SetNumeric("transaction_frequency_sent", []float64{5, 0, 4, 2})
	f.SetNumeric("transaction_frequency_received", []float64{5, 0, 4, 2})
	f.SetNumeric("contract_creation", []float64{1, 0, 0, 0})
	f.SetNumeric("contract_interaction", []float64{1, 0, 0, 2})
	f.SetNumeric("account_balance", []float64{100, 0, 10, 1})
	f.SetNumeric("transaction_count", []float64{10, 0, 8, 4})
	f.SetNumeric("max_transaction_sent", []float64{6, 0, 3, 2})
	f.SetNumeric("min_transaction_sent", []float64{1, 0, 1, 1})
	f.SetNumeric("max_transaction_received", []float64{3, 0, 4, 2})
	f.SetNumeric("min_transaction_received", []float64{1, 0, 2, 1})
	return f
}

func TestEngineerRatios(t *testing.T) {
	f := engineerFrame()
	Engineer(f)

	ratio, ok := f.Numeric("sent_to_received_ratio")
	require.True(t, ok)
	assert.InDelta(t, 2.0, ratio[0], 1e-9)
	// Zero denominators are shifted by epsilon, never a division error.
	assert.InDelta(t, 0.0, ratio[1], 1e-9)
	assert.False(t, math.IsInf(ratio[1], 0))

	avgRatio, _ := f.Numeric("avg_sent_to_avg_received")
	assert.InDelta(t, 2.0, avgRatio[0], 1e-9)
	assert.InDelta(t, 0.5, avgRatio[2], 1e-9)

	contractRatio, _ := f.Numeric("interaction_with_contract_ratio")
	// (1+1) / (10 + 10) for the first row.
	assert.InDelta(t, 0.1, contractRatio[0], 1e-9)

	netFlow, _ := f.Numeric("net_flow")
	assert.Equal(t, []float64{-5, 0, 4, 0}, netFlow)

	spreadSent, _ := f.Numeric("spread_sent")
	assert.Equal(t, []float64{5, 0, 2, 1}, spreadSent)
	spreadReceived, _ := f.Numeric("spread_received")
	assert.Equal(t, []float64{2, 0, 2, 1}, spreadReceived)

	logBalance, _ := f.Numeric("log_balance")
	assert.InDelta(t, math.Log1p(100), logBalance[0], 1e-9)
	logCount, _ := f.Numeric("log_txn_count")
	assert.InDelta(t, math.Log1p(10), logCount[0], 1e-9)
}

func TestEngineerFlags(t *testing.T) {
	f := engineerFrame()
	Engineer(f)

	// Only the top balance reaches the 95th percentile.
	highBalance, _ := f.Numeric("is_high_balance")
	assert.Equal(t, []float64{1, 0, 0, 0}, highBalance)

	contractActivity, _ := f.Numeric("contract_activity_flag")
	assert.Equal(t, []float64{1, 0, 0, 1}, contractActivity)

	// Total frequencies 10, 0, 8, 4: the 75th percentile of the nonzero
	// values is 9, so only the first row is flagged.
	highFreq, _ := f.Numeric("high_txn_freq_flag")
	assert.Equal(t, []float64{1, 0, 0, 0}, highFreq)
}

func TestHighFreqFlagAllZero(t *testing.T) {
	// A degenerate distribution collapses the threshold to zero, flagging
	// every row.
	assert.Equal(t, []float64{1, 1, 1}, highFreqFlag([]float64{0, 0, 0}))
}

func TestHighBalanceFlagAbsentColumn(t *testing.T) {
	// No balance column at all: nothing should be flagged, not everything.
	f := NewFrame(3)
	f.SetNumeric("total_sent", []float64{1, 2, 3})
	Engineer(f)

	flag, ok := f.Numeric("is_high_balance")
	require.True(t, ok)
	assert.Equal(t, []float64{0, 0, 0}, flag)
}

func TestEngineerMissingSources(t *testing.T) {
	f := NewFrame(2)
	f.SetNumeric("fraud_label", []float64{0, 1})
	Engineer(f)

	ratio, ok := f.Numeric("sent_to_received_ratio")
	require.True(t, ok)
	assert.Equal(t, []float64{0, 0}, ratio)
}
