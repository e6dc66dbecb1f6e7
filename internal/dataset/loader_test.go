package dataset

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const featuresCSV = `address,FLAG,balance,total_sent_value,txn_out_cnt,txn_in_cnt
0xAbC0000000000000000000000000000000000001,1,10.5,3.0,4,2
0xabc0000000000000000000000000000000000002,0,2.0,1.0,1,1
0xabc0000000000000000000000000000000000003,0,,0.5,0,3
`

const transactionsCSV = `hash,from_address,to_address,value
0x1,0xabc0000000000000000000000000000000000001,0xabc0000000000000000000000000000000000002,1.0
0x2,0xABC0000000000000000000000000000000000001,0xabc0000000000000000000000000000000000003,2.0
0x3,0xabc0000000000000000000000000000000000002,0xabc0000000000000000000000000000000000001,0.5
`

func TestLoaderLoad(t *testing.T) {
	loader := NewLoader(testLogger())

	frame, err := loader.Load(strings.NewReader(transactionsCSV), strings.NewReader(featuresCSV))
	require.NoError(t, err)
	require.Equal(t, 3, frame.Len())

	// Aliased columns are renamed to the canonical schema.
	assert.True(t, frame.Has("fraud_label"))
	assert.True(t, frame.Has("account_balance"))
	assert.True(t, frame.Has("total_sent"))
	assert.True(t, frame.Has("transaction_frequency_sent"))
	assert.False(t, frame.Has("FLAG"))
	assert.False(t, frame.Has("txn_out_cnt"))

	// Addresses are lowercased.
	addrs, ok := frame.Text("address")
	require.True(t, ok)
	assert.Equal(t, "0xabc0000000000000000000000000000000000001", addrs[0])

	// Per-address counts come from the ledger: out-edges plus in-edges,
	// case-insensitive.
	counts, ok := frame.Numeric("transaction_count")
	require.True(t, ok)
	assert.Equal(t, []float64{3, 2, 1}, counts)

	// The empty balance cell is filled with zero; the label is untouched.
	balance, ok := frame.Numeric("account_balance")
	require.True(t, ok)
	assert.Equal(t, 0.0, balance[2])
	label, ok := frame.Numeric("fraud_label")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 0, 0}, label)
}

func TestLoaderFallbackCounts(t *testing.T) {
	// Ledger without from/to columns falls back to the frequency columns.
	noEdges := "hash,value\n0x1,1.0\n"
	loader := NewLoader(testLogger())

	frame, err := loader.Load(strings.NewReader(noEdges), strings.NewReader(featuresCSV))
	require.NoError(t, err)

	counts, ok := frame.Numeric("transaction_count")
	require.True(t, ok)
	assert.Equal(t, []float64{6, 2, 3}, counts)
}

func TestLoaderMissingColumns(t *testing.T) {
	tests := []struct {
		name     string
		features string
	}{
		{name: "no address", features: "FLAG,balance\n1,2.0\n"},
		{name: "no label", features: "address,balance\n0xabc,2.0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := NewLoader(testLogger())
			_, err := loader.Load(strings.NewReader(transactionsCSV), strings.NewReader(tt.features))
			assert.True(t, errors.Is(err, domain.ErrMissingColumn))
		})
	}
}
