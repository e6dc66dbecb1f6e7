package dataset

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
)

func TestFromFrameRejectsEmptyLabelCell(t *testing.T) {
	feats := "address,FLAG,balance\n" +
		"0xaaa,,5.0\n" +
		"0xbbb,0,1.0\n"
	tx := "hash,value\n"

	f, err := NewLoader(testLogger()).Load(strings.NewReader(tx), strings.NewReader(feats))
	require.NoError(t, err)

	_, err = FromFrame(f)
	assert.True(t, errors.Is(err, domain.ErrMissingLabel))
	assert.Contains(t, err.Error(), "row 0")
}

func TestFromFrameBinarizesLabels(t *testing.T) {
	f := NewFrame(3)
	f.SetNumeric("fraud_label", []float64{0, 1, 2})
	f.SetNumeric("balance", []float64{1, 2, 3})

	d, err := FromFrame(f)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1}, d.Y)
	assert.Equal(t, []string{"balance"}, d.Features)
	assert.Equal(t, []string{"unknown", "unknown", "unknown"}, d.Addresses)
}
