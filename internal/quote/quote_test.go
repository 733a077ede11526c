package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupOneCrore(t *testing.T) {
	b, err := Lookup(Bracket1Crore)
	require.NoError(t, err)

	assert.Equal(t, int64(47158), b.GovtTotal)
	assert.Equal(t, int64(25000), b.ServiceFee)
	assert.Equal(t, int64(72158), b.GrandTotal)
}

func TestLookupUnknownBracketFailsLoudly(t *testing.T) {
	_, err := Lookup(Bracket("3_crore"))
	require.ErrorIs(t, err, ErrUnknownBracket)
}

func TestBreakdownInternallyConsistent(t *testing.T) {
	for _, bracket := range Brackets() {
		b, err := Lookup(bracket)
		require.NoError(t, err, "bracket %s", bracket)

		var sum int64
		for _, c := range b.GovtFees {
			assert.GreaterOrEqual(t, c.Amount, int64(0), "bracket %s component %s", bracket, c.Code)
			sum += c.Amount
		}
		assert.Equal(t, sum, b.GovtTotal, "bracket %s", bracket)
		assert.Equal(t, b.GovtTotal+b.ServiceFee, b.GrandTotal, "bracket %s", bracket)
		assert.Positive(t, b.ServiceFee, "bracket %s", bracket)
	}
}

func TestServiceFeeMonotonicAcrossBrackets(t *testing.T) {
	var prev int64
	for _, bracket := range Brackets() {
		b, err := Lookup(bracket)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, b.ServiceFee, prev, "bracket %s", bracket)
		prev = b.ServiceFee
	}
}
