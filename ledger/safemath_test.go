package ledger

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeAdd(t *testing.T) {
	sum, err := SafeAdd(uint256.NewInt(700), uint256.NewInt(42))
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(742), sum)

	max := new(uint256.Int).SetAllOne()
	_, err = SafeAdd(max, uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrOverflow)

	// Adding zero to the maximum is still in range
	sum, err = SafeAdd(max, uint256.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, max, sum)
}

func TestSafeSub(t *testing.T) {
	diff, err := SafeSub(uint256.NewInt(1000), uint256.NewInt(400))
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(600), diff)

	_, err = SafeSub(uint256.NewInt(400), uint256.NewInt(401))
	assert.ErrorIs(t, err, ErrUnderflow)

	diff, err = SafeSub(uint256.NewInt(400), uint256.NewInt(400))
	require.NoError(t, err)
	assert.True(t, diff.IsZero())
}
