package entitlement

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemaining_JSON(t *testing.T) {
	data, err := json.Marshal(Unlimited())
	require.NoError(t, err)
	assert.Equal(t, `"unlimited"`, string(data))

	data, err = json.Marshal(Uses(3))
	require.NoError(t, err)
	assert.Equal(t, `3`, string(data))

	var r Remaining
	require.NoError(t, json.Unmarshal([]byte(`"unlimited"`), &r))
	assert.True(t, r.IsUnlimited())

	require.NoError(t, json.Unmarshal([]byte(`1`), &r))
	assert.False(t, r.IsUnlimited())
	assert.Equal(t, 1, r.Count())

	assert.Error(t, json.Unmarshal([]byte(`"lots"`), &r))
}

func TestRemaining_Allows(t *testing.T) {
	assert.True(t, Unlimited().Allows())
	assert.True(t, Uses(1).Allows())
	assert.False(t, Uses(0).Allows())
	assert.False(t, Uses(-2).Allows())
	assert.Equal(t, 0, Uses(-2).Count())
}

func TestRemaining_UnlimitedDistinctFromLargeCount(t *testing.T) {
	assert.NotEqual(t, Unlimited(), Uses(1<<30))
	assert.Equal(t, "unlimited", Unlimited().String())
	assert.Equal(t, "7", Uses(7).String())
}
