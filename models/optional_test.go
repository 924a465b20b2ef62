package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateLicenseRequestDistinguishesAbsentAndNull(t *testing.T) {
	var req UpdateLicenseRequest
	require.NoError(t, json.Unmarshal([]byte(`{"expiry_date":null,"max_activations":5}`), &req))

	// null로 온 필드: Set이지만 Valid 아님
	assert.True(t, req.ExpiryDate.Set)
	assert.False(t, req.ExpiryDate.Valid)

	// 값으로 온 필드
	assert.True(t, req.MaxActivations.Set)
	assert.True(t, req.MaxActivations.Valid)
	assert.Equal(t, 5, req.MaxActivations.Value)

	// 바디에 없는 필드는 건드리지 않는다
	assert.False(t, req.Status.Set)
	assert.False(t, req.UserID.Set)
	assert.False(t, req.RegenerateKey)
}
