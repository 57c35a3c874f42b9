package daraja

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassword(t *testing.T) {
	at := time.Date(2026, 2, 20, 14, 5, 9, 0, time.UTC)

	pw, timestamp := password("174379", "passkey", at)

	assert.Equal(t, "20260220140509", timestamp)

	decoded, err := base64.StdEncoding.DecodeString(pw)
	require.NoError(t, err)
	assert.Equal(t, "174379passkey20260220140509", string(decoded))
}

func TestPassword_TimestampChangesCredential(t *testing.T) {
	a, _ := password("174379", "passkey", time.Date(2026, 2, 20, 14, 5, 9, 0, time.UTC))
	b, _ := password("174379", "passkey", time.Date(2026, 2, 20, 14, 5, 10, 0, time.UTC))
	assert.NotEqual(t, a, b)
}
