package guard

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterBurstThenRefusal(t *testing.T) {
	rl := NewRateLimiter(10, 5)

	for i := 0; i < 5; i++ {
		d := rl.Check("client-a")
		require.True(t, d.Allowed, "request %d should be admitted within burst", i+1)
	}

	d := rl.Check("client-a")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
}

func TestRateLimiterRefills(t *testing.T) {
	// 600 rpm = 10 tokens per second, so one token refills within 200ms.
	rl := NewRateLimiter(600, 5)
	for i := 0; i < 5; i++ {
		require.True(t, rl.Check("c").Allowed)
	}
	require.False(t, rl.Check("c").Allowed)

	time.Sleep(200 * time.Millisecond)
	assert.True(t, rl.Check("c").Allowed)
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	rl := NewRateLimiter(10, 1)
	require.True(t, rl.Check("a").Allowed)
	require.False(t, rl.Check("a").Allowed)
	assert.True(t, rl.Check("b").Allowed)
}

func TestClientIDPriority(t *testing.T) {
	r := httptest.NewRequest("POST", "/messages", nil)
	r.RemoteAddr = "10.0.0.9:5412"

	peer := ClientID(r)
	assert.Equal(t, "peer:10.0.0.9", peer)

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "fwd:203.0.113.7", ClientID(r))

	r.Header.Set("X-Api-Key", "sk-test-1234567890")
	keyed := ClientID(r)
	assert.Contains(t, keyed, "key:")
	assert.NotContains(t, keyed, "sk-test-", "raw key material never appears in the id")
}

func TestValidateRepositoryIDBasicCases(t *testing.T) {
	assert.NoError(t, ValidateRepositoryID("infra-prod_01"))
	assert.Error(t, ValidateRepositoryID(""))
	assert.Error(t, ValidateRepositoryID("bad'id"))
	assert.Error(t, ValidateRepositoryID("spaced id"))
}
