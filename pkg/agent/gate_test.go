package agent

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock drives the gate's rolling window deterministically.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func gateWithClock(limit int, dedupe bool) (*Gate, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	g := NewGate(limit, dedupe)
	g.now = clock.now
	return g, clock
}

func TestThrottleWindow(t *testing.T) {
	g, _ := gateWithClock(10, false)

	admitted := 0
	for i := 0; i < 11; i++ {
		if g.Admit(fmt.Sprintf("error %d", i), "").Admitted {
			admitted++
		}
	}
	assert.Equal(t, 10, admitted, "11 attempts in one window admit exactly 10")
}

func TestThrottledCountReportedOnNextWindow(t *testing.T) {
	g, clock := gateWithClock(10, false)

	for i := 0; i < 13; i++ {
		g.Admit(fmt.Sprintf("error %d", i), "")
	}

	clock.advance(time.Second)
	d := g.Admit("fresh", "")
	assert.True(t, d.Admitted)
	assert.Equal(t, 3, d.Suppressed, "the report opening a new window carries the prior throttled count")

	// The annotation is one-shot.
	d = g.Admit("another", "")
	assert.True(t, d.Admitted)
	assert.Zero(t, d.Suppressed)
}

func TestWindowResets(t *testing.T) {
	g, clock := gateWithClock(2, false)

	assert.True(t, g.Admit("a", "").Admitted)
	assert.True(t, g.Admit("b", "").Admitted)
	assert.True(t, g.Admit("c", "").Throttled)

	clock.advance(time.Second)
	assert.True(t, g.Admit("d", "").Admitted)
}

func TestDedupConsecutive(t *testing.T) {
	g, _ := gateWithClock(10, true)

	assert.True(t, g.Admit("boom", "stack").Admitted)
	d := g.Admit("boom", "stack")
	assert.False(t, d.Admitted)
	assert.True(t, d.Deduped)
}

func TestDedupIsConsecutiveOnly(t *testing.T) {
	g, _ := gateWithClock(10, true)

	assert.True(t, g.Admit("boom", "").Admitted)
	assert.True(t, g.Admit("other", "").Admitted)
	// Not adjacent to the last admitted fingerprint, so not suppressed.
	assert.True(t, g.Admit("boom", "").Admitted)
}

func TestDedupDisabled(t *testing.T) {
	g, _ := gateWithClock(10, false)

	assert.True(t, g.Admit("boom", "stack").Admitted)
	assert.True(t, g.Admit("boom", "stack").Admitted)
}

func TestDedupFingerprintTruncated(t *testing.T) {
	g, _ := gateWithClock(10, true)

	long := make([]byte, fingerprintLimit)
	for i := range long {
		long[i] = 'a'
	}

	assert.True(t, g.Admit(string(long), "first-tail").Admitted)
	// The differing tails are beyond the fingerprint prefix, so the second
	// attempt counts as a duplicate.
	d := g.Admit(string(long), "second-tail")
	assert.True(t, d.Deduped)
}
