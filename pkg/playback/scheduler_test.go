package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestScheduleBackToBack(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	s := NewScheduler(clock.Now)

	d1, d2 := 400*time.Millisecond, 250*time.Millisecond
	first := s.Schedule(d1)
	clock.Advance(30 * time.Millisecond)
	second := s.Schedule(d2)

	assert.Equal(t, time.Duration(0), first.Start)
	assert.Equal(t, first.End(), second.Start)
	assert.Equal(t, d1+d2, s.Next())
}

func TestScheduleAfterIdleStartsNow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	s := NewScheduler(clock.Now)

	s.Schedule(100 * time.Millisecond)
	clock.Advance(2 * time.Second)
	slot := s.Schedule(100 * time.Millisecond)

	assert.Equal(t, 2*time.Second, slot.Start)
}

func TestInterruptResetsClock(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	s := NewScheduler(clock.Now)

	s.Schedule(5 * time.Second)
	clock.Advance(time.Second)
	s.Interrupt()
	assert.Equal(t, time.Second, s.Next())

	slot := s.Schedule(200 * time.Millisecond)
	assert.Equal(t, time.Second, slot.Start)
}

func TestScheduleConcurrentSlotsNeverOverlap(t *testing.T) {
	s := NewScheduler(nil)
	var wg sync.WaitGroup
	slots := make(chan Slot, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slots <- s.Schedule(10 * time.Millisecond)
		}()
	}
	wg.Wait()
	close(slots)

	var total time.Duration
	for slot := range slots {
		total += slot.Duration
	}
	assert.GreaterOrEqual(t, s.Next(), total)
}
