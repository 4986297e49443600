package clock

import (
	"sync"
	"time"
)

// Mock is a Clock whose time only moves when told to
type Mock interface {
	Clock

	// Set sets the current time
	Set(t time.Time)

	// Add moves the current time by d
	Add(d time.Duration)
}

// NewMock creates a mock clock initialized to t
func NewMock(t time.Time) Mock {
	return &mockClock{
		baseTime: t,
	}
}

type mockClock struct {
	sync.Mutex
	baseTime time.Time
}

func (m *mockClock) Now() time.Time {
	m.Lock()
	defer m.Unlock()

	return m.baseTime
}

func (m *mockClock) Set(t time.Time) {
	m.Lock()
	defer m.Unlock()

	m.baseTime = t
}

func (m *mockClock) Add(d time.Duration) {
	m.Lock()
	defer m.Unlock()

	m.baseTime = m.baseTime.Add(d)
}
