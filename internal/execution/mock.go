package execution

import (
	"context"
	"sync"
)

// MockSubmitter captures instructions for tests. Err, when set, is returned
// from every Submit and nothing is captured.
type MockSubmitter struct {
	Err error

	mu  sync.Mutex
	got []Instruction
}

func NewMockSubmitter() *MockSubmitter {
	return &MockSubmitter{}
}

func (m *MockSubmitter) Submit(ctx context.Context, ix Instruction) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, ix)
	return "mock", nil
}

// Submitted returns a copy of the captured instructions.
func (m *MockSubmitter) Submitted() []Instruction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Instruction, len(m.got))
	copy(out, m.got)
	return out
}
