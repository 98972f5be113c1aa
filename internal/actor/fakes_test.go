package actor

import (
	"context"
	"sync"

	"github.com/oshokin/telerobot/internal/domain/robot"
	"github.com/oshokin/telerobot/internal/repository/state"
)

type memoryRepository struct {
	mu      sync.Mutex
	states  map[string]*robot.State
	loads   int
	saves   int
	loadErr error
	saveErr error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{states: make(map[string]*robot.State)}
}

func (m *memoryRepository) Load(_ context.Context, robotID string) (*robot.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loads++

	if m.loadErr != nil {
		return nil, m.loadErr
	}

	s, ok := m.states[robotID]
	if !ok {
		return nil, state.ErrNotFound
	}

	return s.Clone(), nil
}

func (m *memoryRepository) Save(_ context.Context, s *robot.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}

	m.saves++
	m.states[s.RobotID] = s.Clone()

	return nil
}

func (m *memoryRepository) stored(robotID string) *robot.State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.states[robotID].Clone()
}

func (m *memoryRepository) counts() (loads, saves int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.loads, m.saves
}

func (m *memoryRepository) setErrors(loadErr, saveErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loadErr, m.saveErr = loadErr, saveErr
}

type recordingPublisher struct {
	mu        sync.Mutex
	snapshots []robot.State
}

func (p *recordingPublisher) Publish(_ string, snapshot robot.State) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.snapshots = append(p.snapshots, snapshot)

	return 1
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.snapshots)
}

func (p *recordingPublisher) last() robot.State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.snapshots[len(p.snapshots)-1]
}
