package store

import (
	"os"
	"sync"
	"time"

	"github.com/grovetools/dock/errors"
	"github.com/grovetools/dock/pkg/apps"
)

// Store is the daemon's in-memory state. One RWMutex guards the session
// state, the interpreter path and the scan index; subscribers receive every
// update without blocking writers.
type Store struct {
	mu          sync.RWMutex
	state       State
	subscribers map[chan Update]struct{}
}

// New creates a Store with the given interpreter and no launch recorded.
func New(interpreter string) *Store {
	return &Store{
		state: State{
			LastLaunched: NoLaunch,
			Interpreter:  interpreter,
		},
		subscribers: make(map[chan Update]struct{}),
	}
}

// Get returns a copy of the current state.
func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// RecordLaunch overwrites the last launched app name unconditionally.
func (s *Store) RecordLaunch(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastLaunched = name
	s.broadcast(Update{Type: UpdateLaunch, Source: "launcher", Payload: name})
}

// LastLaunched returns the last launched app name, or NoLaunch.
func (s *Store) LastLaunched() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LastLaunched
}

// Interpreter returns the interpreter used for new launches.
func (s *Store) Interpreter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Interpreter
}

// SetInterpreter replaces the interpreter path. The path must exist; on
// failure the current value is left unchanged.
func (s *Store) SetInterpreter(path string, source string) error {
	if path == "" {
		return errors.InvalidInterpreterPath(path)
	}
	if _, err := os.Stat(path); err != nil {
		return errors.InvalidInterpreterPath(path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Interpreter = path
	s.broadcast(Update{Type: UpdateInterpreter, Source: source, Payload: path})
	return nil
}

// SetIndex replaces the scan result wholesale.
func (s *Store) SetIndex(root string, index apps.CategoryIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ScanRoot = root
	s.state.Apps = index
	s.state.ScannedAt = time.Now()
	s.broadcast(Update{Type: UpdateScan, Source: "resolver", Payload: index})
}

// Index returns the latest scan result and its root.
func (s *Store) Index() (string, apps.CategoryIndex) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ScanRoot, s.state.Apps
}

// Subscribe creates a new subscription channel for state updates.
func (s *Store) Subscribe() chan Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Update, 100)
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(ch chan Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; !ok {
		return
	}
	delete(s.subscribers, ch)
	close(ch)
}

// BroadcastConfigReload tells subscribers that a config file changed.
func (s *Store) BroadcastConfigReload(file string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.broadcast(Update{Type: UpdateConfigReload, Source: "config", Payload: file})
}

// broadcast must be called with s.mu held.
func (s *Store) broadcast(u Update) {
	for ch := range s.subscribers {
		select {
		case ch <- u:
		default:
			// A slow subscriber drops updates rather than stalling writers.
		}
	}
}
