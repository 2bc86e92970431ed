package telegram

import (
	"sync"

	"github.com/suspectuso/parqr-companion/internal/identity"
)

// ChatState is the pending input a chat owes the bot
type ChatState struct {
	State  string
	Target identity.Identity
}

// StateManager manages chat states for FSM
type StateManager struct {
	mu     sync.RWMutex
	states map[int64]ChatState
}

// NewStateManager creates a new state manager
func NewStateManager() *StateManager {
	return &StateManager{
		states: make(map[int64]ChatState),
	}
}

// Set sets a chat's state
func (sm *StateManager) Set(chatID int64, state string, target identity.Identity) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.states[chatID] = ChatState{State: state, Target: target}
}

// Get returns a chat's current state
func (sm *StateManager) Get(chatID int64) (ChatState, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	st, ok := sm.states[chatID]
	return st, ok
}

// Clear removes a chat's state
func (sm *StateManager) Clear(chatID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.states, chatID)
}

// State constants
const (
	StateWaitMessage = "wait_message"
	StateWaitPlate   = "wait_plate"
)
