// Package session holds the process-wide UI state that the original product
// kept in global singletons: credentials, theme, and the selected
// repository. Here it is an explicit store handed to the surfaces that need
// it, with typed selectors and a defined reset-on-logout contract.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/zenpipeline/archview/pkg/api"
)

// Theme is the UI color scheme preference.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// State is one immutable snapshot of the session.
type State struct {
	Tokens       api.TokenPair
	UserEmail    string
	Theme        Theme
	SelectedRepo uuid.UUID
}

// LoggedIn reports whether the snapshot carries credentials.
func (s State) LoggedIn() bool { return s.Tokens.AccessToken != "" }

// Store is a subscribable session container. It satisfies
// client.TokenSource so the SDK reads and refreshes credentials through the
// same object the UI reads.
type Store struct {
	mu    sync.RWMutex
	state State
	subs  map[int]func(State)
	next  int
}

// NewStore creates an empty store with the dark theme default.
func NewStore() *Store {
	return &Store{
		state: State{Theme: ThemeDark},
		subs:  make(map[int]func(State)),
	}
}

// Get returns the current snapshot.
func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Tokens implements client.TokenSource.
func (s *Store) Tokens() api.TokenPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Tokens
}

// SetTokens implements client.TokenSource; the SDK calls it after login and
// after a successful refresh.
func (s *Store) SetTokens(pair api.TokenPair) {
	s.update(func(st *State) { st.Tokens = pair })
}

// SetUser records who is logged in.
func (s *Store) SetUser(email string) {
	s.update(func(st *State) { st.UserEmail = email })
}

// SetTheme switches the color scheme preference.
func (s *Store) SetTheme(theme Theme) {
	s.update(func(st *State) { st.Theme = theme })
}

// SelectRepo records the repository the views should show.
func (s *Store) SelectRepo(repoID uuid.UUID) {
	s.update(func(st *State) { st.SelectedRepo = repoID })
}

// ResetOnLogout clears credentials, user identity, and the repository
// selection. Preferences (theme) survive logout.
func (s *Store) ResetOnLogout() {
	s.update(func(st *State) {
		st.Tokens = api.TokenPair{}
		st.UserEmail = ""
		st.SelectedRepo = uuid.Nil
	})
}

// Subscribe registers fn to run on every state change with the new
// snapshot. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) update(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	state := s.state
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	// Callbacks run outside the lock so a subscriber may read the store.
	for _, fn := range subs {
		fn(state)
	}
}
