package auth

import "sync"

// State is a session's authentication state.
type State struct {
	Authenticated bool
	OwnerID       string
}

// Notifier broadcasts sign-in and sign-out transitions per session.
// Watchers must be closed when the watching view goes away.
type Notifier struct {
	mu       sync.Mutex
	watchers map[string]map[*Watcher]struct{}
}

// NewNotifier creates a notifier with no watchers.
func NewNotifier() *Notifier {
	return &Notifier{watchers: make(map[string]map[*Watcher]struct{})}
}

// Watcher receives the transitions of one session.
type Watcher struct {
	n         *Notifier
	sessionID string
	ch        chan State
	once      sync.Once
}

// Watch registers for transitions of sessionID.
func (n *Notifier) Watch(sessionID string) *Watcher {
	w := &Watcher{n: n, sessionID: sessionID, ch: make(chan State, 1)}

	n.mu.Lock()
	defer n.mu.Unlock()
	set, ok := n.watchers[sessionID]
	if !ok {
		set = make(map[*Watcher]struct{})
		n.watchers[sessionID] = set
	}
	set[w] = struct{}{}
	return w
}

// SignedIn reports that sessionID now belongs to ownerID.
func (n *Notifier) SignedIn(sessionID, ownerID string) {
	n.notify(sessionID, State{Authenticated: true, OwnerID: ownerID})
}

// SignedOut reports that sessionID ended.
func (n *Notifier) SignedOut(sessionID string) {
	n.notify(sessionID, State{})
}

// Len returns the number of registered watchers.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, set := range n.watchers {
		total += len(set)
	}
	return total
}

func (n *Notifier) notify(sessionID string, s State) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for w := range n.watchers[sessionID] {
		// Latest state wins: drop an unread one first.
		select {
		case <-w.ch:
		default:
		}
		w.ch <- s
	}
}

// Changes yields state transitions. Closed by Close.
func (w *Watcher) Changes() <-chan State {
	return w.ch
}

// Close unregisters the watcher. Safe to call more than once.
func (w *Watcher) Close() {
	w.once.Do(func() {
		w.n.mu.Lock()
		defer w.n.mu.Unlock()
		if set, ok := w.n.watchers[w.sessionID]; ok {
			delete(set, w)
			if len(set) == 0 {
				delete(w.n.watchers, w.sessionID)
			}
		}
		close(w.ch)
	})
}
