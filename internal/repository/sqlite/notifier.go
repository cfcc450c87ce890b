package sqlite

import "sync"

// Table names used as notification topics.
const (
	tablePrograms  = "programs"
	tableWorkouts  = "workouts"
	tableExercises = "workout_exercises"
)

// notifier fans out table-level invalidation signals to Watch subscribers.
// SQLite has no native change feed, so every repository mutation calls
// notify() for the tables it touched after the transaction commits.
type notifier struct {
	mu   sync.Mutex
	subs map[string][]chan struct{}
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string][]chan struct{})}
}

// subscribe registers a signal channel for a table. The channel has capacity
// one so rapid changes coalesce into a single pending signal.
func (n *notifier) subscribe(table string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.subs[table] = append(n.subs[table], ch)
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		subs := n.subs[table]
		for i, c := range subs {
			if c == ch {
				n.subs[table] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
	return ch, cancel
}

// notify signals all subscribers of a table. Sends never block: a subscriber
// with a signal already pending re-reads once and sees the latest state.
func (n *notifier) notify(table string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs[table] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
