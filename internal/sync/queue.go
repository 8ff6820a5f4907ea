package sync

// Queue is the inbox of an engine. Any goroutine may post to it; only the
// engine loop reads from it.
type Queue struct {
	ch   chan any
	done chan struct{}
}

// NewQueue creates an inbox buffering size events.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 256
	}
	return &Queue{ch: make(chan any, size), done: make(chan struct{})}
}

// Post enqueues ev. It blocks while the inbox is full and returns without
// enqueuing once the engine has stopped.
func (q *Queue) Post(ev any) {
	select {
	case q.ch <- ev:
	case <-q.done:
	}
}

func (q *Queue) close() {
	select {
	case <-q.done:
	default:
		close(q.done)
	}
}
