package mpris

import "sync"

type listeners struct {
	m    sync.Mutex
	next int
	fns  map[int]func()
}

func (l *listeners) add(fn func()) func() {
	l.m.Lock()
	defer l.m.Unlock()
	if l.fns == nil {
		l.fns = map[int]func(){}
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.m.Lock()
		defer l.m.Unlock()
		delete(l.fns, id)
	}
}

// fire runs every callback on its own goroutine so a slow subscriber never
// stalls signal delivery.
func (l *listeners) fire() {
	l.m.Lock()
	defer l.m.Unlock()
	for _, fn := range l.fns {
		go fn()
	}
}

func (l *listeners) len() int {
	l.m.Lock()
	defer l.m.Unlock()
	return len(l.fns)
}
