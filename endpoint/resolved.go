package endpoint

import (
	"sync"
	"time"

	"github.com/someonegg/gox/syncx"
)

// resolvedSignal is a fire-at-most-once rendezvous: any number of
// goroutines can wait on it, and the first fire call wakes all of them.
// Built on syncx.DoneChan the way msgpump uses it for shutdown signaling.
type resolvedSignal struct {
	once sync.Once
	done syncx.DoneChan
}

func newResolvedSignal() *resolvedSignal {
	return &resolvedSignal{done: syncx.NewDoneChan()}
}

func (r *resolvedSignal) fire() {
	r.once.Do(func() { r.done.SetDone() })
}

func (r *resolvedSignal) wait() {
	<-r.done
}

// waitTimeout reports whether the signal fired before d elapsed.
func (r *resolvedSignal) waitTimeout(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-r.done:
		return true
	case <-t.C:
		return false
	}
}
