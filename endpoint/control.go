package endpoint

// newPendingSlot allocates a ControlRequestId and a single-shot delivery
// slot for it, so the reader loop can hand the eventual ControlResponse
// back to whichever goroutine is waiting.
func (l *LocalEndPoint) newPendingSlot() (ControlRequestId, chan []byte) {
	id := l.allocRequestID()
	ch := make(chan []byte, 1)
	l.pendingMu.Lock()
	l.pending[id] = ch
	l.pendingMu.Unlock()
	return id, ch
}

// takePendingSlot removes and returns the slot for id, if still present.
// Removing it here (rather than leaving it for the consumer) keeps the
// table bounded even against a consumer that never reads the channel.
func (l *LocalEndPoint) takePendingSlot(id ControlRequestId) (chan []byte, bool) {
	l.pendingMu.Lock()
	ch, ok := l.pending[id]
	if ok {
		delete(l.pending, id)
	}
	l.pendingMu.Unlock()
	return ch, ok
}

func (l *LocalEndPoint) deliverControlResponse(id ControlRequestId, blob []byte) {
	ch, ok := l.takePendingSlot(id)
	if !ok {
		return
	}
	ch <- blob
}
