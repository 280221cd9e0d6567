package cachepool

// deferredOp is one staged mutation. A nil entry stages a delete.
type deferredOp struct {
	key     string
	entry   *entry
	removed bool
}

func (op *deferredOp) isDelete() bool { return op.entry == nil }

// deferredQueue buffers uncommitted writes and deletes in staging order.
// At most one live operation exists per key; restaging a key replaces the
// pending operation in place, keeping its original position.
type deferredQueue struct {
	ops   []*deferredOp
	index map[string]*deferredOp
}

func newDeferredQueue() *deferredQueue {
	return &deferredQueue{index: make(map[string]*deferredOp)}
}

func (q *deferredQueue) stage(key string, e *entry) {
	if op, ok := q.index[key]; ok {
		op.entry = e
		return
	}
	op := &deferredOp{key: key, entry: e}
	q.ops = append(q.ops, op)
	q.index[key] = op
}

func (q *deferredQueue) peek(key string) (*deferredOp, bool) {
	op, ok := q.index[key]
	return op, ok
}

// remove drops any pending operation for key without applying it.
func (q *deferredQueue) remove(key string) {
	op, ok := q.index[key]
	if !ok {
		return
	}
	op.removed = true
	delete(q.index, key)
}

func (q *deferredQueue) len() int { return len(q.index) }

// drain returns the live operations in staging order and empties the queue.
func (q *deferredQueue) drain() []*deferredOp {
	out := make([]*deferredOp, 0, len(q.index))
	for _, op := range q.ops {
		if !op.removed {
			out = append(out, op)
		}
	}
	q.discardAll()
	return out
}

// restage puts drained operations back, preserving order. Used when a commit
// fails partway so unapplied operations are not lost.
func (q *deferredQueue) restage(ops []*deferredOp) {
	for _, op := range ops {
		q.stage(op.key, op.entry)
	}
}

func (q *deferredQueue) discardAll() {
	q.ops = nil
	q.index = make(map[string]*deferredOp)
}
