// Package action provides the per-node action queue.
//
// A Queue serializes asynchronous operations: at most one operation is active,
// the rest wait in a bounded FIFO and start automatically, in post order, as
// the previous one finishes. Post returns a Proxy that shares the outcome of
// its operation with every observer; late observers get the items emitted so
// far replayed, followed by the terminal notification.
//
// Observers are reference counted. When the last observer of a proxy cancels
// its subscription the operation is cancelled: a pending one is dropped from
// the queue, an active one releases its slot immediately and the next
// operation starts.
//
// # Usage
//
//	q := action.NewQueue(action.DefaultCapacity, logger)
//	if err := q.Start(); err != nil {
//	    return err
//	}
//
//	p, err := q.Post(func(ctx context.Context, emit func(any)) error {
//	    emit(load(ctx))
//	    return nil
//	})
//	if err != nil {
//	    return err // errors.Is(err, action.ErrCannotExecute)
//	}
//	sub := p.Subscribe(action.Observer{OnNext: show, OnDone: finish})
//	defer sub.Cancel()
//
// Stop fails the active operation with ErrPrematureTermination and every
// pending one with ErrCannotExecute.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package action
