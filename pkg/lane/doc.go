// Package lane provides a serial execution lane.
//
// A Lane runs posted funcs one at a time, in post order, on a single
// goroutine. Posting never blocks and is safe from any goroutine, including
// from a func already running on the lane. The bus uses a lane to order all
// event and action delivery; the runtime uses a second lane as its principal
// lane for lifecycle and tree mutation.
//
// # Usage
//
//	l := lane.New("bus", logger)
//	defer l.Close()
//
//	l.Post(func() { deliver(ev) })
//
//	// Block until everything posted so far has run.
//	if err := l.Flush(ctx); err != nil {
//	    return err
//	}
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package lane
