package pool

import "golang.org/x/sync/errgroup"

// JoinAll runs every fn concurrently and waits for all of them, returning
// the first non-nil error (later ones are dropped, same as errgroup.Group).
func JoinAll(fns ...func() error) error {
	var g errgroup.Group
	for _, fn := range fns {
		g.Go(fn)
	}
	return g.Wait()
}
