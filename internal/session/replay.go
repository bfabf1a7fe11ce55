package session

import (
	"context"
	"hash/fnv"

	"golang.org/x/sync/errgroup"
)

const shardBuffer = 256

// Replay applies ordered events to the reconciler.
//
// With more than one worker the stream is sharded by user, so each user's
// events still arrive in input order while different users proceed in
// parallel.
func (r *Reconciler) Replay(ctx context.Context, events []Event, workers int) error {
	if workers <= 1 {
		for i, ev := range events {
			if i%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			r.Apply(ev)
		}
		return ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)

	shards := make([]chan Event, workers)
	for i := range shards {
		ch := make(chan Event, shardBuffer)
		shards[i] = ch

		g.Go(func() error {
			for ev := range ch {
				if err := gctx.Err(); err != nil {
					return err
				}
				r.Apply(ev)
			}
			return nil
		})
	}

dispatch:
	for _, ev := range events {
		select {
		case shards[shardFor(ev.User, workers)] <- ev:
		case <-gctx.Done():
			break dispatch
		}
	}

	for _, ch := range shards {
		close(ch)
	}

	if err := g.Wait(); err != nil {
		return err
	}

	r.logger.Debug().
		Int("events", len(events)).
		Int("workers", workers).
		Msg("Replayed events")

	return ctx.Err()
}

func shardFor(user string, workers int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(user))
	return int(h.Sum32() % uint32(workers))
}
