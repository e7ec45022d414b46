// Package exchange implements the message-passing layer between the workers of a data-parallel
// computation. Every worker exclusively owns a partition of the key space; data keyed by a column
// is routed to the worker owning the key instead of being shared.
//
// Workers call the exchange operations in the same order (single program, multiple data). Each
// operation is a rendezvous: a worker sends exactly one message to every peer, including itself,
// and then receives exactly one message from every peer. Messages travel on a dedicated FIFO
// channel per (sender, receiver) pair, so a fast worker that already entered the next exchange
// can never have its message mistaken for one of the current exchange.
package exchange

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Owner returns the worker owning a key among the given number of peers.
func Owner(key uint64, peers int) int {
	return int(key % uint64(peers))
}

// Exchange connects a fixed set of workers exchanging messages of type T.
type Exchange[T any] struct {
	peers int
	// chans[from][to] carries the messages sent by worker from to worker to.
	chans [][]chan []T

	messages atomic.Int64
	routed   atomic.Int64
}

// New creates an exchange for the given number of workers.
func New[T any](peers int) (*Exchange[T], error) {
	if peers < 1 {
		return nil, fmt.Errorf("invalid peer count %d", peers)
	}

	chans := make([][]chan []T, peers)
	for from := range chans {
		chans[from] = make([]chan []T, peers)
		for to := range chans[from] {
			chans[from][to] = make(chan []T, 1)
		}
	}

	return &Exchange[T]{peers: peers, chans: chans}, nil
}

// Peers returns the number of workers.
func (e *Exchange[T]) Peers() int { return e.peers }

// Messages returns the number of messages sent between distinct workers so far.
func (e *Exchange[T]) Messages() int64 { return e.messages.Load() }

// Routed returns the number of items that were delivered to a worker other than their producer.
func (e *Exchange[T]) Routed() int64 { return e.routed.Load() }

// Endpoint returns the handle of a worker.
func (e *Exchange[T]) Endpoint(index int) *Endpoint[T] {
	if index < 0 || index >= e.peers {
		panic(fmt.Sprintf("exchange: worker index %d out of range [0,%d)", index, e.peers))
	}
	return &Endpoint[T]{exchange: e, index: index}
}

// Endpoint is the view of an exchange from one worker. An endpoint must only be used by the
// goroutine of its worker.
type Endpoint[T any] struct {
	exchange *Exchange[T]
	index    int
}

// Index returns the index of the worker.
func (ep *Endpoint[T]) Index() int { return ep.index }

// Peers returns the number of workers.
func (ep *Endpoint[T]) Peers() int { return ep.exchange.peers }

// Exchange sends parts[j] to worker j and returns the concatenation of the parts received from
// every worker, in sender order. The call blocks until a message from every peer has arrived or the
// context is canceled.
func (ep *Endpoint[T]) Exchange(ctx context.Context, parts [][]T) ([]T, error) {
	e := ep.exchange
	if len(parts) != e.peers {
		return nil, fmt.Errorf("exchange: expected %d parts, got %d", e.peers, len(parts))
	}

	for to, part := range parts {
		if to != ep.index {
			e.messages.Add(1)
			e.routed.Add(int64(len(part)))
		}
		select {
		case e.chans[ep.index][to] <- part:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var result []T
	for from := 0; from < e.peers; from++ {
		select {
		case part := <-e.chans[from][ep.index]:
			result = append(result, part...)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return result, nil
}

// Shuffle routes every item to the worker returned by route and returns the items this worker
// received. With a single worker it is a pass-through.
func (ep *Endpoint[T]) Shuffle(ctx context.Context, items []T, route func(T) int) ([]T, error) {
	peers := ep.exchange.peers
	if peers == 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return items, nil
	}

	parts := make([][]T, peers)
	for _, item := range items {
		to := route(item)
		parts[to] = append(parts[to], item)
	}

	return ep.Exchange(ctx, parts)
}

// AllGather sends v to every worker and returns the values of all workers indexed by worker.
func (ep *Endpoint[T]) AllGather(ctx context.Context, v T) ([]T, error) {
	peers := ep.exchange.peers
	parts := make([][]T, peers)
	for i := range parts {
		parts[i] = []T{v}
	}

	return ep.Exchange(ctx, parts)
}
