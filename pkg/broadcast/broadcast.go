// Package broadcast implements a fan-out channel server: every value sent
// through Publish is delivered to all current subscribers.
package broadcast

import (
	"context"
)

type Server[T any] struct {
	source chan T

	listeners      []chan T
	addListener    chan chan T
	removeListener chan (<-chan T)

	context context.Context
	cancel  context.CancelFunc
}

func NewServer[T any]() *Server[T] {
	ctx, cancel := context.WithCancel(context.Background())

	server := &Server[T]{
		source:         make(chan T),
		listeners:      make([]chan T, 0),
		addListener:    make(chan chan T),
		removeListener: make(chan (<-chan T)),
		context:        ctx,
		cancel:         cancel,
	}

	go server.serve()

	return server
}

// Publish delivers val to every subscriber. Blocks until all subscribers
// have received it or the server is closed.
func (s *Server[T]) Publish(val T) {
	select {
	case s.source <- val:
	case <-s.context.Done():
	}
}

// Subscribe returns a new channel that will receive all future publishes.
// Every returned channel should eventually be passed to Unsubscribe.
func (s *Server[T]) Subscribe() <-chan T {
	newListener := make(chan T)

	select {
	case s.addListener <- newListener:
	case <-s.context.Done():
		close(newListener)
	}

	return newListener
}

// Unsubscribe removes and closes a channel previously returned by Subscribe.
func (s *Server[T]) Unsubscribe(channel <-chan T) {
	select {
	case s.removeListener <- channel:
	case <-s.context.Done():
	}
}

// Close shuts the server down and closes all subscriber channels.
func (s *Server[T]) Close() {
	s.cancel()
}

func (s *Server[T]) serve() {
	defer func() {
		for _, listener := range s.listeners {
			if listener != nil {
				close(listener)
			}
		}
	}()

	for {
		select {
		case <-s.context.Done():
			return
		case newListener := <-s.addListener:
			s.listeners = append(s.listeners, newListener)
		case listenerToRemove := <-s.removeListener:
			for i, ch := range s.listeners {
				if ch == listenerToRemove {
					s.listeners[i] = s.listeners[len(s.listeners)-1]
					s.listeners = s.listeners[:len(s.listeners)-1]
					close(ch)

					break
				}
			}
		case val := <-s.source:
			for _, listener := range s.listeners {
				if listener != nil {
					select {
					case listener <- val:
					case <-s.context.Done():
						return
					}
				}
			}
		}
	}
}
