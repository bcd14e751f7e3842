package session

import (
	"sync"

	"github.com/c360/keystream/engine"
	"github.com/c360/keystream/errors"
	"github.com/c360/keystream/keyexpr"
)

// Handles keep their session's core alive for the duration of their own
// lifetime but do not hold a counted session reference: closing the last
// Session while a handle is still open is the owner's decision, and the
// engine tears the handle down with the connection.

// Subscriber is the exclusive handle on an active subscription. Close is
// effective exactly once; a second Close fails with ErrClosed.
type Subscriber struct {
	key keyexpr.KeyExpr

	mu     sync.Mutex
	core   *core
	handle engine.SubscriberHandle
}

// KeyExpr returns the subscription's key expression.
func (s *Subscriber) KeyExpr() keyexpr.KeyExpr {
	return s.key
}

// Pull delivers the samples buffered by a pull-mode subscription.
func (s *Subscriber) Pull() error {
	s.mu.Lock()
	c, handle := s.core, s.handle
	s.mu.Unlock()
	if c == nil {
		return errors.ErrClosed
	}
	if err := c.eng.Pull(handle); err != nil {
		return errors.Wrap(err, "Subscriber", "Pull", "pull samples")
	}
	return nil
}

// Close undeclares the subscription.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	c, handle := s.core, s.handle
	s.core, s.handle = nil, nil
	s.mu.Unlock()
	if c == nil {
		return errors.ErrClosed
	}

	if c.metrics != nil {
		c.metrics.SubscribersActive.Dec()
	}
	if err := c.eng.CloseSubscriber(handle); err != nil {
		return errors.Wrap(err, "Subscriber", "Close", "undeclare subscriber")
	}
	return nil
}

// Queryable is the exclusive handle on a declared queryable. Close is
// effective exactly once; a second Close fails with ErrClosed.
type Queryable struct {
	key keyexpr.KeyExpr

	mu     sync.Mutex
	core   *core
	handle engine.QueryableHandle
}

// KeyExpr returns the queryable's key expression.
func (q *Queryable) KeyExpr() keyexpr.KeyExpr {
	return q.key
}

// Close undeclares the queryable.
func (q *Queryable) Close() error {
	q.mu.Lock()
	c, handle := q.core, q.handle
	q.core, q.handle = nil, nil
	q.mu.Unlock()
	if c == nil {
		return errors.ErrClosed
	}

	if c.metrics != nil {
		c.metrics.QueryablesActive.Dec()
	}
	if err := c.eng.CloseQueryable(handle); err != nil {
		return errors.Wrap(err, "Queryable", "Close", "undeclare queryable")
	}
	return nil
}

// Publication is the exclusive handle on a declared publication. Close is
// effective exactly once; a second Close fails with ErrClosed.
type Publication struct {
	key keyexpr.KeyExpr

	mu   sync.Mutex
	core *core
}

// KeyExpr returns the publication's key expression.
func (p *Publication) KeyExpr() keyexpr.KeyExpr {
	return p.key
}

// Close retracts the publication declaration.
func (p *Publication) Close() error {
	p.mu.Lock()
	c := p.core
	p.core = nil
	p.mu.Unlock()
	if c == nil {
		return errors.ErrClosed
	}

	if err := c.eng.UndeclarePublication(c.handle, p.key); err != nil {
		return errors.Wrap(err, "Publication", "Close", "undeclare publication")
	}
	return nil
}
