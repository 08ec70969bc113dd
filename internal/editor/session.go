package editor

import (
	"context"
	"errors"
	"sync"

	"pagebuilder/internal/tree"
)

// ErrSessionClosed is returned by calls made after Close.
var ErrSessionClosed = errors.New("editor session closed")

// CommitFunc persists a history transition. It runs on the session
// goroutine, so commits of one session never overlap. Returning an error
// discards the transition.
type CommitFunc func(ctx context.Context, next History, a Action, out Outcome) error

type request struct {
	ctx    context.Context
	action Action
	reply  chan response
	read   bool
}

type response struct {
	hist History
	out  Outcome
	err  error
}

// Session serializes the edits of one page. A single goroutine owns the
// History; callers talk to it through Dispatch and Snapshot, so two actions
// never reduce the same snapshot.
type Session struct {
	gen    tree.IDGenerator
	limit  int
	commit CommitFunc

	reqs     chan request
	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once
}

// NewSession starts a session holding h. commit may be nil.
func NewSession(h History, gen tree.IDGenerator, limit int, commit CommitFunc) *Session {
	if gen == nil {
		gen = tree.UUIDGenerator{}
	}
	s := &Session{
		gen:    gen,
		limit:  limit,
		commit: commit,
		reqs:   make(chan request),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.loop(h)
	return s
}

func (s *Session) loop(h History) {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case req := <-s.reqs:
			if req.read {
				req.reply <- response{hist: h, out: Outcome{Tree: h.Present}}
				continue
			}
			next, out, err := Reduce(h, req.action, s.gen, s.limit)
			if err == nil && s.commit != nil && !sameHistory(next, h) {
				err = s.commit(req.ctx, next, req.action, out)
			}
			if err != nil {
				req.reply <- response{hist: h, out: Outcome{Tree: h.Present}, err: err}
				continue
			}
			h = next
			req.reply <- response{hist: h, out: out}
		}
	}
}

// Dispatch applies a and returns the resulting history.
func (s *Session) Dispatch(ctx context.Context, a Action) (History, Outcome, error) {
	resp, err := s.call(ctx, request{ctx: ctx, action: a})
	if err != nil {
		return History{}, Outcome{}, err
	}
	return resp.hist, resp.out, resp.err
}

// Snapshot returns the current history.
func (s *Session) Snapshot(ctx context.Context) (History, error) {
	resp, err := s.call(ctx, request{ctx: ctx, read: true})
	if err != nil {
		return History{}, err
	}
	return resp.hist, nil
}

func (s *Session) call(ctx context.Context, req request) (response, error) {
	req.reply = make(chan response, 1)
	select {
	case s.reqs <- req:
	case <-s.done:
		return response{}, ErrSessionClosed
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
	select {
	case resp := <-req.reply:
		return resp, nil
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

// Close stops the session goroutine. It is safe to call more than once.
func (s *Session) Close() {
	s.quitOnce.Do(func() { close(s.quit) })
	<-s.done
}

func sameHistory(a, b History) bool {
	return sameTree(a.Present, b.Present) && len(a.Past) == len(b.Past) && len(a.Future) == len(b.Future)
}
