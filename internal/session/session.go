// Package session holds the bearer token used for backend calls.
package session

import (
	"context"
	"errors"
	"sync"
)

// ErrNoSession is returned when an operation needs a token and none is set.
var ErrNoSession = errors.New("no active session")

// Context is a process-wide token store. The zero value is an empty session.
type Context struct {
	mu    sync.RWMutex
	token string
}

// New returns a session initialised with token.
func New(token string) *Context {
	s := &Context{}
	s.Init(token)
	return s
}

// Init replaces any existing token.
func (s *Context) Init(token string) {
	s.Write(token)
}

// Read returns the token and whether one is set.
func (s *Context) Read() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *Context) Write(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *Context) Clear() {
	s.Write("")
}

// Valid reports whether a token is present.
func (s *Context) Valid() bool {
	_, ok := s.Read()
	return ok
}

type ctxKey struct{}

// WithContext attaches s to ctx for downstream backend calls.
func WithContext(ctx context.Context, s *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached to ctx, if any.
func FromContext(ctx context.Context) (*Context, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Context)
	return s, ok && s != nil
}

// Token reads the bearer token from the session attached to ctx.
func Token(ctx context.Context) (string, error) {
	s, ok := FromContext(ctx)
	if !ok {
		return "", ErrNoSession
	}
	tok, ok := s.Read()
	if !ok {
		return "", ErrNoSession
	}
	return tok, nil
}
