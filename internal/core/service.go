package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JonMunkholm/dataviz/internal/source"
)

// TracerName identifies spans created by this package.
const TracerName = "github.com/JonMunkholm/dataviz/internal/core"

// DefaultIdleTTL is how long an untouched session is kept.
const DefaultIdleTTL = 30 * time.Minute

// ErrSessionNotFound is returned for unknown or reaped session ids.
var ErrSessionNotFound = errors.New("session not found")

// Session is one browser's workspace: a Controller plus bookkeeping.
type Session struct {
	ID         string
	Controller *Controller
	Created    time.Time

	lastSeen atomic.Int64 // unix nanoseconds
}

// LastSeen returns when the session was last used.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// ServiceOptions configures a Service. Zero values select defaults.
type ServiceOptions struct {
	MaxConcurrent int
	MaxWait       time.Duration
	IdleTTL       time.Duration
	Observer      LoadObserver
	Logger        *slog.Logger
}

// Service owns every session and the resources they share.
type Service struct {
	resolver Resolver
	builder  ViewBuilder
	limiter  *LoadLimiter
	observer LoadObserver
	tracer   trace.Tracer
	idleTTL  time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService creates a Service with no sessions.
func NewService(r Resolver, b ViewBuilder, opts ServiceOptions) *Service {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Service{
		resolver: r,
		builder:  b,
		limiter:  NewLoadLimiter(opts.MaxConcurrent, opts.MaxWait),
		observer: opts.Observer,
		tracer:   otel.Tracer(TracerName),
		idleTTL:  opts.IdleTTL,
		logger:   opts.Logger.With(slog.String("component", "core")),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Session returns the session with id and marks it as used.
func (s *Service) Session(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if ok {
		sess.touch(s.now())
	}
	return sess, ok
}

// OpenSession returns the session with id, creating it when it does not
// exist. Ids that are not UUIDs are replaced by a fresh one, so clients
// cannot choose arbitrary session keys.
func (s *Service) OpenSession(id string) *Session {
	if sess, ok := s.Session(id); ok {
		return sess
	}
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		sess.touch(s.now())
		return sess
	}

	opts := []ControllerOption{WithLimiter(s.limiter)}
	if s.observer != nil {
		opts = append(opts, WithObserver(s.observer))
	}

	now := s.now()
	sess := &Session{
		ID:         id,
		Controller: NewController(s.resolver, s.builder, opts...),
		Created:    now,
	}
	sess.touch(now)
	s.sessions[id] = sess

	s.logger.Debug("session opened", slog.String("session_id", id))
	return sess
}

// Load runs an attempt in the session with id, opening it if needed.
func (s *Service) Load(ctx context.Context, id string, in source.RawInput) Snapshot {
	sess := s.OpenSession(id)
	origin := in.Origin()

	ctx, span := s.tracer.Start(ctx, "dataviz.load",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("session.id", sess.ID),
			attribute.String("load.origin", origin.String()),
		),
	)
	defer span.End()

	snap := sess.Controller.Load(ctx, in)

	span.SetAttributes(
		attribute.String("load.state", snap.State.String()),
		attribute.Int("load.rows", snap.Rows),
		attribute.Int("load.cols", snap.Cols),
	)
	if snap.Err != nil {
		span.RecordError(snap.Err)
		span.SetStatus(codes.Error, snap.Status.Message)
	}

	attrs := []any{
		slog.String("session_id", sess.ID),
		slog.String("origin", origin.String()),
		slog.String("state", snap.State.String()),
		slog.Uint64("attempt", snap.Attempt),
	}
	if snap.Err != nil {
		s.logger.Warn("load failed", append(attrs, slog.String("code", snap.Status.Code), slog.String("error", snap.Err.Error()))...)
	} else {
		s.logger.Info("load finished", append(attrs, slog.Int("rows", snap.Rows), slog.Int("cols", snap.Cols))...)
	}
	return snap
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Limiter exposes the shared limiter for status reporting.
func (s *Service) Limiter() *LoadLimiter {
	return s.limiter
}

// Drain waits for in-flight loads to finish.
func (s *Service) Drain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
