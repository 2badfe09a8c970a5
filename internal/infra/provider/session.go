package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/mediafetch/internal/core/classify"
	"github.com/vietddude/mediafetch/internal/core/domain"
)

// Candidate is a reference captured by a Session.
type Candidate struct {
	Ref         string
	ContentType string
	Quality     string
	Filename    string
}

// Session is a long-lived interactive surface driven by an automation collaborator,
// such as a browser page of a download site. It is not safe for concurrent use.
type Session interface {
	// Submit hands the raw input to the surface.
	Submit(ctx context.Context, raw string) error
	// Candidates returns the references captured so far.
	Candidates(ctx context.Context) ([]Candidate, error)
	// Reset returns the surface to its initial state.
	Reset(ctx context.Context) error
	// Close releases the surface.
	Close() error
}

// SessionOpener creates a fresh Session.
type SessionOpener func(ctx context.Context) (Session, error)

// SessionConfig controls candidate polling.
type SessionConfig struct {
	PollAttempts int
	PollInterval time.Duration
	Method       string
}

// DefaultSessionConfig polls for up to 30s.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		PollAttempts: 30,
		PollInterval: time.Second,
		Method:       "interactive_session",
	}
}

// SessionAdapter owns one Session and lets at most one Attempt use it at a time.
type SessionAdapter struct {
	*Base
	cfg  SessionConfig
	open SessionOpener

	sem     chan struct{}
	session Session
}

// NewSessionAdapter creates an adapter that opens its session lazily with open.
func NewSessionAdapter(tag string, open SessionOpener, cfg SessionConfig, platforms []domain.Category) *SessionAdapter {
	def := DefaultSessionConfig()
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = def.PollAttempts
	}
	if cfg.PollInterval < 0 {
		cfg.PollInterval = 0
	}
	if cfg.Method == "" {
		cfg.Method = def.Method
	}
	return &SessionAdapter{
		Base: NewBase(tag, platforms),
		cfg:  cfg,
		open: open,
		sem:  make(chan struct{}, 1),
	}
}

// Attempt implements Adapter.
func (a *SessionAdapter) Attempt(ctx context.Context, req domain.Request, timeout time.Duration) domain.AdapterResult {
	if res, ok := a.precheck(req); !ok {
		return res
	}

	timeout = a.clampTimeout(timeout)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Waiting for the session counts against the attempt timeout.
	select {
	case a.sem <- struct{}{}:
	case <-ctx.Done():
		return domain.Failed(domain.ReasonTimeout, "session busy")
	}
	defer func() { <-a.sem }()

	start := time.Now()
	res := a.drive(ctx, req)
	a.record(res, time.Since(start))
	return res
}

func (a *SessionAdapter) drive(ctx context.Context, req domain.Request) domain.AdapterResult {
	if a.session == nil {
		s, err := a.open(ctx)
		if err != nil {
			return domain.Failed(domain.ReasonTransient, fmt.Sprintf("open session: %v", err))
		}
		a.session = s
	}
	defer a.reset()

	if err := a.session.Submit(ctx, req.RawInput); err != nil {
		if ctx.Err() != nil {
			return domain.Failed(domain.ReasonTimeout, fmt.Sprintf("submit: %v", err))
		}
		return domain.Failed(ClassifyMessage(err.Error(), domain.ReasonInputRejected), fmt.Sprintf("submit: %v", err))
	}

	found, err := Poll(ctx, a.cfg.PollAttempts, a.cfg.PollInterval, func(ctx context.Context) (Candidate, bool, error) {
		cands, err := a.session.Candidates(ctx)
		if err != nil {
			return Candidate{}, false, err
		}
		for _, c := range cands {
			if classify.IsPlausibleArtifact(c.Ref, c.ContentType) {
				return c, true, nil
			}
		}
		return Candidate{}, false, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrPollExhausted):
		return domain.Failed(domain.ReasonNoArtifactFound, "no plausible candidate captured")
	case ctx.Err() != nil:
		return domain.Failed(domain.ReasonTimeout, "timed out waiting for candidates")
	default:
		return domain.Failed(domain.ReasonTransient, fmt.Sprintf("read candidates: %v", err))
	}

	return domain.Succeeded(domain.Success{
		ArtifactRef: found.Ref,
		MethodTag:   a.cfg.Method,
		ProviderTag: a.Tag(),
		Quality:     found.Quality,
		Filename:    found.Filename,
		ContentType: found.ContentType,
	})
}

// reset prepares the session for the next attempt. A session that cannot be
// reset is discarded and reopened on the next attempt.
func (a *SessionAdapter) reset() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.session.Reset(ctx); err != nil {
		_ = a.session.Close()
		a.session = nil
	}
}

// Close releases the session, waiting for any in-flight attempt.
func (a *SessionAdapter) Close() error {
	a.sem <- struct{}{}
	defer func() { <-a.sem }()
	if a.session == nil {
		return nil
	}
	err := a.session.Close()
	a.session = nil
	return err
}
