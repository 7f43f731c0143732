// Package launcher starts external work sessions for a selected drive. It
// is stateless: ledger, retry queue, and triggered-set bookkeeping all live
// with the caller.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Request carries the rendered prompt and drive metadata for a session.
type Request struct {
	Drive     string  `json:"drive"`
	Prompt    string  `json:"prompt"`
	Pressure  float64 `json:"pressure"`
	Threshold float64 `json:"threshold"`
}

// Result reports an accepted session. A launch only counts as successful
// when the transport's response structurally indicates acceptance — a
// session identifier or an explicit ok flag. Absence of an error is not
// sufficient.
type Result struct {
	SessionID string `json:"session_id"`
	Transport string `json:"transport"`
}

// Launcher is a single session transport.
type Launcher interface {
	Name() string
	Launch(ctx context.Context, req *Request) (*Result, error)
}

// Fallback tries an ordered list of transports and returns the first
// acceptance. Every transport failing is a single launch failure to the
// caller.
type Fallback struct {
	launchers []Launcher
}

// NewFallback builds an ordered-try launcher. Nil entries are skipped so
// callers can pass optionally-configured transports directly.
func NewFallback(launchers ...Launcher) *Fallback {
	f := &Fallback{}
	for _, l := range launchers {
		if l != nil {
			f.launchers = append(f.launchers, l)
		}
	}
	return f
}

func (f *Fallback) Name() string { return "fallback" }

// Launch tries each transport in order.
func (f *Fallback) Launch(ctx context.Context, req *Request) (*Result, error) {
	if len(f.launchers) == 0 {
		return nil, errors.New("no session transports configured")
	}

	var errs []error
	for _, l := range f.launchers {
		res, err := l.Launch(ctx, req)
		if err == nil {
			return res, nil
		}
		log.Printf("[Launcher] %s transport failed for drive %s: %v", l.Name(), req.Drive, err)
		errs = append(errs, fmt.Errorf("%s: %w", l.Name(), err))
	}

	return nil, errors.Join(errs...)
}
