package service

import (
	"sync/atomic"
	"time"
)

// State is what the probes report.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	runs        atomic.Int64
	lastRunUnix atomic.Int64 // unix seconds
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

// TouchRun records a finished analysis run.
func (s *State) TouchRun(t time.Time) {
	s.runs.Add(1)
	s.lastRunUnix.Store(t.Unix())
}

func (s *State) Runs() int64 { return s.runs.Load() }

func (s *State) LastRun() time.Time {
	u := s.lastRunUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
