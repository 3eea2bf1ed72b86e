// Package adapter serves the MMU adapter endpoint. The Router answers requests against the
// explicit adapter State and the Controller runs the lifecycle around it.
package adapter

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	"github.com/mosim-go/mmuadapter/discovery"
	"github.com/mosim-go/mmuadapter/mmi"
	"github.com/mosim-go/mmuadapter/module"
	"github.com/mosim-go/mmuadapter/session"
)

// Version is reported by GetStatus.
const Version = "0.1.0"

// State is everything a request may read or change. It is shared by the Router and the
// Controller.
type State struct {
	Description mmi.AdapterDescription
	Catalog     *discovery.Catalog
	Sessions    *session.Store
	Loader      module.Loader
	Clock       clock.Clock

	startTime  time.Time
	lastAccess *atomic.Time
	accessed   *atomic.Bool
}

// NewState returns a State started now.
func NewState(
	description mmi.AdapterDescription,
	catalog *discovery.Catalog,
	sessions *session.Store,
	loader module.Loader,
	clk clock.Clock,
) *State {
	if clk == nil {
		clk = clock.New()
	}
	return &State{
		Description: description,
		Catalog:     catalog,
		Sessions:    sessions,
		Loader:      loader,
		Clock:       clk,
		startTime:   clk.Now(),
		lastAccess:  atomic.NewTime(time.Time{}),
		accessed:    atomic.NewBool(false),
	}
}

// StartTime returns when the state was created.
func (s *State) StartTime() time.Time {
	return s.startTime
}

// Touch records an access at the current time.
func (s *State) Touch() {
	s.lastAccess.Store(s.Clock.Now())
	s.accessed.Store(true)
}

// LastAccess returns the time of the latest access and false if there was none yet.
func (s *State) LastAccess() (time.Time, bool) {
	if !s.accessed.Load() {
		return time.Time{}, false
	}
	return s.lastAccess.Load(), true
}
