package menu

import (
	"sync/atomic"

	"github.com/bryanchriswhite/PTZView/internal/logger"
	"github.com/bryanchriswhite/PTZView/internal/source"
)

// Async runs a blocking Provider on its own goroutine. Only one menu is open
// at a time; requests while one is showing are ignored.
type Async struct {
	provider Provider
	busy     atomic.Bool
}

// NewAsync wraps provider
func NewAsync(provider Provider) *Async {
	return &Async{provider: provider}
}

// ShowAsync implements AsyncProvider
func (a *Async) ShowAsync(groups []source.Group, done func(string, error)) {
	if !a.busy.CompareAndSwap(false, true) {
		logger.WithComponent("menu").Debug().Msg("Menu already open")
		return
	}

	go func() {
		defer a.busy.Store(false)
		defer logger.Recover("menu")

		sel := SafeShow(a.provider, groups)
		if sel == "" {
			done("", ErrDismissed)
			return
		}
		done(sel, nil)
	}()
}

// Busy reports whether a menu is currently open
func (a *Async) Busy() bool {
	return a.busy.Load()
}
