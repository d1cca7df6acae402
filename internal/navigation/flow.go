package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Page is one view. Show blocks until the user leaves the view and returns
// where to go next. A returned error ends the flow; recoverable failures must
// be handled inside the page.
type Page interface {
	Route() Route
	Show(ctx context.Context, in Handoff) (Transition, error)
}

// Flow runs pages until one of them exits.
type Flow struct {
	pages  map[Route]Page
	logger *slog.Logger
}

// NewFlow registers pages by route.
func NewFlow(logger *slog.Logger, pages ...Page) (*Flow, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Flow{pages: make(map[Route]Page, len(pages)), logger: logger}
	for _, p := range pages {
		if p == nil {
			return nil, errors.New("navigation: nil page")
		}
		if _, dup := f.pages[p.Route()]; dup {
			return nil, fmt.Errorf("navigation: duplicate page for route %q", p.Route())
		}
		f.pages[p.Route()] = p
	}
	return f, nil
}

// Run starts at route with payload and follows transitions.
func (f *Flow) Run(ctx context.Context, start Route, payload Handoff) error {
	router := NewRouter(RouteHome)
	if start != RouteHome {
		router.Go(start, payload)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		route, in := router.Current()
		page, ok := f.pages[route]
		if !ok {
			return fmt.Errorf("navigation: no page registered for route %q", route)
		}

		tr, err := page.Show(ctx, in)
		if err != nil {
			return fmt.Errorf("navigation: %s: %w", route, err)
		}

		switch tr.kind {
		case kindExit:
			f.logger.Debug("navigation: exit", "from", route)
			return nil
		case kindGo:
			f.logger.Debug("navigation: go", "from", route, "to", tr.To)
			router.Go(tr.To, tr.Payload)
		case kindBack:
			if !router.Back() {
				f.logger.Debug("navigation: back with empty history", "route", route)
			}
		case kindRestart:
			f.logger.Debug("navigation: restart", "from", route)
			router.Reset()
		case kindStay:
		}
	}
}
