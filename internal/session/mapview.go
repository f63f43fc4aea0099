package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"delhidash/internal/zonemap"
	"delhidash/internal/zonemap/leaflet"
	"delhidash/internal/zones"
)

// Browser event types.
const (
	EventMounted = "mounted"
	EventLoaded  = "loaded"
	EventFailed  = "failed"
	EventFilter  = "filter"
	EventSelect  = "select"
	EventClear   = "clear"
	EventClick   = "click"
	EventUnmount = "unmount"
)

var ErrUnknownEvent = errors.New("unknown map event")

// Event is a browser notification about the map view.
type Event struct {
	Type      string            `json:"type"`
	Container string            `json:"container,omitempty"`
	Filter    string            `json:"filter,omitempty"`
	ZoneID    int               `json:"zoneId,omitempty"`
	Ref       zonemap.MarkerRef `json:"ref,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Result is returned to the browser after every event.
type Result struct {
	Phase    string            `json:"phase"`
	Error    string            `json:"error,omitempty"`
	Commands []leaflet.Command `json:"commands"`
}

// MapView is one open map page: the adapter plus the command queue the
// browser replays.
type MapView struct {
	ID      string
	Adapter *zonemap.Adapter
	Widget  *leaflet.Widget

	mu     sync.Mutex
	logger *slog.Logger
}

// Apply runs ev against the adapter and returns the commands it produced.
// Events on one view are serialized so each response carries exactly the
// commands its event caused.
func (mv *MapView) Apply(ev Event) (Result, error) {
	mv.mu.Lock()
	defer mv.mu.Unlock()

	err := mv.dispatch(ev)
	st := mv.Adapter.State()
	res := Result{Phase: st.Phase.String(), Commands: mv.Widget.Drain()}
	if st.Err != nil {
		res.Error = MapErrorMessage(st.Err)
	}
	return res, err
}

func (mv *MapView) dispatch(ev Event) error {
	a := mv.Adapter
	switch ev.Type {
	case EventMounted:
		_, err := a.Initialize(ev.Container)
		if errors.Is(err, zonemap.ErrTornDown) {
			return err
		}
		return nil
	case EventLoaded:
		return a.LibraryLoaded()
	case EventFailed:
		msg := ev.Error
		if msg == "" {
			msg = "script load error"
		}
		a.LibraryFailed(errors.New(msg))
		return nil
	case EventFilter:
		f, err := zones.ParseFilter(ev.Filter)
		if err != nil {
			return err
		}
		return a.SetFilter(f)
	case EventSelect:
		return a.SelectZone(ev.ZoneID)
	case EventClear:
		a.ClearSelection()
		return nil
	case EventClick:
		return mv.Widget.Click(ev.Ref)
	case EventUnmount:
		mv.teardownLocked()
		return nil
	default:
		return fmt.Errorf("%q: %w", ev.Type, ErrUnknownEvent)
	}
}

func (mv *MapView) teardown() {
	mv.mu.Lock()
	defer mv.mu.Unlock()
	mv.teardownLocked()
}

func (mv *MapView) teardownLocked() {
	mv.Adapter.Teardown()
}

// MapErrorMessage maps an adapter failure to the status banner text.
func MapErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, zonemap.ErrLoadTimeout):
		return "The map is taking too long to load. Check your connection and reload the page."
	case errors.Is(err, zonemap.ErrLibraryFailed):
		return "The map library could not be loaded. Reload the page to try again."
	default:
		return "The map could not be initialized."
	}
}
