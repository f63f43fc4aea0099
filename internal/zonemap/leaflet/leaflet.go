// Package leaflet implements the zonemap widget port by recording Leaflet
// calls as commands. The browser drains the queue after every event it
// posts and replays the commands against the real library (see
// web/static/map.js), so all map state decisions stay on the server.
package leaflet

import (
	"errors"
	"fmt"
	"sync"

	"delhidash/internal/zonemap"
)

// Command ops understood by map.js.
const (
	OpInject     = "inject"
	OpRemove     = "remove"
	OpCreateMap  = "createMap"
	OpTileLayer  = "tileLayer"
	OpMarker     = "marker"
	OpBindPopup  = "bindPopup"
	OpListen     = "listen"
	OpSetOpacity = "setOpacity"
	OpOpenPopup  = "openPopup"
	OpClosePopup = "closePopup"
	OpFlyTo      = "flyTo"
)

var (
	ErrUnknownMarker = errors.New("unknown marker")
	ErrNoMap         = errors.New("map not created")
)

// Command is one Leaflet call in wire form.
type Command struct {
	Op          string            `json:"op"`
	Ref         zonemap.MarkerRef `json:"ref,omitempty"`
	Container   string            `json:"container,omitempty"`
	Center      *zonemap.LatLng   `json:"center,omitempty"`
	Zoom        int               `json:"zoom,omitempty"`
	URL         string            `json:"url,omitempty"`
	Attribution string            `json:"attribution,omitempty"`
	Icon        *zonemap.Icon     `json:"icon,omitempty"`
	HTML        string            `json:"html,omitempty"`
	Opacity     *float64          `json:"opacity,omitempty"`
	Animate     bool              `json:"animate,omitempty"`
	Duration    float64           `json:"duration,omitempty"`
	Library     *zonemap.Library  `json:"library,omitempty"`
}

// Widget records Leaflet calls for one map view. It also serves as the
// view's ResourceLoader so library injection travels in the same queue.
type Widget struct {
	mu       sync.Mutex
	queue    []Command
	created  bool
	next     int
	markers  map[zonemap.MarkerRef]bool
	handlers map[zonemap.MarkerRef]func()
	// maxMarkers caps marker creation; zero means unlimited.
	maxMarkers int
}

var (
	_ zonemap.Widget         = (*Widget)(nil)
	_ zonemap.ResourceLoader = (*Widget)(nil)
)

func New() *Widget {
	return &Widget{
		markers:  make(map[zonemap.MarkerRef]bool),
		handlers: make(map[zonemap.MarkerRef]func()),
	}
}

func (w *Widget) Inject(lib zonemap.Library) {
	w.push(Command{Op: OpInject, Library: &lib})
}

func (w *Widget) Remove(lib zonemap.Library) {
	w.push(Command{Op: OpRemove, Library: &lib})
}

func (w *Widget) CreateMap(container string, center zonemap.LatLng, zoom int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if container == "" {
		return errors.New("empty map container")
	}
	w.created = true
	w.queue = append(w.queue, Command{Op: OpCreateMap, Container: container, Center: &center, Zoom: zoom})
	return nil
}

func (w *Widget) AddTileLayer(urlTemplate, attribution string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.created {
		return ErrNoMap
	}
	w.queue = append(w.queue, Command{Op: OpTileLayer, URL: urlTemplate, Attribution: attribution})
	return nil
}

func (w *Widget) AddMarker(pos zonemap.LatLng, icon zonemap.Icon) (zonemap.MarkerRef, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.created {
		return "", ErrNoMap
	}
	if w.maxMarkers > 0 && len(w.markers) >= w.maxMarkers {
		return "", fmt.Errorf("marker limit %d reached", w.maxMarkers)
	}
	w.next++
	ref := zonemap.MarkerRef(fmt.Sprintf("m%d", w.next))
	w.markers[ref] = true
	w.queue = append(w.queue, Command{Op: OpMarker, Ref: ref, Center: &pos, Icon: &icon})
	return ref, nil
}

func (w *Widget) BindPopup(ref zonemap.MarkerRef, html string) {
	w.push(Command{Op: OpBindPopup, Ref: ref, HTML: html})
}

// OnClick registers fn for ref and tells the browser to report clicks on
// the marker. Clicks come back through Click.
func (w *Widget) OnClick(ref zonemap.MarkerRef, fn func()) {
	w.mu.Lock()
	w.handlers[ref] = fn
	w.queue = append(w.queue, Command{Op: OpListen, Ref: ref})
	w.mu.Unlock()
}

func (w *Widget) SetOpacity(ref zonemap.MarkerRef, opacity float64) {
	w.push(Command{Op: OpSetOpacity, Ref: ref, Opacity: &opacity})
}

func (w *Widget) OpenPopup(ref zonemap.MarkerRef) {
	w.push(Command{Op: OpOpenPopup, Ref: ref})
}

func (w *Widget) ClosePopup(ref zonemap.MarkerRef) {
	w.push(Command{Op: OpClosePopup, Ref: ref})
}

func (w *Widget) FlyTo(target zonemap.LatLng, zoom int, opts zonemap.FlyOptions) {
	w.push(Command{
		Op:       OpFlyTo,
		Center:   &target,
		Zoom:     zoom,
		Animate:  opts.Animate,
		Duration: opts.Duration.Seconds(),
	})
}

// Click dispatches a marker click reported by the browser. The handler
// runs without the widget lock held since it calls back into the widget.
func (w *Widget) Click(ref zonemap.MarkerRef) error {
	w.mu.Lock()
	fn, ok := w.handlers[ref]
	w.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", ref, ErrUnknownMarker)
	}
	fn()
	return nil
}

// Drain returns the pending commands and empties the queue.
func (w *Widget) Drain() []Command {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.queue
	w.queue = nil
	if out == nil {
		out = []Command{}
	}
	return out
}

func (w *Widget) push(c Command) {
	w.mu.Lock()
	w.queue = append(w.queue, c)
	w.mu.Unlock()
}
