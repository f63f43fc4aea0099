// Package zonemap keeps an imperative map widget in step with the zone
// filter and selection owned by the view.
//
// An Adapter owns one marker per zone for the lifetime of a mounted map
// view. Markers are created once, when both the mapping library has loaded
// and the container is mounted, and are afterwards only mutated: opacity
// follows the filter, the popup and camera follow the selection.
package zonemap

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"delhidash/internal/zones"
)

// Phase is the lifecycle state of a map view.
type Phase int

const (
	PhaseUnloaded Phase = iota
	PhaseLoading
	PhaseReady
	PhaseFailed
	PhaseTornDown
)

func (p Phase) String() string {
	switch p {
	case PhaseUnloaded:
		return "unloaded"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	case PhaseTornDown:
		return "torn_down"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

const (
	InitialZoom        = 11
	SelectZoom         = 14
	FlyDuration        = time.Second
	FullOpacity        = 1.0
	DimOpacity         = 0.2
	DefaultLoadTimeout = 15 * time.Second

	TileURL         = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	TileAttribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`
)

// Center is the initial camera position over Delhi.
var Center = LatLng{Lat: 28.6139, Lng: 77.2090}

var (
	ErrAlreadyMounted = errors.New("map view already mounted")
	ErrTornDown       = errors.New("map view torn down")
	ErrLoadTimeout    = errors.New("map library did not load in time")
	ErrLibraryFailed  = errors.New("map library failed to load")
)

// MarkerHandle pairs a zone with its marker in the widget.
type MarkerHandle struct {
	Zone    zones.Zone
	Ref     MarkerRef
	Opacity float64
}

// Options tune an Adapter. Zero values select defaults.
type Options struct {
	Clock        clockwork.Clock
	LoadTimeout  time.Duration
	Logger       *slog.Logger
	InitialState zones.FilterStatus
	// OnTransition is called after every phase change, outside the lock.
	OnTransition func(from, to Phase)
}

// State is a point-in-time copy of the adapter's view state.
type State struct {
	Phase    Phase
	Err      error
	Filter   zones.FilterStatus
	Selected *zones.Zone
	Markers  []MarkerHandle
}

// Adapter bridges filter/selection state to a Widget.
type Adapter struct {
	mu           sync.Mutex
	widget       Widget
	scope        *Scope
	zones        []zones.Zone
	clock        clockwork.Clock
	loadTimeout  time.Duration
	logger       *slog.Logger
	onTransition func(from, to Phase)

	phase         Phase
	failure       error
	libraryLoaded bool
	container     string
	timer         clockwork.Timer

	markers   []MarkerHandle
	byZone    map[int]int
	filter    zones.FilterStatus
	selected  int
	openPopup MarkerRef
}

// New creates an adapter for the full zone table.
func New(w Widget, scope *Scope, opts Options) *Adapter {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = DefaultLoadTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.InitialState == "" {
		opts.InitialState = zones.FilterAll
	}
	return &Adapter{
		widget:       w,
		scope:        scope,
		zones:        zones.All(),
		clock:        opts.Clock,
		loadTimeout:  opts.LoadTimeout,
		logger:       opts.Logger,
		onTransition: opts.OnTransition,
		filter:       opts.InitialState,
		byZone:       make(map[int]int),
	}
}

// Mount starts loading the mapping library for this view.
func (a *Adapter) Mount() error {
	a.mu.Lock()
	if a.phase != PhaseUnloaded {
		a.mu.Unlock()
		return ErrAlreadyMounted
	}
	if a.scope != nil {
		a.scope.Acquire()
	}
	a.timer = a.clock.AfterFunc(a.loadTimeout, a.loadTimedOut)
	from := a.setPhase(PhaseLoading)
	a.mu.Unlock()

	a.notify(from, PhaseLoading)
	return nil
}

// LibraryLoaded records that the library finished loading and initializes
// the map if the container is already mounted.
func (a *Adapter) LibraryLoaded() error {
	a.mu.Lock()
	if a.phase == PhaseTornDown {
		a.mu.Unlock()
		return ErrTornDown
	}
	a.libraryLoaded = true
	from, to, changed := a.tryInitialize()
	a.mu.Unlock()

	if changed {
		a.notify(from, to)
	}
	return nil
}

// LibraryFailed marks the view as failed. No retry is attempted.
func (a *Adapter) LibraryFailed(cause error) {
	a.mu.Lock()
	if a.phase != PhaseLoading {
		a.mu.Unlock()
		return
	}
	err := ErrLibraryFailed
	if cause != nil {
		err = fmt.Errorf("%w: %v", ErrLibraryFailed, cause)
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	from := a.fail(err)
	a.mu.Unlock()

	a.notify(from, PhaseFailed)
}

// Initialize binds the map to container. Until the library has loaded it
// only records the container and reports false; the map is built by
// whichever of Initialize or LibraryLoaded happens last.
func (a *Adapter) Initialize(container string) (bool, error) {
	a.mu.Lock()
	if a.phase == PhaseTornDown {
		a.mu.Unlock()
		return false, ErrTornDown
	}
	if container != "" {
		a.container = container
	}
	from, to, changed := a.tryInitialize()
	ready := a.phase == PhaseReady
	err := a.failure
	a.mu.Unlock()

	if changed {
		a.notify(from, to)
	}
	return ready, err
}

// SetFilter updates the emphasized status. Markers not matching are dimmed,
// never removed, so every marker stays clickable.
func (a *Adapter) SetFilter(f zones.FilterStatus) error {
	f, err := zones.ParseFilter(string(f))
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase == PhaseTornDown {
		return ErrTornDown
	}
	a.filter = f
	if a.phase == PhaseReady {
		a.applyFilter()
	}
	return nil
}

// SelectZone selects the zone with the given id. When the map is ready the
// camera flies to the zone and its popup replaces any open popup.
func (a *Adapter) SelectZone(id int) error {
	z, err := zones.ByID(id)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase == PhaseTornDown {
		return ErrTornDown
	}
	a.selected = z.ID
	if a.phase != PhaseReady {
		return nil
	}

	a.widget.FlyTo(LatLng{Lat: z.Lat, Lng: z.Lng}, SelectZoom, FlyOptions{Animate: true, Duration: FlyDuration})
	ref := a.markers[a.byZone[z.ID]].Ref
	if a.openPopup != "" && a.openPopup != ref {
		a.widget.ClosePopup(a.openPopup)
	}
	a.widget.OpenPopup(ref)
	a.openPopup = ref
	return nil
}

// ClearSelection drops the selection. The camera does not move.
func (a *Adapter) ClearSelection() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.selected = 0
}

// Teardown releases the library resources held by this view. Markers go
// away with the map instance and are not destroyed one by one.
func (a *Adapter) Teardown() {
	a.mu.Lock()
	if a.phase == PhaseTornDown {
		a.mu.Unlock()
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	if a.scope != nil && a.phase != PhaseUnloaded {
		a.scope.Release()
	}
	from := a.setPhase(PhaseTornDown)
	a.mu.Unlock()

	a.notify(from, PhaseTornDown)
}

// State returns a snapshot of the adapter.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := State{
		Phase:   a.phase,
		Err:     a.failure,
		Filter:  a.filter,
		Markers: append([]MarkerHandle(nil), a.markers...),
	}
	if a.selected != 0 {
		if z, err := zones.ByID(a.selected); err == nil {
			st.Selected = &z
		}
	}
	return st
}

// tryInitialize performs the load/mount join. Callers hold a.mu.
func (a *Adapter) tryInitialize() (from, to Phase, changed bool) {
	if a.phase != PhaseLoading || !a.libraryLoaded || a.container == "" {
		return a.phase, a.phase, false
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	if err := a.build(); err != nil {
		a.logger.Error("Map initialization failed", "error", err, "container", a.container)
		return a.fail(err), PhaseFailed, true
	}
	from = a.setPhase(PhaseReady)
	a.applyFilter()
	a.logger.Debug("Map ready", "container", a.container, "markers", len(a.markers), "filter", a.filter)
	return from, PhaseReady, true
}

func (a *Adapter) build() error {
	if err := a.widget.CreateMap(a.container, Center, InitialZoom); err != nil {
		return fmt.Errorf("create map: %w", err)
	}
	if err := a.widget.AddTileLayer(TileURL, TileAttribution); err != nil {
		return fmt.Errorf("add tile layer: %w", err)
	}

	handles := make([]MarkerHandle, 0, len(a.zones))
	for _, z := range a.zones {
		ref, err := a.widget.AddMarker(LatLng{Lat: z.Lat, Lng: z.Lng}, markerIcon(z.Status))
		if err != nil {
			return fmt.Errorf("add marker for zone %d: %w", z.ID, err)
		}
		a.widget.BindPopup(ref, z.PopupHTML())
		id := z.ID
		a.widget.OnClick(ref, func() {
			if err := a.SelectZone(id); err != nil {
				a.logger.Warn("Marker click ignored", "zone_id", id, "error", err)
			}
		})
		handles = append(handles, MarkerHandle{Zone: z, Ref: ref, Opacity: FullOpacity})
	}

	a.markers = handles
	for i, h := range handles {
		a.byZone[h.Zone.ID] = i
	}
	return nil
}

func (a *Adapter) applyFilter() {
	for i := range a.markers {
		m := &a.markers[i]
		opacity := DimOpacity
		if a.filter.Matches(m.Zone.Status) {
			opacity = FullOpacity
		}
		m.Opacity = opacity
		a.widget.SetOpacity(m.Ref, opacity)
	}
}

func (a *Adapter) loadTimedOut() {
	a.mu.Lock()
	if a.phase != PhaseLoading {
		a.mu.Unlock()
		return
	}
	from := a.fail(ErrLoadTimeout)
	a.mu.Unlock()

	a.logger.Warn("Map library load timed out", "timeout", a.loadTimeout)
	a.notify(from, PhaseFailed)
}

func (a *Adapter) fail(err error) Phase {
	a.failure = err
	a.markers = nil
	clear(a.byZone)
	return a.setPhase(PhaseFailed)
}

func (a *Adapter) setPhase(p Phase) Phase {
	from := a.phase
	a.phase = p
	return from
}

func (a *Adapter) notify(from, to Phase) {
	if a.onTransition != nil && from != to {
		a.onTransition(from, to)
	}
}

func markerIcon(s zones.Status) Icon {
	return Icon{
		ClassName: "custom-div-icon",
		HTML: `<div style="background-color: ` + s.Color() +
			`; width: 16px; height: 16px; border-radius: 50%; border: 2px solid white;"></div>`,
		Size:   20,
		Anchor: 10,
	}
}
