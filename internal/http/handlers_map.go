package http

import (
	"errors"
	"net/http"

	applog "delhidash/internal/log"
	"delhidash/internal/middleware/trace"
	"delhidash/internal/session"
	"delhidash/internal/zonemap"
	"delhidash/internal/zonemap/leaflet"
	"delhidash/internal/zones"
)

// MapContainerID is the element Leaflet renders into.
const MapContainerID = "leaflet-map"

const msgMapExpired = "This map session has expired. Reload the page to start a new one."

// mapPanel is the view model shared by the map page and its partials.
type mapPanel struct {
	SID       string
	Container string
	Phase     string
	Loading   bool
	Error     string
	Filters   []filterButton
	Zones     []zoneRow
	Selected  *zoneDetails
}

// zoneDetails is the selected zone panel.
type zoneDetails struct {
	ID             int
	Name           string
	Status         zones.Status
	Location       string
	Recommendation zones.Recommendation
}

func newMapPanel(mv *session.MapView) mapPanel {
	st := mv.Adapter.State()
	p := mapPanel{
		SID:       mv.ID,
		Container: MapContainerID,
		Phase:     st.Phase.String(),
		Loading:   st.Phase == zonemap.PhaseUnloaded || st.Phase == zonemap.PhaseLoading,
		Error:     session.MapErrorMessage(st.Err),
		Filters:   filterButtons(st.Filter),
	}
	selected := 0
	if z := st.Selected; z != nil {
		selected = z.ID
		p.Selected = &zoneDetails{
			ID:             z.ID,
			Name:           z.Name,
			Status:         z.Status,
			Location:       formatCoords(*z, 6),
			Recommendation: z.Status.Recommendation(),
		}
	}
	p.Zones = zoneRows(zones.Filter(zones.All(), st.Filter), selected)
	return p
}

// handleMap opens a map view session and renders the map page.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	initial, err := ParseMapQuery(r.URL.Query())
	if err != nil {
		BadRequestError("Unknown zone filter. Use all, red, yellow or green.").Write(w)
		return
	}

	mv, err := s.store.NewMapView(initial)
	if err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(),
			"Map view creation failed", err, applog.ComponentSession, applog.OpMount,
			applog.NewFields().WithErrorType(applog.ErrorTypeInternal))
		InternalServerError("The map could not be opened.").Write(w)
		return
	}
	trace.Logger(r.Context()).Debug("Map view opened",
		applog.FieldSessionID, mv.ID,
		applog.FieldFilter, string(initial))

	data := struct {
		Page   string
		Legend []legendEntry
		Map    mapPanel
	}{
		Page:   "map",
		Legend: legend(),
		Map:    newMapPanel(mv),
	}
	s.render(w, r, "map.html", data)
}

// handleMapEvent applies one browser event to the view's adapter and answers
// with the Leaflet commands the browser must replay.
func (s *Server) handleMapEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := r.PathValue("sid")
	events := applog.NewStructuredLogger(applog.FromContext(ctx))

	ev, err := DecodeMapEvent(w, r)
	if err != nil {
		events.LogMapEvent(ctx, sid, "", "", err)
		NewHTMXResponse().Status(http.StatusBadRequest).
			JSON(session.Result{Error: "Malformed map event.", Commands: []leaflet.Command{}}).
			Write(w)
		return
	}

	mv, err := s.store.MapView(sid)
	if err != nil {
		events.LogMapEvent(ctx, sid, ev.Type, "", err)
		NewHTMXResponse().Status(http.StatusNotFound).
			JSON(session.Result{Phase: zonemap.PhaseTornDown.String(), Error: msgMapExpired, Commands: []leaflet.Command{}}).
			Write(w)
		return
	}

	res, err := mv.Apply(ev)
	if !errors.Is(err, session.ErrUnknownEvent) {
		s.metrics.MapEvents.WithLabelValues(ev.Type).Inc()
	}
	events.LogMapEvent(ctx, sid, ev.Type, res.Phase, err)
	if ev.Type == session.EventUnmount {
		s.store.EndMapView(sid)
	}

	if err == nil && (ev.Type == session.EventSelect || ev.Type == session.EventClick) {
		if z := mv.Adapter.State().Selected; z != nil {
			trace.Logger(ctx).Debug("Zone selected",
				applog.NewFields().WithSession(sid).WithZone(z.ID, z.Name).ToSlice()...)
		}
	}

	status := http.StatusOK
	if err != nil {
		status = eventErrorStatus(err)
		res.Error = eventErrorMessage(err)
	}
	NewHTMXResponse().Status(status).TriggerMapChanged(res.Phase).JSON(res).Write(w)
}

func eventErrorStatus(err error) int {
	switch {
	case errors.Is(err, zonemap.ErrTornDown):
		return http.StatusNotFound
	case errors.Is(err, session.ErrUnknownEvent),
		errors.Is(err, zones.ErrInvalidFilter),
		errors.Is(err, zones.ErrUnknownZone),
		errors.Is(err, leaflet.ErrUnknownMarker):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func eventErrorMessage(err error) string {
	switch {
	case errors.Is(err, zonemap.ErrTornDown):
		return msgMapExpired
	case errors.Is(err, zones.ErrInvalidFilter):
		return "Unknown zone filter."
	case errors.Is(err, zones.ErrUnknownZone), errors.Is(err, leaflet.ErrUnknownMarker):
		return "Unknown zone."
	case errors.Is(err, session.ErrUnknownEvent):
		return "Unknown map event."
	default:
		return "The map could not process that action."
	}
}

// lookupMapView resolves the {sid} path value, answering 404 when the view
// is gone.
func (s *Server) lookupMapView(w http.ResponseWriter, r *http.Request) (*session.MapView, bool) {
	mv, err := s.store.MapView(r.PathValue("sid"))
	if err != nil {
		NotFoundError(msgMapExpired).Write(w)
		return nil, false
	}
	return mv, true
}

// handleMapZones renders the filter bar and zone list.
func (s *Server) handleMapZones(w http.ResponseWriter, r *http.Request) {
	if mv, ok := s.lookupMapView(w, r); ok {
		s.renderPartial(w, r, "map_zones", newMapPanel(mv), NewHTMXResponse())
	}
}

// handleMapDetails renders the selected zone panel.
func (s *Server) handleMapDetails(w http.ResponseWriter, r *http.Request) {
	if mv, ok := s.lookupMapView(w, r); ok {
		s.renderPartial(w, r, "map_details", newMapPanel(mv), NewHTMXResponse())
	}
}

// handleMapStatus renders the loading or failure banner. The banner polls
// itself while the map is loading.
func (s *Server) handleMapStatus(w http.ResponseWriter, r *http.Request) {
	if mv, ok := s.lookupMapView(w, r); ok {
		s.renderPartial(w, r, "map_status", newMapPanel(mv), NewHTMXResponse())
	}
}
