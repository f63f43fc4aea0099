package leaflet_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delhidash/internal/zonemap"
	"delhidash/internal/zonemap/leaflet"
	"delhidash/internal/zones"
)

func ops(cmds []leaflet.Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Op
	}
	return out
}

func count(cmds []leaflet.Command, op string) int {
	n := 0
	for _, c := range cmds {
		if c.Op == op {
			n++
		}
	}
	return n
}

func TestAdapterOverRecordingWidget(t *testing.T) {
	w := leaflet.New()
	a := zonemap.New(w, zonemap.NewScope(zonemap.Leaflet, w), zonemap.Options{})

	require.NoError(t, a.Mount())
	cmds := w.Drain()
	require.Len(t, cmds, 1)
	assert.Equal(t, leaflet.OpInject, cmds[0].Op)
	assert.Equal(t, zonemap.Leaflet.Script, cmds[0].Library.Script)

	_, err := a.Initialize("zone-map")
	require.NoError(t, err)
	assert.Empty(t, w.Drain())

	require.NoError(t, a.LibraryLoaded())
	cmds = w.Drain()
	assert.Equal(t, []string{leaflet.OpCreateMap, leaflet.OpTileLayer}, ops(cmds[:2]))
	assert.Equal(t, "zone-map", cmds[0].Container)
	assert.Equal(t, zonemap.InitialZoom, cmds[0].Zoom)
	assert.Equal(t, 8, count(cmds, leaflet.OpMarker))
	assert.Equal(t, 8, count(cmds, leaflet.OpBindPopup))
	assert.Equal(t, 8, count(cmds, leaflet.OpListen))
	assert.Equal(t, 8, count(cmds, leaflet.OpSetOpacity))
}

func TestClickRoundTrip(t *testing.T) {
	w := leaflet.New()
	a := zonemap.New(w, nil, zonemap.Options{})
	require.NoError(t, a.Mount())
	require.NoError(t, a.LibraryLoaded())
	_, err := a.Initialize("zone-map")
	require.NoError(t, err)
	w.Drain()

	require.NoError(t, w.Click("m7"))
	cmds := w.Drain()
	require.Equal(t, []string{leaflet.OpFlyTo, leaflet.OpOpenPopup}, ops(cmds))
	assert.Equal(t, zonemap.SelectZoom, cmds[0].Zoom)
	assert.Equal(t, 1.0, cmds[0].Duration)
	assert.True(t, cmds[0].Animate)
	assert.Equal(t, zonemap.MarkerRef("m7"), cmds[1].Ref)

	require.NoError(t, w.Click("m3"))
	cmds = w.Drain()
	assert.Equal(t, []string{leaflet.OpFlyTo, leaflet.OpClosePopup, leaflet.OpOpenPopup}, ops(cmds))
	assert.Equal(t, zonemap.MarkerRef("m7"), cmds[1].Ref)

	assert.ErrorIs(t, w.Click("m99"), leaflet.ErrUnknownMarker)
}

func TestFilterCommands(t *testing.T) {
	w := leaflet.New()
	a := zonemap.New(w, nil, zonemap.Options{})
	require.NoError(t, a.Mount())
	require.NoError(t, a.LibraryLoaded())
	_, err := a.Initialize("zone-map")
	require.NoError(t, err)
	w.Drain()

	require.NoError(t, a.SetFilter(zones.FilterYellow))
	dimmed := 0
	for _, c := range w.Drain() {
		require.Equal(t, leaflet.OpSetOpacity, c.Op)
		require.NotNil(t, c.Opacity)
		if *c.Opacity == zonemap.DimOpacity {
			dimmed++
		}
	}
	assert.Equal(t, 5, dimmed)
}

func TestMarkerLimitFailsInitialization(t *testing.T) {
	w := leaflet.New()
	leaflet.SetMaxMarkers(w, 2)
	a := zonemap.New(w, nil, zonemap.Options{})
	require.NoError(t, a.Mount())
	require.NoError(t, a.LibraryLoaded())
	_, err := a.Initialize("zone-map")
	require.Error(t, err)
	assert.Equal(t, zonemap.PhaseFailed, a.State().Phase)
}

func TestTileLayerRequiresMap(t *testing.T) {
	w := leaflet.New()
	assert.ErrorIs(t, w.AddTileLayer("x", "y"), leaflet.ErrNoMap)
	_, err := w.AddMarker(zonemap.LatLng{}, zonemap.Icon{})
	assert.ErrorIs(t, err, leaflet.ErrNoMap)
}

func TestCommandJSON(t *testing.T) {
	w := leaflet.New()
	opacity := 0.2
	w.SetOpacity("m1", opacity)
	b, err := json.Marshal(w.Drain())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"op":"setOpacity","ref":"m1","opacity":0.2}]`, string(b))

	b, err = json.Marshal(w.Drain())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
}
