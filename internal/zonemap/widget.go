package zonemap

import "time"

// MarkerRef is an opaque handle into the widget's marker registry.
type MarkerRef string

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Icon describes a div icon: raw HTML plus size and anchor in pixels.
type Icon struct {
	ClassName string `json:"className"`
	HTML      string `json:"html"`
	Size      int    `json:"size"`
	Anchor    int    `json:"anchor"`
}

// FlyOptions controls the animated camera move.
type FlyOptions struct {
	Animate  bool
	Duration time.Duration
}

// Widget is the imperative surface of the external mapping library.
// Implementations are not required to be safe for concurrent use; the
// Adapter serializes every call.
type Widget interface {
	CreateMap(container string, center LatLng, zoom int) error
	AddTileLayer(urlTemplate, attribution string) error
	AddMarker(pos LatLng, icon Icon) (MarkerRef, error)
	BindPopup(ref MarkerRef, html string)
	OnClick(ref MarkerRef, fn func())
	SetOpacity(ref MarkerRef, opacity float64)
	OpenPopup(ref MarkerRef)
	ClosePopup(ref MarkerRef)
	FlyTo(target LatLng, zoom int, opts FlyOptions)
}

// ResourceLoader injects and removes document-level resources such as the
// library stylesheet and script.
type ResourceLoader interface {
	Inject(lib Library)
	Remove(lib Library)
}
