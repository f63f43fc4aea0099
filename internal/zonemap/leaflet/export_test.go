package leaflet

// SetMaxMarkers caps how many markers w accepts before AddMarker fails.
func SetMaxMarkers(w *Widget, n int) {
	w.mu.Lock()
	w.maxMarkers = n
	w.mu.Unlock()
}
