package zonemap

import "sync"

// Library identifies the external mapping library assets.
type Library struct {
	Name       string `json:"name"`
	Stylesheet string `json:"stylesheet"`
	Script     string `json:"script"`
}

// Leaflet is the CDN build the map view loads.
var Leaflet = Library{
	Name:       "leaflet",
	Stylesheet: "https://cdnjs.cloudflare.com/ajax/libs/leaflet/1.9.4/leaflet.css",
	Script:     "https://cdnjs.cloudflare.com/ajax/libs/leaflet/1.9.4/leaflet.js",
}

// Scope is a reference-counted acquisition of a Library. The first Acquire
// injects the assets, the matching last Release removes them.
type Scope struct {
	mu     sync.Mutex
	lib    Library
	loader ResourceLoader
	refs   int
}

// NewScope creates a scope for lib backed by loader.
func NewScope(lib Library, loader ResourceLoader) *Scope {
	return &Scope{lib: lib, loader: loader}
}

// Acquire takes a reference, injecting the library on the first one.
func (s *Scope) Acquire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs++
	if s.refs == 1 && s.loader != nil {
		s.loader.Inject(s.lib)
	}
}

// Release drops a reference. Extra releases are ignored.
func (s *Scope) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs == 0 {
		return
	}
	s.refs--
	if s.refs == 0 && s.loader != nil {
		s.loader.Remove(s.lib)
	}
}

// Library returns the library this scope manages.
func (s *Scope) Library() Library {
	return s.lib
}
