package zonemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeInjectsOnceAndRemovesOnLastRelease(t *testing.T) {
	loader := &fakeLoader{}
	s := NewScope(Leaflet, loader)

	s.Acquire()
	s.Acquire()
	assert.Equal(t, 1, loader.injected)
	assert.Equal(t, 2, refCount(s))

	s.Release()
	assert.Equal(t, 0, loader.removed, "still referenced")

	s.Release()
	assert.Equal(t, 1, loader.removed)
	assert.Equal(t, 0, refCount(s))
}

func TestScopeIgnoresExtraRelease(t *testing.T) {
	loader := &fakeLoader{}
	s := NewScope(Leaflet, loader)
	s.Release()
	assert.Equal(t, 0, refCount(s))
	assert.Equal(t, 0, loader.removed)

	s.Acquire()
	assert.Equal(t, 1, loader.injected)
}

func TestScopeReinjectsAfterFullRelease(t *testing.T) {
	loader := &fakeLoader{}
	s := NewScope(Leaflet, loader)
	s.Acquire()
	s.Release()
	s.Acquire()
	assert.Equal(t, 2, loader.injected)
	assert.Equal(t, 1, loader.removed)
}

func TestLeafletAssets(t *testing.T) {
	assert.Equal(t, "leaflet", Leaflet.Name)
	assert.Contains(t, Leaflet.Script, "leaflet/1.9.4/leaflet.js")
	assert.Contains(t, Leaflet.Stylesheet, "leaflet/1.9.4/leaflet.css")
	assert.Equal(t, Leaflet, NewScope(Leaflet, nil).Library())
}

func refCount(s *Scope) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}
