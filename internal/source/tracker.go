package source

// StateReader is the part of a FrameSource the tracker polls
type StateReader interface {
	ConnectionCount() int
	CurrentSourceName() (string, bool)
}

// Tracker remembers the last observed source identity and connection count
// so a name change is reported once, not on every iteration.
type Tracker struct {
	name    string
	hasName bool
	count   int
}

// Observe polls src once. changed is true only when the source name differs
// from the previous observation.
func (t *Tracker) Observe(src StateReader) (changed bool) {
	t.count = src.ConnectionCount()
	if t.count < 0 {
		t.count = 0
	}

	name, ok := src.CurrentSourceName()
	if !ok {
		name = ""
	}
	if ok == t.hasName && name == t.name {
		return false
	}

	t.name, t.hasName = name, ok
	return true
}

// Name is the last observed source name
func (t *Tracker) Name() (string, bool) {
	return t.name, t.hasName
}

// Count is the last observed connection count
func (t *Tracker) Count() int {
	return t.count
}

// Live reports whether video should be drawn this iteration
func (t *Tracker) Live() bool {
	return t.count > 0
}
