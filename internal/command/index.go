package command

import "sync"

// NotFound is reported for a UID the index has never seen.
const NotFound = "NOT_FOUND"

// UIDIndex maps command UIDs to the method that produced them.
// Entries are never removed.
type UIDIndex struct {
	mu      sync.RWMutex
	methods map[string]string
}

// NewUIDIndex creates an empty index.
func NewUIDIndex() *UIDIndex {
	return &UIDIndex{methods: make(map[string]string)}
}

// Record stores uid -> method.
func (x *UIDIndex) Record(uid, method string) {
	x.mu.Lock()
	x.methods[uid] = method
	x.mu.Unlock()
}

// Lookup returns the method recorded for uid.
func (x *UIDIndex) Lookup(uid string) (string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	method, ok := x.methods[uid]
	return method, ok
}

// Resolve returns the method recorded for uid, or NotFound.
func (x *UIDIndex) Resolve(uid string) string {
	if method, ok := x.Lookup(uid); ok {
		return method
	}
	return NotFound
}

// Len returns the number of recorded UIDs.
func (x *UIDIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.methods)
}
