package arena

// Stats is a point-in-time snapshot of an allocator.
type Stats struct {
	Strategy    string // Strategy name, e.g. "bump"
	Capacity    int    // Arena size in bytes
	Reserved    int    // Bytes not available to new requests
	Live        int    // Allocations handed out and not yet released
	FreeRegions int    // Free-list length, sentinel excluded (free-list only)
	Allocs      uint64 // Successful allocations since construction
	Releases    uint64 // Releases since construction
	Failures    uint64 // Allocations that returned ErrOutOfMemory
}

// Free returns the number of bytes not reserved. For the free-list allocator
// these bytes may be fragmented across several regions.
func (s Stats) Free() int {
	return s.Capacity - s.Reserved
}

// Utilization returns the ratio of reserved bytes to capacity (0.0 to 1.0).
// Returns 0.0 for an empty arena.
func (s Stats) Utilization() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.Reserved) / float64(s.Capacity)
}

// StatsSource is anything that can report Stats; every Allocator is one.
type StatsSource interface {
	Stats() Stats
}
