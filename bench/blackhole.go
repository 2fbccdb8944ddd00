package bench

// Blackhole keeps operation results reachable so the compiler cannot prove
// the work unused. A Blackhole is owned by a single thread.
type Blackhole struct {
	last  any
	count uint64
}

// Consume records v.
func (b *Blackhole) Consume(v any) {
	b.last = v
	b.count++
}

// Count returns how many values were consumed.
func (b *Blackhole) Count() uint64 {
	return b.count
}

// Flush drops the reference to the last consumed value.
func (b *Blackhole) Flush() {
	b.last = nil
}
