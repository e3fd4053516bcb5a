package sample

// Sample is one parsed observation from a single log line.
type Sample struct {
	Role    Role
	Source  string
	MaxIOPS int
	Values  [FieldCount]float64
}

// Value returns the normalized value of f.
func (s *Sample) Value(f Field) float64 {
	return s.Values[f]
}

// Buffer is an append-only sequence of samples for one role.
type Buffer struct {
	role    Role
	samples []Sample
}

func NewBuffer(role Role) *Buffer {
	return &Buffer{role: role}
}

func (b *Buffer) Role() Role {
	return b.role
}

func (b *Buffer) Append(s Sample) {
	b.samples = append(b.samples, s)
}

func (b *Buffer) Len() int {
	return len(b.samples)
}

// Snapshot returns a copy of the buffered samples.
func (b *Buffer) Snapshot() []Sample {
	out := make([]Sample, len(b.samples))
	copy(out, b.samples)
	return out
}
