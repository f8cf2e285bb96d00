//go:build !cgo

package peak

// Meter is unavailable without cgo.
type Meter struct{}

// Open always fails with ErrUnavailable.
func Open(_ Backend, _ string) (*Meter, error) {
	return nil, ErrUnavailable
}

// Peak returns 0.
func (m *Meter) Peak() float32 {
	return 0
}

// Close does nothing.
func (m *Meter) Close() error {
	return nil
}
