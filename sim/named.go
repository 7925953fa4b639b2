package sim

// Named describes an object that has a name.
type Named interface {
	Name() string
}
