package gadget

// Binding is a named link attaching one Function to one Config. The
// target reference is non-owning: it never keeps a function alive and is
// nil when a loaded link could not be resolved to a function of the same
// gadget.
type Binding struct {
	parent *Config
	target *Function
	name   string
	path   string // the config's own directory
}

// Name returns the link name.
func (b *Binding) Name() string { return b.name }

// Path returns the symlink's location in the store.
func (b *Binding) Path() string {
	return b.parent.store().Join(b.path, b.name)
}

// Target returns the function the binding attaches, or nil for an
// unresolved binding.
func (b *Binding) Target() *Function { return b.target }

// Config returns the owning config.
func (b *Binding) Config() *Config { return b.parent }
