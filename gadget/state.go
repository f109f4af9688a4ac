// Package gadget models a hierarchical USB device composition as exposed
// through the kernel's gadget configfs tree: gadgets, their functions and
// configurations, and the bindings that attach functions to
// configurations. The in-memory tree mirrors the backing store; mutations
// are applied to the store first and reflected in memory only on success.
//
// The model is single-threaded by design. A State and every node reached
// from it belong to the caller that opened it; concurrent use needs
// external locking. The tree is a cache of the store as of the last load
// or mutation and does not detect concurrent external changes.
package gadget

import (
	"errors"
	"fmt"
	"log/slog"

	billy "github.com/go-git/go-billy/v5"

	"github.com/agentic-research/gadgetfs/configfs"
)

// Duplicate-name attempts and referential-integrity violations are
// rejected before any store mutation.
var (
	ErrDuplicateName = errors.New("duplicate name")
	ErrDuplicateLink = errors.New("duplicate binding link")
)

// LangUSEnglish is the USB language code used when no other is given.
const LangUSEnglish = 0x0409

const (
	gadgetSubdir = "usb_gadget"
	stringsDir   = "strings"
	configsDir   = "configs"
	functionsDir = "functions"
)

// State is the root of the tree. It owns the gadgets found under the
// store's usb_gadget directory, in ascending name order.
type State struct {
	path  string
	store *configfs.Store
	log   *slog.Logger
	udcs  UDCLister

	gadgets []*Gadget
}

// Option configures a State before the initial load.
type Option func(*State)

// WithLogger sets the diagnostic sink for best-effort attribute writes.
func WithLogger(l *slog.Logger) Option {
	return func(s *State) { s.log = l }
}

// WithUDCLister replaces the controller enumeration used by
// Gadget.Enable when no controller name is supplied.
func WithUDCLister(l UDCLister) Option {
	return func(s *State) { s.udcs = l }
}

// Open walks the gadget tree under <configfsPath>/usb_gadget on fsys and
// returns the populated State.
//
// A missing or unreadable root aborts with a nil State. Failures deeper in
// the walk follow the partial-load policy: siblings that loaded before and
// after the failing entry are retained, the failing entry is dropped, and
// the first classified failure is returned alongside the partially
// populated State.
func Open(fsys billy.Filesystem, configfsPath string, opts ...Option) (*State, error) {
	s := &State{log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.store = configfs.NewStore(fsys, configfs.WithLogger(s.log))
	s.path = s.store.Join(configfsPath, gadgetSubdir)
	if s.udcs == nil {
		s.udcs = &StoreUDCLister{Store: s.store}
	}

	if err := s.store.StatDir(s.path); err != nil {
		return nil, fmt.Errorf("open gadget state %s: %w", s.path, err)
	}
	if err := s.load(); err != nil {
		return s, err
	}
	return s, nil
}

// Path returns the root of the gadget tree inside the store.
func (s *State) Path() string { return s.path }

// Store returns the backing store access layer.
func (s *State) Store() *configfs.Store { return s.store }

// Gadget looks a gadget up by name.
func (s *State) Gadget(name string) *Gadget {
	for _, g := range s.gadgets {
		if g.name == name {
			return g
		}
	}
	return nil
}

// Gadgets returns the gadgets in ascending name order. The slice is a
// copy; the nodes are not.
func (s *State) Gadgets() []*Gadget {
	out := make([]*Gadget, len(s.gadgets))
	copy(out, s.gadgets)
	return out
}

// CreateGadget creates a gadget directory in the store and the
// corresponding node. attrs and strs, when non-nil, are applied
// best-effort after creation; strings go under LangUSEnglish.
func (s *State) CreateGadget(name string, attrs *GadgetAttrs, strs *GadgetStrs) (*Gadget, error) {
	if err := configfs.ValidateName(name); err != nil {
		return nil, err
	}
	if s.Gadget(name) != nil {
		return nil, fmt.Errorf("%w: gadget %q", ErrDuplicateName, name)
	}

	g := &Gadget{parent: s, name: name, path: s.path}
	if err := s.store.Mkdir(s.store.Join(s.path, name)); err != nil {
		return nil, fmt.Errorf("create gadget %q: %w", name, err)
	}

	// Should be empty on a fresh directory, but mirror whatever the
	// kernel put there.
	g.udc, _ = s.store.ReadString(g.path, g.name, "UDC")

	if attrs != nil {
		g.SetAttrs(attrs)
	}
	if strs != nil {
		g.SetStrs(LangUSEnglish, strs)
	}

	s.gadgets = insertByName(s.gadgets, g)
	return g, nil
}

// CreateGadgetVIDPID creates a gadget carrying only a vendor and product
// ID.
func (s *State) CreateGadgetVIDPID(name string, vendorID, productID uint16) (*Gadget, error) {
	g, err := s.CreateGadget(name, nil, nil)
	if err != nil {
		return nil, err
	}
	g.SetVendorID(vendorID)
	g.SetProductID(productID)
	return g, nil
}

// Close releases the tree: every gadget frees its configs (bindings
// first), then its functions, then the state drops the gadget list. The
// backing store is never touched; removing directories an active
// controller may still reference is an ordered cross-layer procedure left
// to the caller.
func (s *State) Close() {
	for _, g := range s.gadgets {
		g.free()
	}
	s.gadgets = nil
}
