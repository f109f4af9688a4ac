package gadget

import (
	"fmt"

	"github.com/agentic-research/gadgetfs/configfs"
)

// ConfigAttrs are the attribute files of a configuration: MaxPower as
// decimal text, bmAttributes as a two-digit hex bitmap.
type ConfigAttrs struct {
	MaxPower     uint8
	BmAttributes uint8
}

// ConfigStrs are the per-language strings of a configuration.
type ConfigStrs struct {
	Configuration string
}

// Config is one named USB configuration of a Gadget. It owns an ordered
// set of bindings that attach functions of the same gadget.
type Config struct {
	parent *Gadget
	name   string
	path   string // the gadget's configs directory

	bindings []*Binding
}

// Name returns the config's directory name.
func (c *Config) Name() string { return c.name }

// Path returns the config's own directory in the store.
func (c *Config) Path() string { return c.store().Join(c.path, c.name) }

func (c *Config) store() *configfs.Store { return c.parent.store() }

// Binding looks a binding up by link name.
func (c *Config) Binding(name string) *Binding {
	for _, b := range c.bindings {
		if b.name == name {
			return b
		}
	}
	return nil
}

// BindingFor returns the binding that targets f, if any. At most one
// binding per config may target a given function.
func (c *Config) BindingFor(f *Function) *Binding {
	for _, b := range c.bindings {
		if b.target == f {
			return b
		}
	}
	return nil
}

// Bindings returns the bindings in ascending name order. The slice is a
// copy; the nodes are not.
func (c *Config) Bindings() []*Binding {
	out := make([]*Binding, len(c.bindings))
	copy(out, c.bindings)
	return out
}

// AddFunction attaches f to the config under the given link name by
// creating a symlink to the function directory. Both the link name and
// the target must be new to this config; violations are rejected before
// the store is touched.
func (c *Config) AddFunction(name string, f *Function) (*Binding, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil function", configfs.ErrInvalidParam)
	}
	if err := configfs.ValidateName(name); err != nil {
		return nil, err
	}
	if c.Binding(name) != nil {
		return nil, fmt.Errorf("%w: binding %q", ErrDuplicateName, name)
	}
	if c.BindingFor(f) != nil {
		return nil, fmt.Errorf("%w: function %q already bound in config %q",
			ErrDuplicateLink, f.Name(), c.name)
	}

	bpath := c.Path()
	b := &Binding{parent: c, target: f, name: name, path: bpath}
	if err := c.store().Symlink(f.Path(), c.store().Join(bpath, name)); err != nil {
		return nil, fmt.Errorf("bind %q -> %q: %w", name, f.Name(), err)
	}

	c.bindings = insertByName(c.bindings, b)
	return b, nil
}

// Attrs reads the config attributes back from the store, failing on the
// first unreadable field.
func (c *Config) Attrs() (*ConfigAttrs, error) {
	var attrs ConfigAttrs
	v, err := c.store().ReadDec(c.path, c.name, "MaxPower")
	if err != nil {
		return nil, fmt.Errorf("config %q attrs: %w", c.name, err)
	}
	attrs.MaxPower = uint8(v)
	v, err = c.store().ReadHex(c.path, c.name, "bmAttributes")
	if err != nil {
		return nil, fmt.Errorf("config %q attrs: %w", c.name, err)
	}
	attrs.BmAttributes = uint8(v)
	return &attrs, nil
}

// SetAttrs writes both config attributes. Best-effort and
// non-transactional, like every attribute write.
func (c *Config) SetAttrs(attrs *ConfigAttrs) {
	if attrs == nil {
		return
	}
	c.reportWrite("MaxPower", c.store().WriteDec(c.path, c.name, "MaxPower", int(attrs.MaxPower)))
	c.reportWrite("bmAttributes", c.store().WriteHex8(c.path, c.name, "bmAttributes", attrs.BmAttributes))
}

// SetMaxPower writes MaxPower. Best-effort.
func (c *Config) SetMaxPower(maxPower int) {
	c.reportWrite("MaxPower", c.store().WriteDec(c.path, c.name, "MaxPower", maxPower))
}

// SetBmAttrs writes bmAttributes. Best-effort.
func (c *Config) SetBmAttrs(bmAttributes uint8) {
	c.reportWrite("bmAttributes", c.store().WriteHex8(c.path, c.name, "bmAttributes", bmAttributes))
}

// stringsPath returns strings/0x<lang> under the config directory.
func (c *Config) stringsPath(lang int) string {
	return c.store().Join(c.path, c.name, stringsDir, fmt.Sprintf("0x%x", lang))
}

// Strs reads the configuration string for one language. A language whose
// strings directory does not exist yields ErrNotFound.
func (c *Config) Strs(lang int) (*ConfigStrs, error) {
	spath := c.stringsPath(lang)
	if err := c.store().StatDir(spath); err != nil {
		return nil, fmt.Errorf("config %q strings 0x%x: %w", c.name, lang, err)
	}
	var strs ConfigStrs
	strs.Configuration, _ = c.store().ReadString(spath, "", "configuration")
	return &strs, nil
}

// SetStrs writes the configuration strings for one language. Best-effort.
func (c *Config) SetStrs(lang int, strs *ConfigStrs) {
	if strs == nil {
		return
	}
	c.SetString(lang, strs.Configuration)
}

// SetString writes the configuration string for one language, creating
// the language directory on first use. Best-effort.
func (c *Config) SetString(lang int, str string) {
	spath := c.stringsPath(lang)
	c.reportWrite("strings", c.store().Mkdir(spath))
	c.reportWrite("configuration", c.store().WriteString(spath, "", "configuration", str))
}

func (c *Config) reportWrite(field string, err error) {
	if err != nil {
		c.parent.log().Warn("attribute write failed", "config", c.name, "field", field, "err", err)
	}
}

// free releases the config's bindings in list order, then the config's
// own references.
func (c *Config) free() {
	for _, b := range c.bindings {
		b.target = nil
		b.parent = nil
	}
	c.bindings = nil
	c.parent = nil
}
