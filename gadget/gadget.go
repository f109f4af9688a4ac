package gadget

import (
	"fmt"
	"log/slog"

	"github.com/agentic-research/gadgetfs/configfs"
)

// GadgetAttrs are the USB device descriptor fields kept as hex text files
// directly under the gadget directory.
type GadgetAttrs struct {
	BcdUSB          uint16
	BDeviceClass    uint8
	BDeviceSubClass uint8
	BDeviceProtocol uint8
	BMaxPacketSize0 uint8
	IDVendor        uint16
	IDProduct       uint16
	BcdDevice       uint16
}

// GadgetStrs are the per-language descriptor strings of a gadget.
type GadgetStrs struct {
	SerialNumber string
	Manufacturer string
	Product      string
}

// Gadget is one device composition. It owns two independently ordered
// collections, functions and configs, and carries the name of the UDC it
// is bound to ("" while disabled).
type Gadget struct {
	parent *State
	name   string
	path   string // the state's usb_gadget root
	udc    string

	functions []*Function
	configs   []*Config
}

// Name returns the gadget's directory name.
func (g *Gadget) Name() string { return g.name }

// Path returns the gadget's own directory in the store.
func (g *Gadget) Path() string { return g.store().Join(g.path, g.name) }

// UDC returns the controller the gadget was bound to as of the last load
// or enable/disable transition, "" when disabled.
func (g *Gadget) UDC() string { return g.udc }

func (g *Gadget) store() *configfs.Store { return g.parent.store }
func (g *Gadget) log() *slog.Logger     { return g.parent.log }

// Function looks a function up by its full "<type>.<instance>" name.
func (g *Gadget) Function(name string) *Function {
	for _, f := range g.functions {
		if f.name == name {
			return f
		}
	}
	return nil
}

// Functions returns the functions in ascending name order. The slice is a
// copy; the nodes are not.
func (g *Gadget) Functions() []*Function {
	out := make([]*Function, len(g.functions))
	copy(out, g.functions)
	return out
}

// Config looks a config up by name.
func (g *Gadget) Config(name string) *Config {
	for _, c := range g.configs {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Configs returns the configs in ascending name order. The slice is a
// copy; the nodes are not.
func (g *Gadget) Configs() []*Config {
	out := make([]*Config, len(g.configs))
	copy(out, g.configs)
	return out
}

// CreateFunction creates the function directory
// functions/<type>.<instance> and the corresponding node. The duplicate
// check keys on the synthesized entry name, which is what the store
// enforces. attrs, when non-nil, is applied best-effort after creation.
func (g *Gadget) CreateFunction(typ FunctionType, instance string, attrs FunctionAttrs) (*Function, error) {
	if typ.Name() == "" {
		return nil, fmt.Errorf("%w: unrecognized function type %d", configfs.ErrInvalidParam, int(typ))
	}
	if err := configfs.ValidateName(instance); err != nil {
		return nil, err
	}

	name := typ.Name() + "." + instance
	if g.Function(name) != nil {
		return nil, fmt.Errorf("%w: function %q", ErrDuplicateName, name)
	}

	fpath := g.store().Join(g.path, g.name, functionsDir)
	f := &Function{parent: g, name: name, path: fpath, typ: typ}
	if err := g.store().Mkdir(g.store().Join(fpath, name)); err != nil {
		return nil, fmt.Errorf("create function %q: %w", name, err)
	}

	if attrs != nil {
		f.SetAttrs(attrs)
	}

	g.functions = insertByName(g.functions, f)
	return f, nil
}

// CreateConfig creates the config directory configs/<name> and the
// corresponding node. attrs and strs, when non-nil, are applied
// best-effort after creation; the configuration string goes under
// LangUSEnglish.
func (g *Gadget) CreateConfig(name string, attrs *ConfigAttrs, strs *ConfigStrs) (*Config, error) {
	if err := configfs.ValidateName(name); err != nil {
		return nil, err
	}
	if g.Config(name) != nil {
		return nil, fmt.Errorf("%w: config %q", ErrDuplicateName, name)
	}

	cpath := g.store().Join(g.path, g.name, configsDir)
	c := &Config{parent: g, name: name, path: cpath}
	if err := g.store().Mkdir(g.store().Join(cpath, name)); err != nil {
		return nil, fmt.Errorf("create config %q: %w", name, err)
	}

	if attrs != nil {
		c.SetAttrs(attrs)
	}
	if strs != nil {
		c.SetString(LangUSEnglish, strs.Configuration)
	}

	g.configs = insertByName(g.configs, c)
	return c, nil
}

// Attrs reads the descriptor fields back from the store, failing on the
// first unreadable field.
func (g *Gadget) Attrs() (*GadgetAttrs, error) {
	st := g.store()
	var attrs GadgetAttrs
	for _, field := range []struct {
		file string
		set  func(int)
	}{
		{"bcdUSB", func(v int) { attrs.BcdUSB = uint16(v) }},
		{"bDeviceClass", func(v int) { attrs.BDeviceClass = uint8(v) }},
		{"bDeviceSubClass", func(v int) { attrs.BDeviceSubClass = uint8(v) }},
		{"bDeviceProtocol", func(v int) { attrs.BDeviceProtocol = uint8(v) }},
		{"bMaxPacketSize0", func(v int) { attrs.BMaxPacketSize0 = uint8(v) }},
		{"idVendor", func(v int) { attrs.IDVendor = uint16(v) }},
		{"idProduct", func(v int) { attrs.IDProduct = uint16(v) }},
		{"bcdDevice", func(v int) { attrs.BcdDevice = uint16(v) }},
	} {
		v, err := st.ReadHex(g.path, g.name, field.file)
		if err != nil {
			return nil, fmt.Errorf("gadget %q attrs: %w", g.name, err)
		}
		field.set(v)
	}
	return &attrs, nil
}

// SetAttrs writes every descriptor field. Writes are best-effort and
// non-transactional: a failing field is reported to the diagnostic sink
// and the remaining fields are still written, so partial success is
// possible.
func (g *Gadget) SetAttrs(attrs *GadgetAttrs) {
	if attrs == nil {
		return
	}
	st := g.store()
	g.reportWrite("bcdUSB", st.WriteHex16(g.path, g.name, "bcdUSB", attrs.BcdUSB))
	g.reportWrite("bDeviceClass", st.WriteHex8(g.path, g.name, "bDeviceClass", attrs.BDeviceClass))
	g.reportWrite("bDeviceSubClass", st.WriteHex8(g.path, g.name, "bDeviceSubClass", attrs.BDeviceSubClass))
	g.reportWrite("bDeviceProtocol", st.WriteHex8(g.path, g.name, "bDeviceProtocol", attrs.BDeviceProtocol))
	g.reportWrite("bMaxPacketSize0", st.WriteHex8(g.path, g.name, "bMaxPacketSize0", attrs.BMaxPacketSize0))
	g.reportWrite("idVendor", st.WriteHex16(g.path, g.name, "idVendor", attrs.IDVendor))
	g.reportWrite("idProduct", st.WriteHex16(g.path, g.name, "idProduct", attrs.IDProduct))
	g.reportWrite("bcdDevice", st.WriteHex16(g.path, g.name, "bcdDevice", attrs.BcdDevice))
}

// Single-field setters, all best-effort.

// SetVendorID writes idVendor.
func (g *Gadget) SetVendorID(v uint16) {
	g.reportWrite("idVendor", g.store().WriteHex16(g.path, g.name, "idVendor", v))
}

// SetProductID writes idProduct.
func (g *Gadget) SetProductID(v uint16) {
	g.reportWrite("idProduct", g.store().WriteHex16(g.path, g.name, "idProduct", v))
}

// SetDeviceClass writes bDeviceClass.
func (g *Gadget) SetDeviceClass(v uint8) {
	g.reportWrite("bDeviceClass", g.store().WriteHex8(g.path, g.name, "bDeviceClass", v))
}

// SetDeviceSubClass writes bDeviceSubClass.
func (g *Gadget) SetDeviceSubClass(v uint8) {
	g.reportWrite("bDeviceSubClass", g.store().WriteHex8(g.path, g.name, "bDeviceSubClass", v))
}

// SetDeviceProtocol writes bDeviceProtocol.
func (g *Gadget) SetDeviceProtocol(v uint8) {
	g.reportWrite("bDeviceProtocol", g.store().WriteHex8(g.path, g.name, "bDeviceProtocol", v))
}

// SetMaxPacketSize writes bMaxPacketSize0.
func (g *Gadget) SetMaxPacketSize(v uint8) {
	g.reportWrite("bMaxPacketSize0", g.store().WriteHex8(g.path, g.name, "bMaxPacketSize0", v))
}

// SetBcdDevice writes bcdDevice.
func (g *Gadget) SetBcdDevice(v uint16) {
	g.reportWrite("bcdDevice", g.store().WriteHex16(g.path, g.name, "bcdDevice", v))
}

// SetBcdUSB writes bcdUSB.
func (g *Gadget) SetBcdUSB(v uint16) {
	g.reportWrite("bcdUSB", g.store().WriteHex16(g.path, g.name, "bcdUSB", v))
}

// stringsPath returns strings/0x<lang> under the gadget directory.
func (g *Gadget) stringsPath(lang int) string {
	return g.store().Join(g.path, g.name, stringsDir, fmt.Sprintf("0x%x", lang))
}

// Strs reads the descriptor strings for one language. A language whose
// strings directory does not exist yields ErrNotFound. Individual string
// reads are best-effort; unreadable fields stay empty.
func (g *Gadget) Strs(lang int) (*GadgetStrs, error) {
	spath := g.stringsPath(lang)
	if err := g.store().StatDir(spath); err != nil {
		return nil, fmt.Errorf("gadget %q strings 0x%x: %w", g.name, lang, err)
	}
	var strs GadgetStrs
	strs.SerialNumber, _ = g.store().ReadString(spath, "", "serialnumber")
	strs.Manufacturer, _ = g.store().ReadString(spath, "", "manufacturer")
	strs.Product, _ = g.store().ReadString(spath, "", "product")
	return &strs, nil
}

// SetStrs writes all three descriptor strings for one language, creating
// the language directory on first use. Best-effort.
func (g *Gadget) SetStrs(lang int, strs *GadgetStrs) {
	if strs == nil {
		return
	}
	spath := g.stringsPath(lang)
	g.reportWrite("strings", g.store().Mkdir(spath))
	g.reportWrite("serialnumber", g.store().WriteString(spath, "", "serialnumber", strs.SerialNumber))
	g.reportWrite("manufacturer", g.store().WriteString(spath, "", "manufacturer", strs.Manufacturer))
	g.reportWrite("product", g.store().WriteString(spath, "", "product", strs.Product))
}

// SetSerialNumber writes one descriptor string, creating the language
// directory on first use. Best-effort.
func (g *Gadget) SetSerialNumber(lang int, serial string) {
	spath := g.stringsPath(lang)
	g.reportWrite("strings", g.store().Mkdir(spath))
	g.reportWrite("serialnumber", g.store().WriteString(spath, "", "serialnumber", serial))
}

// SetManufacturer writes one descriptor string, creating the language
// directory on first use. Best-effort.
func (g *Gadget) SetManufacturer(lang int, mnf string) {
	spath := g.stringsPath(lang)
	g.reportWrite("strings", g.store().Mkdir(spath))
	g.reportWrite("manufacturer", g.store().WriteString(spath, "", "manufacturer", mnf))
}

// SetProduct writes one descriptor string, creating the language directory
// on first use. Best-effort.
func (g *Gadget) SetProduct(lang int, prd string) {
	spath := g.stringsPath(lang)
	g.reportWrite("strings", g.store().Mkdir(spath))
	g.reportWrite("product", g.store().WriteString(spath, "", "product", prd))
}

// Enable binds the gadget to a controller by writing its name to the UDC
// file. With udc == "", the first entry of the controller enumeration is
// used; an empty enumeration leaves the gadget unbound and returns nil.
// The in-memory UDC field changes only after the write succeeds.
func (g *Gadget) Enable(udc string) error {
	if udc == "" {
		names, err := g.parent.udcs.List()
		if err != nil {
			return fmt.Errorf("enable gadget %q: %w", g.name, err)
		}
		if len(names) == 0 {
			return nil
		}
		udc = names[0]
	}
	if err := g.store().WriteString(g.path, g.name, "UDC", udc); err != nil {
		return fmt.Errorf("enable gadget %q: %w", g.name, err)
	}
	g.udc = udc
	return nil
}

// Disable unbinds the gadget by writing an empty UDC field. Idempotent
// from either state.
func (g *Gadget) Disable() error {
	if err := g.store().WriteString(g.path, g.name, "UDC", ""); err != nil {
		return fmt.Errorf("disable gadget %q: %w", g.name, err)
	}
	g.udc = ""
	return nil
}

func (g *Gadget) reportWrite(field string, err error) {
	if err != nil {
		g.log().Warn("attribute write failed", "gadget", g.name, "field", field, "err", err)
	}
}

// free releases the gadget's children in list order: configs first (each
// freeing its bindings), then functions.
func (g *Gadget) free() {
	for _, c := range g.configs {
		c.free()
	}
	g.configs = nil
	for _, f := range g.functions {
		f.parent = nil
	}
	g.functions = nil
	g.parent = nil
}
