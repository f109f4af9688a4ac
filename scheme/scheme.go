// Package scheme gives a gadget composition a declarative YAML form: a
// whole gadget — attributes, strings, functions, configs and bindings —
// described in one document that can be applied to a live tree or
// exported back from one.
package scheme

import (
	"fmt"
	"net"

	"gopkg.in/yaml.v3"

	"github.com/agentic-research/gadgetfs/configfs"
	"github.com/agentic-research/gadgetfs/gadget"
)

// Scheme describes one gadget.
type Scheme struct {
	Name      string     `yaml:"name"`
	Attrs     *Attrs     `yaml:"attrs,omitempty"`
	Strings   *Strings   `yaml:"strings,omitempty"`
	Functions []Function `yaml:"functions,omitempty"`
	Configs   []Config   `yaml:"configs,omitempty"`
}

// Attrs mirrors gadget.GadgetAttrs.
type Attrs struct {
	BcdUSB         uint16 `yaml:"bcd_usb,omitempty"`
	DeviceClass    uint8  `yaml:"device_class,omitempty"`
	DeviceSubClass uint8  `yaml:"device_subclass,omitempty"`
	DeviceProtocol uint8  `yaml:"device_protocol,omitempty"`
	MaxPacketSize  uint8  `yaml:"max_packet_size,omitempty"`
	VendorID       uint16 `yaml:"vendor_id"`
	ProductID      uint16 `yaml:"product_id"`
	BcdDevice      uint16 `yaml:"bcd_device,omitempty"`
}

// Strings mirrors gadget.GadgetStrs.
type Strings struct {
	Serial       string `yaml:"serial,omitempty"`
	Manufacturer string `yaml:"manufacturer,omitempty"`
	Product      string `yaml:"product,omitempty"`
}

// Function describes one function entry. Exactly one attribute block may
// be set, matching the function type's shape.
type Function struct {
	Type     string       `yaml:"type"`
	Instance string       `yaml:"instance"`
	Serial   *SerialAttrs `yaml:"serial,omitempty"`
	Net      *NetAttrs    `yaml:"net,omitempty"`
	Phonet   *PhonetAttrs `yaml:"phonet,omitempty"`
}

// SerialAttrs mirrors gadget.SerialAttrs.
type SerialAttrs struct {
	PortNum int `yaml:"port_num"`
}

// NetAttrs mirrors gadget.NetAttrs; MACs are kept in text form.
type NetAttrs struct {
	DevAddr  string `yaml:"dev_addr,omitempty"`
	HostAddr string `yaml:"host_addr,omitempty"`
	Ifname   string `yaml:"ifname,omitempty"`
	QMult    int    `yaml:"qmult,omitempty"`
}

// PhonetAttrs mirrors gadget.PhonetAttrs.
type PhonetAttrs struct {
	Ifname string `yaml:"ifname,omitempty"`
}

// Config describes one configuration and its bindings.
type Config struct {
	Name     string       `yaml:"name"`
	Attrs    *ConfigAttrs `yaml:"attrs,omitempty"`
	Strings  *ConfigStrs  `yaml:"strings,omitempty"`
	Bindings []Binding    `yaml:"bindings,omitempty"`
}

// ConfigAttrs mirrors gadget.ConfigAttrs.
type ConfigAttrs struct {
	MaxPower     uint8 `yaml:"max_power,omitempty"`
	BmAttributes uint8 `yaml:"bm_attributes,omitempty"`
}

// ConfigStrs mirrors gadget.ConfigStrs.
type ConfigStrs struct {
	Configuration string `yaml:"configuration,omitempty"`
}

// Binding names a link and the full "<type>.<instance>" function it
// attaches.
type Binding struct {
	Name     string `yaml:"name"`
	Function string `yaml:"function"`
}

// Parse decodes a YAML scheme document.
func Parse(data []byte) (*Scheme, error) {
	var sc Scheme
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%w: %v", configfs.ErrInvalidParam, err)
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%w: scheme has no gadget name", configfs.ErrInvalidParam)
	}
	return &sc, nil
}

// Encode renders the scheme as YAML.
func (sc *Scheme) Encode() ([]byte, error) {
	return yaml.Marshal(sc)
}

// Apply creates the gadget the scheme describes, in order: the gadget
// with its attributes and strings, then every function, then every config
// with its bindings. Creation failures propagate from the gadget package
// unchanged, so duplicate names and broken references are rejected there.
func Apply(s *gadget.State, sc *Scheme) (*gadget.Gadget, error) {
	g, err := s.CreateGadget(sc.Name, sc.gadgetAttrs(), sc.gadgetStrs())
	if err != nil {
		return nil, err
	}

	for _, fn := range sc.Functions {
		typ := gadget.ParseFunctionType(fn.Type)
		if typ == gadget.FunctionUnknown {
			return nil, fmt.Errorf("%w: unknown function type %q", configfs.ErrInvalidParam, fn.Type)
		}
		attrs, err := fn.functionAttrs()
		if err != nil {
			return nil, err
		}
		if _, err := g.CreateFunction(typ, fn.Instance, attrs); err != nil {
			return nil, err
		}
	}

	for _, cfg := range sc.Configs {
		c, err := g.CreateConfig(cfg.Name, cfg.configAttrs(), cfg.configStrs())
		if err != nil {
			return nil, err
		}
		for _, bnd := range cfg.Bindings {
			f := g.Function(bnd.Function)
			if f == nil {
				return nil, fmt.Errorf("%w: binding %q targets unknown function %q",
					configfs.ErrNotFound, bnd.Name, bnd.Function)
			}
			if _, err := c.AddFunction(bnd.Name, f); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

// Export reads a live gadget back into a scheme. Attribute and string
// blocks that cannot be read (for instance a language with no strings
// directory) are omitted rather than failing the export.
func Export(g *gadget.Gadget) (*Scheme, error) {
	sc := &Scheme{Name: g.Name()}

	if attrs, err := g.Attrs(); err == nil {
		sc.Attrs = &Attrs{
			BcdUSB:         attrs.BcdUSB,
			DeviceClass:    attrs.BDeviceClass,
			DeviceSubClass: attrs.BDeviceSubClass,
			DeviceProtocol: attrs.BDeviceProtocol,
			MaxPacketSize:  attrs.BMaxPacketSize0,
			VendorID:       attrs.IDVendor,
			ProductID:      attrs.IDProduct,
			BcdDevice:      attrs.BcdDevice,
		}
	}
	if strs, err := g.Strs(gadget.LangUSEnglish); err == nil {
		sc.Strings = &Strings{
			Serial:       strs.SerialNumber,
			Manufacturer: strs.Manufacturer,
			Product:      strs.Product,
		}
	}

	for _, f := range g.Functions() {
		fn := Function{Type: f.Type().Name(), Instance: f.Instance()}
		attrs, err := f.Attrs()
		if err != nil {
			return nil, err
		}
		switch a := attrs.(type) {
		case gadget.SerialAttrs:
			fn.Serial = &SerialAttrs{PortNum: a.PortNum}
		case gadget.NetAttrs:
			na := &NetAttrs{Ifname: a.Ifname, QMult: a.QMult}
			if a.DevAddr != nil {
				na.DevAddr = a.DevAddr.String()
			}
			if a.HostAddr != nil {
				na.HostAddr = a.HostAddr.String()
			}
			fn.Net = na
		case gadget.PhonetAttrs:
			fn.Phonet = &PhonetAttrs{Ifname: a.Ifname}
		}
		sc.Functions = append(sc.Functions, fn)
	}

	for _, c := range g.Configs() {
		cfg := Config{Name: c.Name()}
		if attrs, err := c.Attrs(); err == nil {
			cfg.Attrs = &ConfigAttrs{MaxPower: attrs.MaxPower, BmAttributes: attrs.BmAttributes}
		}
		if strs, err := c.Strs(gadget.LangUSEnglish); err == nil {
			cfg.Strings = &ConfigStrs{Configuration: strs.Configuration}
		}
		for _, b := range c.Bindings() {
			bnd := Binding{Name: b.Name()}
			if t := b.Target(); t != nil {
				bnd.Function = t.Name()
			}
			cfg.Bindings = append(cfg.Bindings, bnd)
		}
		sc.Configs = append(sc.Configs, cfg)
	}

	return sc, nil
}

func (sc *Scheme) gadgetAttrs() *gadget.GadgetAttrs {
	if sc.Attrs == nil {
		return nil
	}
	return &gadget.GadgetAttrs{
		BcdUSB:          sc.Attrs.BcdUSB,
		BDeviceClass:    sc.Attrs.DeviceClass,
		BDeviceSubClass: sc.Attrs.DeviceSubClass,
		BDeviceProtocol: sc.Attrs.DeviceProtocol,
		BMaxPacketSize0: sc.Attrs.MaxPacketSize,
		IDVendor:        sc.Attrs.VendorID,
		IDProduct:       sc.Attrs.ProductID,
		BcdDevice:       sc.Attrs.BcdDevice,
	}
}

func (sc *Scheme) gadgetStrs() *gadget.GadgetStrs {
	if sc.Strings == nil {
		return nil
	}
	return &gadget.GadgetStrs{
		SerialNumber: sc.Strings.Serial,
		Manufacturer: sc.Strings.Manufacturer,
		Product:      sc.Strings.Product,
	}
}

func (fn *Function) functionAttrs() (gadget.FunctionAttrs, error) {
	switch {
	case fn.Serial != nil:
		return gadget.SerialAttrs{PortNum: fn.Serial.PortNum}, nil
	case fn.Net != nil:
		attrs := gadget.NetAttrs{Ifname: fn.Net.Ifname, QMult: fn.Net.QMult}
		if fn.Net.DevAddr != "" {
			addr, err := net.ParseMAC(fn.Net.DevAddr)
			if err != nil {
				return nil, fmt.Errorf("%w: dev_addr %q", configfs.ErrInvalidParam, fn.Net.DevAddr)
			}
			attrs.DevAddr = addr
		}
		if fn.Net.HostAddr != "" {
			addr, err := net.ParseMAC(fn.Net.HostAddr)
			if err != nil {
				return nil, fmt.Errorf("%w: host_addr %q", configfs.ErrInvalidParam, fn.Net.HostAddr)
			}
			attrs.HostAddr = addr
		}
		return attrs, nil
	case fn.Phonet != nil:
		return gadget.PhonetAttrs{Ifname: fn.Phonet.Ifname}, nil
	}
	return nil, nil
}

func (cfg *Config) configAttrs() *gadget.ConfigAttrs {
	if cfg.Attrs == nil {
		return nil
	}
	return &gadget.ConfigAttrs{MaxPower: cfg.Attrs.MaxPower, BmAttributes: cfg.Attrs.BmAttributes}
}

func (cfg *Config) configStrs() *gadget.ConfigStrs {
	if cfg.Strings == nil {
		return nil
	}
	return &gadget.ConfigStrs{Configuration: cfg.Strings.Configuration}
}
