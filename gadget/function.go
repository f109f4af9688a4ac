package gadget

import (
	"fmt"
	"log/slog"
	"net"
)

// FunctionType identifies a USB function flavour by the kernel module name
// that prefixes its directory entry (the part before the first dot).
type FunctionType int

const (
	FunctionSerial FunctionType = iota // gser
	FunctionACM                        // acm
	FunctionOBEX                       // obex
	FunctionECM                        // ecm
	FunctionSubset                     // geth
	FunctionNCM                        // ncm
	FunctionEEM                        // eem
	FunctionRNDIS                      // rndis
	FunctionPhonet                     // phonet
)

// FunctionUnknown marks a directory entry whose type prefix matched no
// known function. Such functions survive a load but carry no attributes.
const FunctionUnknown FunctionType = -1

var functionNames = [...]string{
	FunctionSerial: "gser",
	FunctionACM:    "acm",
	FunctionOBEX:   "obex",
	FunctionECM:    "ecm",
	FunctionSubset: "geth",
	FunctionNCM:    "ncm",
	FunctionEEM:    "eem",
	FunctionRNDIS:  "rndis",
	FunctionPhonet: "phonet",
}

// Name returns the on-disk type prefix, or "" for FunctionUnknown.
func (t FunctionType) Name() string {
	if t < 0 || int(t) >= len(functionNames) {
		return ""
	}
	return functionNames[t]
}

// String implements fmt.Stringer.
func (t FunctionType) String() string {
	if name := t.Name(); name != "" {
		return name
	}
	return "unknown"
}

// ParseFunctionType maps a type prefix back to its FunctionType. Names that
// match nothing yield FunctionUnknown, never an error: the set of kernel
// function modules is open-ended and a loaded tree must tolerate entries
// this library does not model.
func ParseFunctionType(name string) FunctionType {
	for t, n := range functionNames {
		if n == name {
			return FunctionType(t)
		}
	}
	return FunctionUnknown
}

// hasSerialAttrs reports whether the type carries the serial attribute
// shape (a single port number).
func (t FunctionType) hasSerialAttrs() bool {
	return t == FunctionSerial || t == FunctionACM || t == FunctionOBEX
}

// hasNetAttrs reports whether the type carries the ethernet attribute
// shape (two MACs, an interface name, a queue multiplier).
func (t FunctionType) hasNetAttrs() bool {
	switch t {
	case FunctionECM, FunctionSubset, FunctionNCM, FunctionEEM, FunctionRNDIS:
		return true
	}
	return false
}

// FunctionAttrs is the type-specific attribute payload of a function.
// Exactly one concrete type applies per FunctionType family.
type FunctionAttrs interface {
	isFunctionAttrs()
}

// SerialAttrs are the attributes of gser/acm/obex functions.
type SerialAttrs struct {
	PortNum int
}

// NetAttrs are the attributes of ecm/geth/ncm/eem/rndis functions.
type NetAttrs struct {
	DevAddr  net.HardwareAddr
	HostAddr net.HardwareAddr
	Ifname   string
	QMult    int
}

// PhonetAttrs are the attributes of phonet functions.
type PhonetAttrs struct {
	Ifname string
}

func (SerialAttrs) isFunctionAttrs() {}
func (NetAttrs) isFunctionAttrs()    {}
func (PhonetAttrs) isFunctionAttrs() {}

// Function is one USB-exposed capability owned by a Gadget. Its on-disk
// entry name is "<type>.<instance>". Functions are referenced, never
// owned, by config Bindings.
type Function struct {
	parent *Gadget
	name   string // full "<type>.<instance>" entry name
	path   string // the gadget's functions directory
	typ    FunctionType
}

// Name returns the full "<type>.<instance>" entry name.
func (f *Function) Name() string { return f.name }

// Type returns the function's type tag.
func (f *Function) Type() FunctionType { return f.typ }

// Instance returns the part of the entry name after the first dot.
func (f *Function) Instance() string {
	for i := 0; i < len(f.name); i++ {
		if f.name[i] == '.' {
			return f.name[i+1:]
		}
	}
	return ""
}

// Path returns the function's own directory in the store.
func (f *Function) Path() string {
	return f.parent.parent.store.Join(f.path, f.name)
}

// Attrs reads the type-specific attributes back from the store. Individual
// field reads are best-effort, matching the write side: unreadable fields
// stay zero. A function of unknown type has no modelled attributes; the
// condition is logged and a nil payload returned.
func (f *Function) Attrs() (FunctionAttrs, error) {
	st := f.parent.parent.store
	switch {
	case f.typ.hasSerialAttrs():
		var attrs SerialAttrs
		attrs.PortNum, _ = st.ReadDec(f.path, f.name, "port_num")
		return attrs, nil
	case f.typ.hasNetAttrs():
		var attrs NetAttrs
		if addr, err := st.ReadMAC(f.path, f.name, "dev_addr"); err == nil {
			attrs.DevAddr = addr
		}
		if addr, err := st.ReadMAC(f.path, f.name, "host_addr"); err == nil {
			attrs.HostAddr = addr
		}
		attrs.Ifname, _ = st.ReadString(f.path, f.name, "ifname")
		attrs.QMult, _ = st.ReadDec(f.path, f.name, "qmult")
		return attrs, nil
	case f.typ == FunctionPhonet:
		var attrs PhonetAttrs
		attrs.Ifname, _ = st.ReadString(f.path, f.name, "ifname")
		return attrs, nil
	}
	f.log().Warn("unsupported function type", "function", f.name, "type", int(f.typ))
	return nil, nil
}

// SetAttrs applies the type-specific attribute payload. Writes are
// best-effort and non-transactional: each field failure is reported to the
// diagnostic sink and the remaining fields are still written. A payload
// whose concrete type does not match the function's type tag is logged and
// ignored.
func (f *Function) SetAttrs(attrs FunctionAttrs) {
	if attrs == nil {
		return
	}
	st := f.parent.parent.store
	switch {
	case f.typ.hasSerialAttrs():
		a, ok := attrs.(SerialAttrs)
		if !ok {
			f.logMismatch(attrs)
			return
		}
		f.reportWrite("port_num", st.WriteDec(f.path, f.name, "port_num", a.PortNum))
	case f.typ.hasNetAttrs():
		a, ok := attrs.(NetAttrs)
		if !ok {
			f.logMismatch(attrs)
			return
		}
		if a.DevAddr != nil {
			f.reportWrite("dev_addr", st.WriteMAC(f.path, f.name, "dev_addr", a.DevAddr))
		}
		if a.HostAddr != nil {
			f.reportWrite("host_addr", st.WriteMAC(f.path, f.name, "host_addr", a.HostAddr))
		}
		f.reportWrite("ifname", st.WriteString(f.path, f.name, "ifname", a.Ifname))
		f.reportWrite("qmult", st.WriteDec(f.path, f.name, "qmult", a.QMult))
	case f.typ == FunctionPhonet:
		a, ok := attrs.(PhonetAttrs)
		if !ok {
			f.logMismatch(attrs)
			return
		}
		f.reportWrite("ifname", st.WriteString(f.path, f.name, "ifname", a.Ifname))
	default:
		f.log().Warn("unsupported function type", "function", f.name, "type", int(f.typ))
	}
}

// SetNetDevAddr writes the device-side MAC of an ethernet-like function.
func (f *Function) SetNetDevAddr(addr net.HardwareAddr) {
	f.reportWrite("dev_addr",
		f.parent.parent.store.WriteMAC(f.path, f.name, "dev_addr", addr))
}

// SetNetHostAddr writes the host-side MAC of an ethernet-like function.
func (f *Function) SetNetHostAddr(addr net.HardwareAddr) {
	f.reportWrite("host_addr",
		f.parent.parent.store.WriteMAC(f.path, f.name, "host_addr", addr))
}

// SetNetQMult writes the queue length multiplier of an ethernet-like
// function.
func (f *Function) SetNetQMult(qmult int) {
	f.reportWrite("qmult",
		f.parent.parent.store.WriteDec(f.path, f.name, "qmult", qmult))
}

func (f *Function) log() *slog.Logger { return f.parent.parent.log }

func (f *Function) logMismatch(attrs FunctionAttrs) {
	f.log().Warn("attribute payload does not match function type",
		"function", f.name, "type", f.typ.String(), "payload", fmt.Sprintf("%T", attrs))
}

func (f *Function) reportWrite(field string, err error) {
	if err != nil {
		f.log().Warn("attribute write failed", "function", f.name, "field", field, "err", err)
	}
}
