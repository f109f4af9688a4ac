package scheme

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/gadgetfs/configfs"
	"github.com/agentic-research/gadgetfs/gadget"
)

const sampleDoc = `
name: g1
attrs:
  bcd_usb: 0x0200
  max_packet_size: 0x40
  vendor_id: 0x1d6b
  product_id: 0x0104
  bcd_device: 0x0001
strings:
  serial: "0123456789"
  manufacturer: Acme
  product: Widget
functions:
  - type: acm
    instance: gs0
    serial:
      port_num: 3
  - type: ecm
    instance: usb0
    net:
      dev_addr: "aa:bb:cc:dd:ee:01"
      host_addr: "aa:bb:cc:dd:ee:02"
      ifname: usb0
      qmult: 5
configs:
  - name: c.1
    attrs:
      max_power: 120
      bm_attributes: 0x80
    strings:
      configuration: CDC
    bindings:
      - name: ecm.usb0
        function: ecm.usb0
`

func newState(t *testing.T) *gadget.State {
	t.Helper()
	fsys := memfs.New()
	require.NoError(t, fsys.MkdirAll("/sys/kernel/config/usb_gadget", 0o755))
	s, err := gadget.Open(fsys, "/sys/kernel/config")
	require.NoError(t, err)
	return s
}

func TestParse(t *testing.T) {
	sc, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, "g1", sc.Name)
	require.NotNil(t, sc.Attrs)
	assert.Equal(t, uint16(0x1d6b), sc.Attrs.VendorID)
	require.Len(t, sc.Functions, 2)
	require.NotNil(t, sc.Functions[0].Serial)
	assert.Equal(t, 3, sc.Functions[0].Serial.PortNum)
	require.Len(t, sc.Configs, 1)
	require.Len(t, sc.Configs[0].Bindings, 1)
	assert.Equal(t, "ecm.usb0", sc.Configs[0].Bindings[0].Function)
}

func TestParse_MissingName(t *testing.T) {
	sc, err := Parse([]byte("attrs:\n  vendor_id: 0x1d6b\n"))
	assert.Nil(t, sc)
	assert.ErrorIs(t, err, configfs.ErrInvalidParam)
}

func TestParse_Malformed(t *testing.T) {
	sc, err := Parse([]byte("name: [unterminated"))
	assert.Nil(t, sc)
	assert.ErrorIs(t, err, configfs.ErrInvalidParam)
}

func TestApply(t *testing.T) {
	s := newState(t)
	sc, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	g, err := Apply(s, sc)
	require.NoError(t, err)
	assert.Same(t, g, s.Gadget("g1"))

	attrs, err := g.Attrs()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1d6b), attrs.IDVendor)
	assert.Equal(t, uint16(0x0104), attrs.IDProduct)

	f := g.Function("ecm.usb0")
	require.NotNil(t, f)
	fa, err := f.Attrs()
	require.NoError(t, err)
	na, ok := fa.(gadget.NetAttrs)
	require.True(t, ok)
	assert.Equal(t, "aa:bb:cc:dd:ee:01", na.DevAddr.String())
	assert.Equal(t, 5, na.QMult)

	c := g.Config("c.1")
	require.NotNil(t, c)
	require.Len(t, c.Bindings(), 1)
	assert.Same(t, f, c.Bindings()[0].Target())
}

func TestApply_UnknownFunctionType(t *testing.T) {
	s := newState(t)
	sc, err := Parse([]byte("name: g1\nfunctions:\n  - type: ffs\n    instance: app\n"))
	require.NoError(t, err)

	g, err := Apply(s, sc)
	assert.Nil(t, g)
	assert.ErrorIs(t, err, configfs.ErrInvalidParam)
}

func TestApply_UnresolvedBinding(t *testing.T) {
	s := newState(t)
	doc := `
name: g1
configs:
  - name: c.1
    bindings:
      - name: link
        function: ecm.usb9
`
	sc, err := Parse([]byte(doc))
	require.NoError(t, err)

	g, err := Apply(s, sc)
	assert.Nil(t, g)
	assert.ErrorIs(t, err, configfs.ErrNotFound)
}

func TestApply_BadMAC(t *testing.T) {
	s := newState(t)
	doc := `
name: g1
functions:
  - type: ecm
    instance: usb0
    net:
      dev_addr: not-a-mac
`
	sc, err := Parse([]byte(doc))
	require.NoError(t, err)

	g, err := Apply(s, sc)
	assert.Nil(t, g)
	assert.ErrorIs(t, err, configfs.ErrInvalidParam)
}

func TestExport_RoundTrip(t *testing.T) {
	s := newState(t)
	sc, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)
	g, err := Apply(s, sc)
	require.NoError(t, err)

	out, err := Export(g)
	require.NoError(t, err)

	assert.Equal(t, sc.Name, out.Name)
	assert.Equal(t, sc.Attrs, out.Attrs)
	assert.Equal(t, sc.Strings, out.Strings)
	assert.Equal(t, sc.Functions, out.Functions)
	assert.Equal(t, sc.Configs, out.Configs)

	// The exported form parses back to itself.
	data, err := out.Encode()
	require.NoError(t, err)
	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestExport_OmitsUnreadableBlocks(t *testing.T) {
	s := newState(t)
	g, err := s.CreateGadget("bare", nil, nil)
	require.NoError(t, err)

	out, err := Export(g)
	require.NoError(t, err)
	assert.Nil(t, out.Attrs, "attribute files were never written")
	assert.Nil(t, out.Strings, "no strings directory exists")
	assert.Empty(t, out.Functions)
	assert.Empty(t, out.Configs)
}
