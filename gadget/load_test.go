package gadget

import (
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/gadgetfs/configfs"
)

const (
	testConfigfs = "/sys/kernel/config"
	testRoot     = testConfigfs + "/" + gadgetSubdir
)

func write(t *testing.T, fsys billy.Filesystem, p, content string) {
	t.Helper()
	require.NoError(t, util.WriteFile(fsys, p, []byte(content), 0o644))
}

func mkdir(t *testing.T, fsys billy.Filesystem, p string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(p, 0o755))
}

// newFixtureFS returns a memfs holding an empty usb_gadget root.
func newFixtureFS(t *testing.T) billy.Filesystem {
	t.Helper()
	fsys := memfs.New()
	mkdir(t, fsys, testRoot)
	return fsys
}

// writeGadgetFixture lays out one complete gadget the way the kernel
// would: attribute files, two functions, and a config binding one of
// them.
func writeGadgetFixture(t *testing.T, fsys billy.Filesystem, name string) {
	t.Helper()
	base := testRoot + "/" + name
	write(t, fsys, base+"/UDC", "\n")
	write(t, fsys, base+"/bcdUSB", "0x0200\n")
	write(t, fsys, base+"/bDeviceClass", "0x00\n")
	write(t, fsys, base+"/bDeviceSubClass", "0x00\n")
	write(t, fsys, base+"/bDeviceProtocol", "0x00\n")
	write(t, fsys, base+"/bMaxPacketSize0", "0x40\n")
	write(t, fsys, base+"/idVendor", "0x1d6b\n")
	write(t, fsys, base+"/idProduct", "0x0104\n")
	write(t, fsys, base+"/bcdDevice", "0x0001\n")

	mkdir(t, fsys, base+"/functions/acm.gs0")
	write(t, fsys, base+"/functions/acm.gs0/port_num", "0\n")
	mkdir(t, fsys, base+"/functions/ecm.usb0")
	write(t, fsys, base+"/functions/ecm.usb0/dev_addr", "aa:bb:cc:dd:ee:01\n")
	write(t, fsys, base+"/functions/ecm.usb0/host_addr", "aa:bb:cc:dd:ee:02\n")
	write(t, fsys, base+"/functions/ecm.usb0/ifname", "usb0\n")
	write(t, fsys, base+"/functions/ecm.usb0/qmult", "5\n")

	mkdir(t, fsys, base+"/configs/c.1")
	write(t, fsys, base+"/configs/c.1/MaxPower", "120\n")
	write(t, fsys, base+"/configs/c.1/bmAttributes", "0x80\n")
	require.NoError(t, fsys.Symlink(base+"/functions/ecm.usb0", base+"/configs/c.1/ecm.usb0"))
}

func TestOpen_MissingRoot(t *testing.T) {
	s, err := Open(memfs.New(), testConfigfs)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, configfs.ErrNotFound)
}

func TestOpen_LoadsTree(t *testing.T) {
	fsys := newFixtureFS(t)
	writeGadgetFixture(t, fsys, "g1")

	s, err := Open(fsys, testConfigfs)
	require.NoError(t, err)
	require.Len(t, s.Gadgets(), 1)

	g := s.Gadget("g1")
	require.NotNil(t, g)
	assert.Equal(t, "", g.UDC())
	assert.Equal(t, testRoot+"/g1", g.Path())

	fns := g.Functions()
	require.Len(t, fns, 2)
	assert.Equal(t, "acm.gs0", fns[0].Name())
	assert.Equal(t, FunctionACM, fns[0].Type())
	assert.Equal(t, "gs0", fns[0].Instance())
	assert.Equal(t, "ecm.usb0", fns[1].Name())
	assert.Equal(t, FunctionECM, fns[1].Type())

	cfgs := g.Configs()
	require.Len(t, cfgs, 1)
	c := cfgs[0]
	assert.Equal(t, "c.1", c.Name())

	bnds := c.Bindings()
	require.Len(t, bnds, 1)
	assert.Equal(t, "ecm.usb0", bnds[0].Name())
	assert.Same(t, g.Function("ecm.usb0"), bnds[0].Target(),
		"binding resolves to the gadget's own function node")
}

// treeShape flattens the tree into a comparable form.
func treeShape(s *State) [][]string {
	var shape [][]string
	for _, g := range s.Gadgets() {
		row := []string{g.Name(), g.UDC()}
		for _, f := range g.Functions() {
			row = append(row, "f:"+f.Name())
		}
		for _, c := range g.Configs() {
			row = append(row, "c:"+c.Name())
			for _, b := range c.Bindings() {
				row = append(row, "b:"+b.Name())
			}
		}
		shape = append(shape, row)
	}
	return shape
}

func TestOpen_Idempotent(t *testing.T) {
	fsys := newFixtureFS(t)
	writeGadgetFixture(t, fsys, "g1")
	writeGadgetFixture(t, fsys, "g0")

	first, err := Open(fsys, testConfigfs)
	require.NoError(t, err)
	second, err := Open(fsys, testConfigfs)
	require.NoError(t, err)

	assert.Equal(t, treeShape(first), treeShape(second),
		"re-loading an untouched store reproduces the same structure and order")
	assert.Equal(t, "g0", first.Gadgets()[0].Name())
	assert.Equal(t, "g1", first.Gadgets()[1].Name())
}

func TestOpen_UnknownFunctionType(t *testing.T) {
	fsys := newFixtureFS(t)
	writeGadgetFixture(t, fsys, "g1")
	mkdir(t, fsys, testRoot+"/g1/functions/ffs.app")

	s, err := Open(fsys, testConfigfs)
	require.NoError(t, err)

	f := s.Gadget("g1").Function("ffs.app")
	require.NotNil(t, f, "unmatched type prefix must not abort the load")
	assert.Equal(t, FunctionUnknown, f.Type())
	assert.Equal(t, "unknown", f.Type().String())
}

func TestOpen_DanglingBindingDropsConfigOnly(t *testing.T) {
	fsys := newFixtureFS(t)
	writeGadgetFixture(t, fsys, "g1")
	base := testRoot + "/g1"
	mkdir(t, fsys, base+"/configs/c.2")
	require.NoError(t, fsys.Symlink("/elsewhere/functions/foo.bar", base+"/configs/c.2/foo.bar"))

	s, err := Open(fsys, testConfigfs)
	require.NotNil(t, s, "partial load still yields a usable state")
	assert.ErrorIs(t, err, configfs.ErrNotFound)

	g := s.Gadget("g1")
	require.NotNil(t, g)
	assert.NotNil(t, g.Config("c.1"), "sibling config with a valid binding survives")
	assert.Nil(t, g.Config("c.2"), "config with an unresolvable binding is dropped")
}

func TestOpen_GadgetWithoutUDCDropped(t *testing.T) {
	fsys := newFixtureFS(t)
	writeGadgetFixture(t, fsys, "good")
	mkdir(t, fsys, testRoot+"/broken")

	s, err := Open(fsys, testConfigfs)
	require.NotNil(t, s)
	assert.ErrorIs(t, err, configfs.ErrNotFound)
	assert.NotNil(t, s.Gadget("good"))
	assert.Nil(t, s.Gadget("broken"))
}

func TestOpen_ReadsBoundUDC(t *testing.T) {
	fsys := newFixtureFS(t)
	writeGadgetFixture(t, fsys, "g1")
	write(t, fsys, testRoot+"/g1/UDC", "controller0\n")

	s, err := Open(fsys, testConfigfs)
	require.NoError(t, err)
	assert.Equal(t, "controller0", s.Gadget("g1").UDC())
}
