package gadget

import (
	"fmt"
	"path"
	"strings"

	"github.com/agentic-research/gadgetfs/configfs"
)

// Loading walks the store top-down and reconstructs the tree. The walk is
// best-effort: a failing entry is dropped, its already-loaded siblings are
// retained, later siblings from the same enumeration are still
// constructed, and the first classified failure is what the caller sees.
// Nodes are appended in scan order; the enumeration is already sorted, so
// no ordered insert happens here.

func (s *State) load() error {
	names, err := s.store.ListDir(s.path)
	if err != nil {
		return err
	}
	var firstErr error
	for _, name := range names {
		g := &Gadget{parent: s, name: name, path: s.path}
		if err := g.load(); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("load gadget %q: %w", name, err)
			}
			continue
		}
		s.gadgets = append(s.gadgets, g)
	}
	return firstErr
}

func (g *Gadget) load() error {
	udc, err := g.store().ReadString(g.path, g.name, "UDC")
	if err != nil {
		return err
	}
	g.udc = udc

	if err := g.loadFunctions(); err != nil {
		return err
	}
	return g.loadConfigs()
}

func (g *Gadget) loadFunctions() error {
	fpath := g.store().Join(g.path, g.name, functionsDir)
	names, err := g.store().ListDir(fpath)
	if err != nil {
		return err
	}
	for _, name := range names {
		// The type is the first dot-delimited segment of the entry name.
		// A prefix that matches no known type leaves the function as
		// FunctionUnknown instead of failing the load.
		prefix, _, _ := strings.Cut(name, ".")
		g.functions = append(g.functions, &Function{
			parent: g,
			name:   name,
			path:   fpath,
			typ:    ParseFunctionType(prefix),
		})
	}
	return nil
}

func (g *Gadget) loadConfigs() error {
	cpath := g.store().Join(g.path, g.name, configsDir)
	names, err := g.store().ListDir(cpath)
	if err != nil {
		return err
	}
	var firstErr error
	for _, name := range names {
		c := &Config{parent: g, name: name, path: cpath}
		if err := c.loadBindings(); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("load config %q: %w", name, err)
			}
			continue
		}
		g.configs = append(g.configs, c)
	}
	return firstErr
}

// loadBindings enumerates the symlink entries of the config directory and
// resolves each back to a function of the owning gadget by the last path
// segment of the link target. A target that matches no function leaves the
// binding unresolved and marks the config as failed; a failing readlink is
// a classified failure for that entry. The scan always runs to the end of
// the enumeration.
func (c *Config) loadBindings() error {
	g := c.parent
	bpath := c.Path()
	links, err := c.store().ListLinks(bpath)
	if err != nil {
		return err
	}
	var firstErr error
	for _, link := range links {
		target, err := c.store().Readlink(c.store().Join(bpath, link))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		targetName := path.Base(target)
		f := g.Function(targetName)
		if f == nil && firstErr == nil {
			firstErr = fmt.Errorf("%w: binding %q targets %q which is not a function of gadget %q",
				configfs.ErrNotFound, link, targetName, g.name)
		}
		c.bindings = append(c.bindings, &Binding{
			parent: c,
			target: f,
			name:   link,
			path:   bpath,
		})
	}
	return firstErr
}
