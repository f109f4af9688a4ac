package gadget

import "github.com/agentic-research/gadgetfs/configfs"

// UDCClassPath is where the kernel lists the available device
// controllers.
const UDCClassPath = "/sys/class/udc"

// UDCLister enumerates the available USB device controllers. It is the
// one collaborator query the tree consumes: Gadget.Enable with no
// explicit controller name binds to the first entry.
type UDCLister interface {
	List() ([]string, error)
}

// StoreUDCLister lists controllers through the same filesystem that backs
// the store. On a real system the store is rooted at / so UDCClassPath
// resolves to sysfs; tests populate the directory in memfs.
type StoreUDCLister struct {
	Store *configfs.Store
}

// List returns the controller names in ascending order.
func (l *StoreUDCLister) List() ([]string, error) {
	return l.Store.ListDir(UDCClassPath)
}
