package configfs

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"
)

// Closed error taxonomy for the configfs boundary. Every raw filesystem
// error is mapped onto exactly one of these before it propagates upward;
// callers test with errors.Is and never inspect platform error codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrNoAccess     = errors.New("permission denied")
	ErrInvalidParam = errors.New("invalid parameter")
	ErrIO           = errors.New("i/o error")
	ErrNoMem        = errors.New("out of memory")
	ErrOther        = errors.New("unclassified error")
)

// taxonomy lists the sentinels so Classify can detect an already-mapped error.
var taxonomy = []error{ErrNotFound, ErrNoAccess, ErrInvalidParam, ErrIO, ErrNoMem, ErrOther}

// Classify maps err onto the closed taxonomy. Already-classified errors
// pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range taxonomy {
		if errors.Is(err, kind) {
			return err
		}
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ENOMEM:
			return fmt.Errorf("%w: %v", ErrNoMem, err)
		case syscall.EIO:
			return fmt.Errorf("%w: %v", ErrIO, err)
		case syscall.ENOENT, syscall.ENOTDIR:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case syscall.EACCES:
			return fmt.Errorf("%w: %v", ErrNoAccess, err)
		case syscall.EINVAL:
			return fmt.Errorf("%w: %v", ErrInvalidParam, err)
		}
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", ErrNoAccess, err)
	case errors.Is(err, fs.ErrInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidParam, err)
	}

	return fmt.Errorf("%w: %v", ErrOther, err)
}

// Length ceilings for names and paths inside the store. Validated up front
// so oversized input surfaces as ErrInvalidParam instead of an I/O failure
// deep in a mutation sequence.
const (
	MaxNameLength = 40
	MaxPathLength = 256
)

// ValidateName rejects entry names that cannot appear as a single directory
// or link component in the store.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidParam)
	}
	if len(name) >= MaxNameLength {
		return fmt.Errorf("%w: name %q exceeds %d bytes", ErrInvalidParam, name, MaxNameLength-1)
	}
	if strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("%w: name %q contains a path separator", ErrInvalidParam, name)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: name %q is reserved", ErrInvalidParam, name)
	}
	return nil
}

// ValidatePath bounds a full store path.
func ValidatePath(p string) error {
	if len(p) >= MaxPathLength {
		return fmt.Errorf("%w: path %q exceeds %d bytes", ErrInvalidParam, p, MaxPathLength-1)
	}
	return nil
}
