package configfs

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// The codec addresses attribute files by a (dir, name, file) triplet: the
// directory holding a set of sibling entries, the entry name (may be
// blank), and the attribute file inside it. This mirrors how the tree
// model carries a parent path plus an entry name for every node.

// ReadString reads file as raw text, stripping exactly one trailing
// newline if present. On failure the result is always the empty string
// alongside the classified error, so callers never see stale content.
func (s *Store) ReadString(dir, name, file string) (string, error) {
	data, err := s.readFile(s.Join(dir, name, file))
	if err != nil {
		return "", err
	}
	text := string(data)
	text = strings.TrimSuffix(text, "\n")
	return text, nil
}

// ReadDec reads file as a signed decimal integer.
func (s *Store) ReadDec(dir, name, file string) (int, error) {
	data, err := s.readFile(s.Join(dir, name, file))
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed decimal %q in %s", ErrInvalidParam,
			strings.TrimSpace(string(data)), file)
	}
	return int(v), nil
}

// ReadHex reads file as an unsigned hexadecimal integer. The kernel writes
// these with a 0x prefix; the prefix is optional on the way in.
func (s *Store) ReadHex(dir, name, file string) (int, error) {
	data, err := s.readFile(s.Join(dir, name, file))
	if err != nil {
		return 0, err
	}
	text := strings.TrimSpace(string(data))
	text = strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
	v, err := strconv.ParseUint(text, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed hex %q in %s", ErrInvalidParam, text, file)
	}
	return int(v), nil
}

// ReadMAC reads file as a MAC address in text form.
func (s *Store) ReadMAC(dir, name, file string) (net.HardwareAddr, error) {
	text, err := s.ReadString(dir, name, file)
	if err != nil {
		return nil, err
	}
	addr, err := net.ParseMAC(strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed mac %q in %s", ErrInvalidParam, text, file)
	}
	return addr, nil
}

// WriteString writes val verbatim, with no added newline.
func (s *Store) WriteString(dir, name, file, val string) error {
	return s.writeFile(s.Join(dir, name, file), []byte(val))
}

// WriteDec writes v in canonical decimal form.
func (s *Store) WriteDec(dir, name, file string, v int) error {
	return s.writeFile(s.Join(dir, name, file), fmt.Appendf(nil, "%d\n", v))
}

// WriteHex8 writes v as a two-digit hex field.
func (s *Store) WriteHex8(dir, name, file string, v uint8) error {
	return s.writeFile(s.Join(dir, name, file), fmt.Appendf(nil, "0x%02x\n", v))
}

// WriteHex16 writes v as a four-digit hex field.
func (s *Store) WriteHex16(dir, name, file string, v uint16) error {
	return s.writeFile(s.Join(dir, name, file), fmt.Appendf(nil, "0x%04x\n", v))
}

// WriteMAC writes addr in text form.
func (s *Store) WriteMAC(dir, name, file string, addr net.HardwareAddr) error {
	return s.writeFile(s.Join(dir, name, file), []byte(addr.String()))
}
