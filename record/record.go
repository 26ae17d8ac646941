// Package record implements the fixed-width row codec (spec C1): a
// (id, username, email) tuple serialized little-endian into a 293-byte
// slot that is copied verbatim between rows and leaf cell values.
package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	IDSize       = 4
	UsernameCap  = 32
	EmailCap     = 255
	usernameSize = UsernameCap + 1
	emailSize    = EmailCap + 1

	idOffset       = 0
	usernameOffset = idOffset + IDSize
	emailOffset    = usernameOffset + usernameSize

	// Size is the exact on-disk width of a serialized row.
	Size = IDSize + usernameSize + emailSize
)

// Row is a single user record. Username and Email are validated by the
// caller (the CLI parser, per spec §4.1) before Serialize is called.
type Row struct {
	ID       uint32
	Username string
	Email    string
}

// Serialize writes r into dst, which must be exactly Size bytes long.
func Serialize(r Row, dst []byte) error {
	if len(dst) != Size {
		return fmt.Errorf("record.Serialize: dst has %d bytes, want %d", len(dst), Size)
	}
	if len(r.Username) > UsernameCap {
		return fmt.Errorf("record.Serialize: username %d bytes exceeds cap %d", len(r.Username), UsernameCap)
	}
	if len(r.Email) > EmailCap {
		return fmt.Errorf("record.Serialize: email %d bytes exceeds cap %d", len(r.Email), EmailCap)
	}

	for i := range dst {
		dst[i] = 0
	}
	binary.LittleEndian.PutUint32(dst[idOffset:idOffset+IDSize], r.ID)
	copy(dst[usernameOffset:usernameOffset+usernameSize], r.Username)
	copy(dst[emailOffset:emailOffset+emailSize], r.Email)
	return nil
}

// Deserialize reads a Row back out of src, which must be exactly Size
// bytes long.
func Deserialize(src []byte) (Row, error) {
	if len(src) != Size {
		return Row{}, fmt.Errorf("record.Deserialize: src has %d bytes, want %d", len(src), Size)
	}
	var r Row
	r.ID = binary.LittleEndian.Uint32(src[idOffset : idOffset+IDSize])
	r.Username = string(bytes.TrimRight(src[usernameOffset:usernameOffset+usernameSize], "\x00"))
	r.Email = string(bytes.TrimRight(src[emailOffset:emailOffset+emailSize], "\x00"))
	return r, nil
}
