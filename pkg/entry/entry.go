// Package entry defines the key-value pair stored in the leaves of the B+tree.
package entry

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Entry is a key-value pair held at a leaf cell. Keys are unique, totally
// ordered, monotonically increasing unsigned integers; values are an opaque
// payload the tree never inspects.
type Entry struct {
	Key   uint64
	Value []byte
}

// New constructs and returns a new Entry with the specified key and value.
func New(key uint64, value []byte) Entry {
	return Entry{Key: key, Value: value}
}

// Marshal serializes an entry into a byte array: the key as a varint,
// followed by a varint length prefix and the raw value bytes.
func (e Entry) Marshal() []byte {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, e.Key)
	out := append([]byte{}, buf[:n]...)

	lenBuf := make([]byte, binary.MaxVarintLen64)
	n = binary.PutUvarint(lenBuf, uint64(len(e.Value)))
	out = append(out, lenBuf[:n]...)
	out = append(out, e.Value...)
	return out
}

// Unmarshal deserializes a byte array produced by Marshal into an Entry,
// returning the number of bytes consumed.
func Unmarshal(data []byte) (e Entry, n int) {
	key, keyLen := binary.Uvarint(data)
	valLen, valLenLen := binary.Uvarint(data[keyLen:])
	start := keyLen + valLenLen
	value := append([]byte{}, data[start:start+int(valLen)]...)
	return Entry{Key: key, Value: value}, start + int(valLen)
}

// Print writes the entry to the specified writer in the following format: (<key>, <value>)
func (e Entry) Print(w io.Writer) {
	fmt.Fprintf(w, "(%d, %v)", e.Key, e.Value)
}
