// Package checksum implements the Internet checksum (RFC 1071) and a
// zero-copy UDP over IPv4 checksum.
//
// All words are read in network byte order, so results can be stored with
// binary.BigEndian.PutUint16 straight into a header.
package checksum

import "encoding/binary"

// Accumulator is a running one's-complement sum of 16-bit words.
// The zero value is ready to use.
type Accumulator struct {
	sum uint64
}

// AddWord adds one 16-bit word.
func (a *Accumulator) AddWord(w uint16) {
	a.sum += uint64(w)
}

// AddBytes adds b as consecutive big-endian words. An odd trailing byte is
// added as the high byte of a zero-padded word, so only the last chunk fed
// to an Accumulator may have odd length.
func (a *Accumulator) AddBytes(b []byte) {
	n := len(b) &^ 1
	for i := 0; i < n; i += 2 {
		a.sum += uint64(binary.BigEndian.Uint16(b[i:]))
	}
	if len(b)&1 == 1 {
		a.sum += uint64(b[n]) << 8
	}
}

// Fold folds carries above bit 16 back into the low 16 bits until none
// remain and returns the folded sum.
func (a Accumulator) Fold() uint16 {
	sum := a.sum
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return uint16(sum)
}

// Checksum returns the one's complement of the folded sum.
func (a Accumulator) Checksum() uint16 {
	return ^a.Fold()
}

// Checksum computes the Internet checksum of b.
//
// Writing the result into a zeroed checksum field of b and running Checksum
// again over b yields 0.
func Checksum(b []byte) uint16 {
	var acc Accumulator
	acc.AddBytes(b)
	return acc.Checksum()
}
