package arh

import "encoding/binary"

// keyXor is combined with the header's encryption key to produce the
// word mask applied to the string table and path dictionary regions.
const keyXor = 0xF3F35353

// obfuscationMask derives the per-archive XOR mask from the header key.
func obfuscationMask(key uint32) uint32 {
	return key ^ keyXor
}

// xorRegion decodes (or, symmetrically, re-encodes) buf in place, word by
// word, treating each 4-byte group as a little-endian uint32 XORed with
// mask. buf need not be a multiple of 4 bytes; a short trailing group is
// masked byte-by-byte against the low bytes of mask.
func xorRegion(buf []byte, mask uint32) {
	if mask == 0 {
		return
	}
	var maskBytes [4]byte
	binary.LittleEndian.PutUint32(maskBytes[:], mask)

	full := len(buf) - len(buf)%4
	for i := 0; i < full; i += 4 {
		buf[i+0] ^= maskBytes[0]
		buf[i+1] ^= maskBytes[1]
		buf[i+2] ^= maskBytes[2]
		buf[i+3] ^= maskBytes[3]
	}
	for i := full; i < len(buf); i++ {
		buf[i] ^= maskBytes[i-full]
	}
}
