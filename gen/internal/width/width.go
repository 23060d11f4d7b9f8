// Package width maps arbitrary bit widths onto the canonical unsigned
// integer storage ladder.
package width

// The canonical ladder is {8, 16, 24, 32, 40, 48, 56, 64}: every whole-byte
// width up to 64 bits. Resolve and Mask are pure and total over 1..64.

// Resolve returns the smallest canonical storage width holding a value of
// the given bit width.
func Resolve(bits int) int {
	if bits <= 0 {
		return 0
	}
	return (bits + 7) / 8 * 8
}

// Bytes returns the byte count of a canonical width.
func Bytes(bits int) int {
	return Resolve(bits) / 8
}

// Mask returns (1<<bits)-1, the largest value a field of the given bit width
// admits. bits == 64 yields the full unsigned range.
func Mask(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<bits - 1
}
