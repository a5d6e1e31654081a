package cache

// The position key stored in a bucket is the Position's packed 48-bit or
// 60-bit representation run through a reversible multiply-xorshift mixer so
// that keys of adjacent positions scatter across buckets. Both widths use a
// 3-round xorshift/multiply mixer; each forward constant has a documented
// modular inverse so a stored key can be unmixed back into the packed
// position bits for collision diagnostics.

const (
	mix48Shift        = 24
	mix48Mask  uint64 = 0xFFFFFFFFFFFF
	mix48FwdA  uint64 = 0xfd7ed558ccd
	mix48FwdB  uint64 = 0xfe1a85ec53
	mix48InvA  uint64 = 0xe30c22a54005
	mix48InvB  uint64 = 0x3f8129337db

	mix60Shift        = 30
	mix60Mask  uint64 = 0x0FFFFFFFFFFFFFFF
	mix60FwdA  uint64 = 0xff51afd7ed558ccd
	mix60FwdB  uint64 = 0xc4ceb9fe1a85ec53
	mix60InvA  uint64 = 0x0f74430c22a54005
	mix60InvB  uint64 = 0x0cb4b2f8129337db
)

// mix48 scrambles a 48-bit packed key.
func mix48(k uint64) uint64 {
	k &= mix48Mask
	k ^= k >> mix48Shift
	k = (k * mix48FwdA) & mix48Mask
	k ^= k >> mix48Shift
	k = (k * mix48FwdB) & mix48Mask
	k ^= k >> mix48Shift
	return k
}

// unmix48 inverts mix48.
func unmix48(k uint64) uint64 {
	k &= mix48Mask
	k ^= k >> mix48Shift
	k = (k * mix48InvB) & mix48Mask
	k ^= k >> mix48Shift
	k = (k * mix48InvA) & mix48Mask
	k ^= k >> mix48Shift
	return k
}

// mix60 scrambles a 60-bit packed key.
func mix60(k uint64) uint64 {
	k &= mix60Mask
	k ^= k >> mix60Shift
	k = (k * mix60FwdA) & mix60Mask
	k ^= k >> mix60Shift
	k = (k * mix60FwdB) & mix60Mask
	k ^= k >> mix60Shift
	return k
}

// unmix60 inverts mix60.
func unmix60(k uint64) uint64 {
	k &= mix60Mask
	k ^= k >> mix60Shift
	k = (k * mix60InvB) & mix60Mask
	k ^= k >> mix60Shift
	k = (k * mix60InvA) & mix60Mask
	k ^= k >> mix60Shift
	return k
}
