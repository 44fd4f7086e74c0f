package frontend

// FetchBuffer holds one aligned sub-cache-block of instruction bytes for a
// single thread. It is always exactly Size bytes; when Valid, it holds
// precisely the bytes of the aligned block at VAddr as returned by the
// cache.
type FetchBuffer struct {
	Size  int
	Data  []byte
	VAddr uint64
	Valid bool
}

// NewFetchBuffer creates an empty fetch buffer of the given size.
func NewFetchBuffer(size int) *FetchBuffer {
	return &FetchBuffer{Size: size, Data: make([]byte, size)}
}

// Fill copies data into the buffer and marks it valid at vaddr. len(data)
// must equal Size.
func (b *FetchBuffer) Fill(vaddr uint64, data []byte) {
	copy(b.Data, data)
	b.VAddr = vaddr
	b.Valid = true
}

// Invalidate clears the validity bit without touching the bytes, matching
// how a squash drops a fetch buffer's contents without needing to zero it.
func (b *FetchBuffer) Invalidate() {
	b.Valid = false
}

// Holds reports whether the buffer currently holds the aligned block that
// contains vaddr.
func (b *FetchBuffer) Holds(vaddr uint64) bool {
	return b.Valid && AlignDown(vaddr, uint64(b.Size)) == b.VAddr
}

// BytesFrom returns the bytes available starting at the given byte offset
// within the buffer.
func (b *FetchBuffer) BytesFrom(offset int) []byte {
	if offset < 0 || offset > len(b.Data) {
		return nil
	}
	return b.Data[offset:]
}

// AlignDown rounds addr down to the nearest multiple of size. Applying it
// twice is idempotent: AlignDown(AlignDown(x, n), n) == AlignDown(x, n).
func AlignDown(addr, size uint64) uint64 {
	return addr &^ (size - 1)
}
