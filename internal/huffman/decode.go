package huffman

import "fmt"

// Decoder holds persistent bit-walking state for one server→client
// stream. State survives across TCP reads (spec §4.B): a symbol or the
// flush marker may straddle a read boundary.
type Decoder struct {
	cursor  int16
	value   byte
	mask    byte
	bit     uint8 // >= 8 means the current input byte is exhausted
}

// NewDecoder returns a Decoder positioned at the top of the tree,
// awaiting its first input byte.
func NewDecoder() *Decoder {
	return &Decoder{bit: 8}
}

// Decompress consumes src and appends decoded bytes to dst, returning
// the extended slice. A decoded stream may yield zero bytes (e.g. src
// is only a flush marker) without that being an error.
func (d *Decoder) Decompress(dst []byte, src []byte) ([]byte, error) {
	for _, b := range src {
		d.value = b
		d.mask = 0x80
		d.bit = 0

		for d.bit < 8 {
			var next int16
			if d.value&d.mask != 0 {
				next = tree[d.cursor].left
			} else {
				next = tree[d.cursor].right
			}
			d.mask >>= 1
			d.bit++

			if next > 0 {
				d.cursor = next
				continue
			}

			if next == flushLeaf {
				d.bit = 8
				d.cursor = 0
				break
			}

			dst = append(dst, leafByte(next))
			d.cursor = 0
		}
	}
	return dst, nil
}

// DecompressBounded behaves like Decompress but returns an error
// instead of growing dst past max bytes, matching the hard "output
// buffer full" failure spec §4.B requires of a misbehaving upstream.
func (d *Decoder) DecompressBounded(dst []byte, src []byte, max int) ([]byte, error) {
	for _, b := range src {
		d.value = b
		d.mask = 0x80
		d.bit = 0

		for d.bit < 8 {
			var next int16
			if d.value&d.mask != 0 {
				next = tree[d.cursor].left
			} else {
				next = tree[d.cursor].right
			}
			d.mask >>= 1
			d.bit++

			if next > 0 {
				d.cursor = next
				continue
			}

			if next == flushLeaf {
				d.bit = 8
				d.cursor = 0
				break
			}

			if len(dst) >= max {
				return dst, fmt.Errorf("huffman: decompression output buffer full")
			}
			dst = append(dst, leafByte(next))
			d.cursor = 0
		}
	}
	return dst, nil
}
