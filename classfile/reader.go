package classfile

import "encoding/binary"

type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) need(n int, what string) error {
	if n < 0 || r.pos+n > len(r.data) {
		return malformed("truncated %s at offset %d", what, r.pos)
	}
	return nil
}

func (r *byteReader) u1(what string) (uint8, error) {
	if err := r.need(1, what); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *byteReader) u2(what string) (uint16, error) {
	if err := r.need(2, what); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *byteReader) u4(what string) (uint32, error) {
	if err := r.need(4, what); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *byteReader) bytes(n int, what string) ([]byte, error) {
	if err := r.need(n, what); err != nil {
		return nil, err
	}
	v := r.data[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

func (r *byteReader) skip(n int, what string) error {
	if err := r.need(n, what); err != nil {
		return err
	}
	r.pos += n
	return nil
}
