package ledger

import "errors"

var errUnexpectedEOF = errors.New("unexpected end of data")

// reader reads length prefixed fields of device responses.
type reader struct {
	buf    []byte
	offset int
}

func (r *reader) read(n int) ([]byte, error) {
	if n < 0 || r.offset+n > len(r.buf) {
		return nil, errUnexpectedEOF
	}
	b := make([]byte, n)
	copy(b, r.buf[r.offset:r.offset+n])
	r.offset += n
	return b, nil
}

func (r *reader) readByte() (byte, error) {
	b, err := r.read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// readVarBytes reads a field prefixed by its 1 byte length.
func (r *reader) readVarBytes() ([]byte, error) {
	n, err := r.readByte()
	if err != nil {
		return nil, err
	}
	return r.read(int(n))
}
