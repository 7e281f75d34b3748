package persistence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedMeta reports a stored list value that is not a serialized
// array of the expected element type.
var ErrMalformedMeta = errors.New("persistence: malformed meta value")

// Lists are stored in the host's native array serialization, e.g.
// a:2:{i:0;s:6:"editor";i:1;s:6:"author";} and a:1:{i:0;i:7;}.

func encodeStringList(values []string) string {
	var b strings.Builder
	b.WriteString("a:")
	b.WriteString(strconv.Itoa(len(values)))
	b.WriteString(":{")
	for i, v := range values {
		b.WriteString("i:")
		b.WriteString(strconv.Itoa(i))
		b.WriteString(";s:")
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteString(`:"`)
		b.WriteString(v)
		b.WriteString(`";`)
	}
	b.WriteString("}")
	return b.String()
}

func encodeIntList(values []int64) string {
	var b strings.Builder
	b.WriteString("a:")
	b.WriteString(strconv.Itoa(len(values)))
	b.WriteString(":{")
	for i, v := range values {
		b.WriteString("i:")
		b.WriteString(strconv.Itoa(i))
		b.WriteString(";i:")
		b.WriteString(strconv.FormatInt(v, 10))
		b.WriteString(";")
	}
	b.WriteString("}")
	return b.String()
}

func decodeStringList(raw string) ([]string, error) {
	var out []string
	err := decodeList(raw, func(r *phpReader) error {
		v, err := r.readString()
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeIntList(raw string) ([]int64, error) {
	var out []int64
	err := decodeList(raw, func(r *phpReader) error {
		if err := r.expect("i:"); err != nil {
			return err
		}
		v, err := r.readInt(';')
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeList(raw string, readValue func(*phpReader) error) error {
	r := &phpReader{s: raw}
	if err := r.expect("a:"); err != nil {
		return malformed(raw, err)
	}
	n, err := r.readInt(':')
	if err != nil || n < 0 {
		return malformed(raw, errors.New("bad length"))
	}
	if err := r.expect("{"); err != nil {
		return malformed(raw, err)
	}
	for i := int64(0); i < n; i++ {
		if err := r.skipKey(); err != nil {
			return malformed(raw, err)
		}
		if err := readValue(r); err != nil {
			return malformed(raw, err)
		}
	}
	if err := r.expect("}"); err != nil {
		return malformed(raw, err)
	}
	if r.pos != len(r.s) {
		return malformed(raw, errors.New("trailing data"))
	}
	return nil
}

func malformed(raw string, cause error) error {
	if len(raw) > 64 {
		raw = raw[:64] + "..."
	}
	return fmt.Errorf("%w: %v (%q)", ErrMalformedMeta, cause, raw)
}

type phpReader struct {
	s   string
	pos int
}

func (r *phpReader) expect(lit string) error {
	if !strings.HasPrefix(r.s[r.pos:], lit) {
		return fmt.Errorf("expected %q at %d", lit, r.pos)
	}
	r.pos += len(lit)
	return nil
}

func (r *phpReader) readInt(term byte) (int64, error) {
	end := strings.IndexByte(r.s[r.pos:], term)
	if end < 0 {
		return 0, fmt.Errorf("unterminated integer at %d", r.pos)
	}
	v, err := strconv.ParseInt(r.s[r.pos:r.pos+end], 10, 64)
	if err != nil {
		return 0, err
	}
	r.pos += end + 1
	return v, nil
}

// readString reads s:<len>:"<bytes>"; where len counts bytes.
func (r *phpReader) readString() (string, error) {
	if err := r.expect("s:"); err != nil {
		return "", err
	}
	n, err := r.readInt(':')
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", errors.New("negative string length")
	}
	if err := r.expect(`"`); err != nil {
		return "", err
	}
	if int64(len(r.s)-r.pos) < n {
		return "", errors.New("string overruns value")
	}
	v := r.s[r.pos : r.pos+int(n)]
	r.pos += int(n)
	if err := r.expect(`";`); err != nil {
		return "", err
	}
	return v, nil
}

func (r *phpReader) skipKey() error {
	if strings.HasPrefix(r.s[r.pos:], "i:") {
		r.pos += 2
		_, err := r.readInt(';')
		return err
	}
	_, err := r.readString()
	return err
}
