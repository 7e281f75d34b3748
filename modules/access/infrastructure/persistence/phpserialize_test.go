package persistence

import (
	"errors"
	"reflect"
	"testing"
)

func TestEncodeStringList(t *testing.T) {
	cases := []struct {
		in   []string
		want string
	}{
		{in: nil, want: `a:0:{}`},
		{in: []string{"editor"}, want: `a:1:{i:0;s:6:"editor";}`},
		{in: []string{"editor", "author"}, want: `a:2:{i:0;s:6:"editor";i:1;s:6:"author";}`},
		{in: []string{"café"}, want: `a:1:{i:0;s:5:"café";}`},
		{in: []string{""}, want: `a:1:{i:0;s:0:"";}`},
	}
	for _, tc := range cases {
		if got := encodeStringList(tc.in); got != tc.want {
			t.Fatalf("in=%v got=%s want=%s", tc.in, got, tc.want)
		}
	}
}

func TestEncodeIntList(t *testing.T) {
	if got := encodeIntList([]int64{3, 7}); got != `a:2:{i:0;i:3;i:1;i:7;}` {
		t.Fatalf("got=%s", got)
	}
}

func TestDecodeStringList(t *testing.T) {
	got, err := decodeStringList(`a:2:{i:0;s:6:"editor";i:1;s:6:"author";}`)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !reflect.DeepEqual(got, []string{"editor", "author"}) {
		t.Fatalf("got=%v", got)
	}

	got, err = decodeStringList(`a:1:{i:4;s:9:"say "hi";";}`)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !reflect.DeepEqual(got, []string{`say "hi";`}) {
		t.Fatalf("got=%v", got)
	}

	got, err = decodeStringList(`a:1:{s:1:"k";s:6:"editor";}`)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !reflect.DeepEqual(got, []string{"editor"}) {
		t.Fatalf("got=%v", got)
	}
}

func TestDecodeIntList(t *testing.T) {
	got, err := decodeIntList(`a:2:{i:0;i:3;i:1;i:7;}`)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !reflect.DeepEqual(got, []int64{3, 7}) {
		t.Fatalf("got=%v", got)
	}
}

func TestDecodeList_Malformed(t *testing.T) {
	bad := []string{
		`editor`,
		`s:6:"editor";`,
		`a:x:{}`,
		`a:-1:{}`,
		`a:2:{i:0;s:6:"editor";}`,
		`a:1:{i:0;s:60:"editor";}`,
		`a:1:{i:0;s:6:"editor"}`,
		`a:1:{i:0;i:3;}`,
		`a:0:{}junk`,
		`a:1:{x:0;s:6:"editor";}`,
	}
	for _, in := range bad {
		if _, err := decodeStringList(in); !errors.Is(err, ErrMalformedMeta) {
			t.Fatalf("in=%q err=%v", in, err)
		}
	}
	if _, err := decodeIntList(`a:1:{i:0;s:1:"3";}`); !errors.Is(err, ErrMalformedMeta) {
		t.Fatalf("err=%v", err)
	}
	if _, err := decodeIntList(`a:1:{i:0;i:x;}`); !errors.Is(err, ErrMalformedMeta) {
		t.Fatalf("err=%v", err)
	}
}
