// SPDX-License-Identifier: Unlicense OR MIT

package gl

import "testing"

func TestParseGLVersion(t *testing.T) {
	tests := []struct {
		in   string
		want [2]int
		err  bool
	}{
		{"OpenGL ES 3.2 V@415.0", [2]int{3, 2}, false},
		{"OpenGL ES 2.0 Mesa 21.0", [2]int{2, 0}, false},
		{"4.6 (Core Profile) Mesa", [2]int{4, 6}, false},
		{"garbage", [2]int{}, true},
	}
	for _, test := range tests {
		got, err := ParseGLVersion(test.in)
		if (err != nil) != test.err {
			t.Errorf("ParseGLVersion(%q) error = %v, want error %v", test.in, err, test.err)
			continue
		}
		if !test.err && got != test.want {
			t.Errorf("ParseGLVersion(%q) = %v, want %v", test.in, got, test.want)
		}
	}
}

func TestBytesView(t *testing.T) {
	if b := BytesView(nil); b != nil {
		t.Errorf("BytesView(nil) = %v, want nil", b)
	}
	b := BytesView([]float32{1, 2, 3})
	if len(b) != 12 {
		t.Fatalf("len(BytesView) = %d, want 12", len(b))
	}
}
