package videotask

import "testing"

func TestLocalPath(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"https://img.test/a.png", ""},
		{"/data/images/a.png", "/data/images/a.png"},
		{"file:///data/images/a.png", "/data/images/a.png"},
	}
	for _, tc := range cases {
		if got := localPath(tc.in); got != tc.want {
			t.Errorf("localPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
