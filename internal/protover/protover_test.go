package protover

import "testing"

func TestFromString(t *testing.T) {
	cases := []struct {
		in   string
		want Version
	}{
		{"", Unknown},
		{"4.0.0", Unknown},
		{"5.0.0", V5},
		{"6.0.0", V6},
		{"6.0.4", V6},
		{"6.0.5", V6_0_5},
		{"6.0.13", V6_0_5},
		{"6.0.14", V6_0_14},
		{"6.0.14a", V6_0_14},
		{"7.0.0", V7},
		{"7.0.14.2", V7},
	}

	for _, c := range cases {
		if got := FromString(c.in); got != c.want {
			t.Errorf("FromString(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestOrdering(t *testing.T) {
	if !(Unknown < V5 && V5 < V6 && V6 < V6_0_5 && V6_0_5 < V6_0_14 && V6_0_14 < V7) {
		t.Fatal("version enum is not monotonically ordered")
	}
}
