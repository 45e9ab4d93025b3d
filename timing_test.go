package ipv4acd

import (
	"testing"
	"time"
)

func TestJitterZeroSpread(t *testing.T) {
	r := func(n int64) int64 { t.Fatalf("rand source should not be consulted when spread is zero"); return 0 }

	if want, got := time.Second, jitter(r, time.Second, 0); want != got {
		t.Fatalf("unexpected delay: %v != %v", want, got)
	}
}

func TestJitterAddsDraw(t *testing.T) {
	var tests = []struct {
		desc   string
		base   time.Duration
		spread time.Duration
		draw   int64
		want   time.Duration
	}{
		{
			desc:   "draw at lower bound",
			base:   time.Second,
			spread: time.Second,
			draw:   0,
			want:   time.Second,
		},
		{
			desc:   "draw mid-range",
			base:   time.Second,
			spread: time.Second,
			draw:   int64(500 * time.Millisecond),
			want:   time.Second + 500*time.Millisecond,
		},
	}

	for i, tt := range tests {
		r := func(n int64) int64 { return tt.draw }

		if want, got := tt.want, jitter(r, tt.base, tt.spread); want != got {
			t.Fatalf("[%02d] test %q, unexpected delay: %v != %v", i, tt.desc, want, got)
		}
	}
}

func TestDefaultRandSourceBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		got := defaultRandSource(10)
		if got < 0 || got >= 10 {
			t.Fatalf("draw %d out of [0, 10) bounds: %d", i, got)
		}
	}
}
