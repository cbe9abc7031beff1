package system

import (
	"testing"
	"time"
)

func TestClockNowUTCByDefault(t *testing.T) {
	t.Parallel()

	clk := New(nil)

	before := time.Now().Add(-time.Second)
	got := clk.Now()
	after := time.Now().Add(time.Second)

	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
	if got.Before(before) || got.After(after) {
		t.Fatalf("expected %v to be between %v and %v", got, before, after)
	}
}

func TestClockNowUsesLocation(t *testing.T) {
	t.Parallel()

	tokyo := time.FixedZone("JST", 9*60*60)
	clk := New(tokyo)
	if got := clk.Now().Location(); got != tokyo {
		t.Fatalf("expected JST location, got %v", got)
	}
	if clk.Location() != tokyo {
		t.Fatalf("expected Location() to return JST, got %v", clk.Location())
	}
}

func TestClockNowMonotonic(t *testing.T) {
	t.Parallel()

	clk := New(nil)
	first := clk.Now()
	second := clk.Now()
	if second.Before(first) {
		t.Fatalf("expected second call %v to be >= first %v", second, first)
	}
}
