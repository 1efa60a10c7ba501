package service

import "testing"

func TestStreamGuardSingleFlight(t *testing.T) {
	g := newStreamGuards()

	if !g.acquire("conv-1") {
		t.Fatal("first acquire should succeed")
	}
	if g.acquire("conv-1") {
		t.Fatal("second acquire on the same conversation should fail")
	}
	if !g.acquire("conv-2") {
		t.Fatal("acquire on a different conversation should succeed")
	}

	g.release("conv-1")
	if !g.acquire("conv-1") {
		t.Fatal("acquire after release should succeed")
	}
}
