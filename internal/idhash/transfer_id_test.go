package idhash

import "testing"

func TestComputeTransferID(t *testing.T) {
	id1 := ComputeTransferID("senderA", "recipientB", "1000", 1, 1_700_000_000_000)
	id2 := ComputeTransferID("senderA", "recipientB", "1000", 1, 1_700_000_000_000)

	if id1 != id2 {
		t.Error("same inputs must produce the same ID")
	}
	if len(id1) != 64 {
		t.Errorf("ID length = %d, want 64", len(id1))
	}

	// Any input change produces a different ID.
	variants := []string{
		ComputeTransferID("senderX", "recipientB", "1000", 1, 1_700_000_000_000),
		ComputeTransferID("senderA", "recipientX", "1000", 1, 1_700_000_000_000),
		ComputeTransferID("senderA", "recipientB", "1001", 1, 1_700_000_000_000),
		ComputeTransferID("senderA", "recipientB", "1000", 2, 1_700_000_000_000),
		ComputeTransferID("senderA", "recipientB", "1000", 1, 1_700_000_000_001),
	}
	for i, v := range variants {
		if v == id1 {
			t.Errorf("variant %d collided with base ID", i)
		}
	}
}

func TestComputeChangeID(t *testing.T) {
	id := ComputeChangeID("FEES", "ownerAddr", "", 1_700_000_000_000)
	if len(id) != 64 {
		t.Errorf("ID length = %d, want 64", len(id))
	}
	if id == ComputeChangeID("LIMITS", "ownerAddr", "", 1_700_000_000_000) {
		t.Error("different kinds must produce different IDs")
	}
}
