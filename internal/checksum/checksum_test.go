package checksum

import "testing"

func TestSum(t *testing.T) {
	a := Sum([]byte("nodes: [{id: a}]\n"))
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64", len(a))
	}
	if a == Sum([]byte("nodes: [{id: b}]\n")) {
		t.Error("different content should differ")
	}
	if a != Sum([]byte("nodes: [{id: a}]\r\n")) {
		t.Error("line endings should not change the checksum")
	}
}
