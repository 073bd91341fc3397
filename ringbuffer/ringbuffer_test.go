package ringbuffer

import "testing"

func fill(rb *RingBuffer, b byte) {
	w := rb.WritePtr()
	for i := range w {
		w[i] = b
	}
	rb.WriteAdvance()
}

func TestNewRejectsInvalidSizes(t *testing.T) {
	if _, err := New(0, 4); err == nil {
		t.Fatal("expected error for blockSize 0")
	}
	if _, err := New(4, 0); err == nil {
		t.Fatal("expected error for capacity 0")
	}
}

func TestOverwriteOnFull(t *testing.T) {
	rb, err := New(1, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		fill(rb, byte(i))
	}
	if rb.NumBlocks() != 4 {
		t.Fatalf("expected 4 retained blocks, got %d", rb.NumBlocks())
	}
	b, err := rb.GetPtr(0)
	if err != nil {
		t.Fatal(err)
	}
	if b[0] != 1 {
		t.Fatalf("expected oldest retained block to be value 1, got %d", b[0])
	}
}

func TestCapacityPlusKWrites(t *testing.T) {
	const capacity = 8
	rb, err := New(1, capacity)
	if err != nil {
		t.Fatal(err)
	}
	k := 3
	for i := 0; i < capacity+k; i++ {
		fill(rb, byte(i))
	}
	if rb.NumBlocks() != capacity {
		t.Fatalf("expected %d blocks, got %d", capacity, rb.NumBlocks())
	}
	b, err := rb.GetPtr(0)
	if err != nil {
		t.Fatal(err)
	}
	if int(b[0]) != k {
		t.Fatalf("expected oldest retained value %d, got %d", k, b[0])
	}
}

func TestResetEmptiesBuffer(t *testing.T) {
	rb, _ := New(4, 4)
	fill(rb, 1)
	fill(rb, 2)
	rb.Reset()
	if rb.NumBlocks() != 0 {
		t.Fatalf("expected 0 blocks after reset, got %d", rb.NumBlocks())
	}
	if rb.Available() {
		t.Fatal("expected Available() == false after reset")
	}
}

func TestRoundTripOnEmptyBuffer(t *testing.T) {
	rb, _ := New(4, 4)
	fill(rb, 42)
	b, ok := rb.ReadPtr()
	if !ok {
		t.Fatal("expected a readable block")
	}
	if b[0] != 42 {
		t.Fatalf("expected 42, got %d", b[0])
	}
	if _, ok := rb.ReadPtr(); ok {
		t.Fatal("expected buffer to be empty after single read")
	}
}

func TestFIFOOrderWithoutOverflow(t *testing.T) {
	rb, _ := New(1, 8)
	for i := 0; i < 5; i++ {
		fill(rb, byte(i))
	}
	for i := 0; i < 5; i++ {
		b, ok := rb.ReadPtr()
		if !ok {
			t.Fatalf("expected block %d to be readable", i)
		}
		if int(b[0]) != i {
			t.Fatalf("expected FIFO order value %d, got %d", i, b[0])
		}
	}
}

func TestGetPtrIndexOutOfRange(t *testing.T) {
	rb, _ := New(1, 4)
	fill(rb, 1)
	if _, err := rb.GetPtr(1); err == nil {
		t.Fatal("expected out-of-range error")
	}
	if _, err := rb.GetPtr(-1); err == nil {
		t.Fatal("expected out-of-range error for negative index")
	}
}

func TestPeekPtrDoesNotAdvance(t *testing.T) {
	rb, _ := New(1, 4)
	fill(rb, 9)
	before := rb.NumBlocks()
	_ = rb.PeekPtr()
	if rb.NumBlocks() != before {
		t.Fatal("PeekPtr must not change retained count")
	}
	if rb.PeekPtr()[0] != 9 {
		t.Fatal("PeekPtr must return the latest written block")
	}
}

func TestBlockChecksumSurvivesTransit(t *testing.T) {
	rb, _ := New(16, 4)
	w := rb.WritePtr()
	copy(w, []byte("0123456789abcdef"))
	rb.WriteAdvance()

	sum, err := rb.BlockChecksum(0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := rb.GetPtr(0)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "0123456789abcdef" {
		t.Fatalf("block contents changed in transit: %q", b)
	}
	if sum == 0 {
		t.Fatal("expected a non-zero checksum for non-empty data")
	}
}

func TestPreviewRecordSaveScenario(t *testing.T) {
	// §8 scenario 1: 1024x1024 16bpp frames, capacity 8, 10 writes.
	const blockSize = 2 * 1024 * 1024
	rb, err := New(blockSize, 8)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 10; i++ {
		w := rb.WritePtr()
		w[0] = byte(i)
		rb.WriteAdvance()
	}
	if rb.NumBlocks() != 8 {
		t.Fatalf("expected 8 retained blocks, got %d", rb.NumBlocks())
	}
	oldest, err := rb.GetPtr(0)
	if err != nil {
		t.Fatal(err)
	}
	if oldest[0] != 3 {
		t.Fatalf("expected get_ptr(0) to be the 3rd write, got %d", oldest[0])
	}
	newest, err := rb.GetPtr(7)
	if err != nil {
		t.Fatal(err)
	}
	if newest[0] != 10 {
		t.Fatalf("expected get_ptr(7) to be the 10th write, got %d", newest[0])
	}
}
