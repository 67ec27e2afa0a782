package oshash

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math/rand"
	"testing"

	"subflow/internal/services"
)

// naiveHash recomputes the movie hash directly from the full byte slice.
func naiveHash(data []byte) uint64 {
	size := len(data)
	sum := uint64(size)
	window := func(lo, hi int) {
		for i := lo; i < hi; i += 8 {
			var word [8]byte
			copy(word[:], data[i:min(i+8, hi)])
			sum += binary.LittleEndian.Uint64(word[:])
		}
	}
	head := min(size, windowSize)
	window(0, head)
	tail := max(0, size-windowSize)
	window(tail, size)
	return sum
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func TestHashFileMatchesNaive(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, size := range []int{1, 100, 50 * 1024, windowSize, windowSize + 7, 2*windowSize - 1, 2 * windowSize, 300 * 1024} {
		data := make([]byte, size)
		rng.Read(data)
		got, err := HashFile(context.Background(), bytes.NewReader(data), int64(size))
		if err != nil {
			t.Fatalf("HashFile(size=%d): %v", size, err)
		}
		if want := naiveHash(data); uint64(got) != want {
			t.Fatalf("HashFile(size=%d) = %016x, want %016x", size, got, want)
		}
	}
}

func TestHashFileIgnoresMiddleBytes(t *testing.T) {
	data := make([]byte, 300*1024)
	rand.New(rand.NewSource(11)).Read(data)

	before, err := HashFile(context.Background(), bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}

	// Flip bytes well inside the file, outside both 64 KiB windows.
	mutated := append([]byte(nil), data...)
	for i := windowSize + 512; i < windowSize+1024; i++ {
		mutated[i] ^= 0xff
	}
	after, err := HashFile(context.Background(), bytes.NewReader(mutated), int64(len(mutated)))
	if err != nil {
		t.Fatal(err)
	}
	if before != after {
		t.Fatalf("middle bytes changed the hash: %v != %v", before, after)
	}
}

func TestHashFileDependsOnEdges(t *testing.T) {
	data := make([]byte, 300*1024)
	rand.New(rand.NewSource(13)).Read(data)

	base, _ := HashFile(context.Background(), bytes.NewReader(data), int64(len(data)))

	head := append([]byte(nil), data...)
	head[10] ^= 0x01
	headHash, _ := HashFile(context.Background(), bytes.NewReader(head), int64(len(head)))
	if headHash == base {
		t.Fatal("changing the first window did not change the hash")
	}

	tail := append([]byte(nil), data...)
	tail[len(tail)-10] ^= 0x01
	tailHash, _ := HashFile(context.Background(), bytes.NewReader(tail), int64(len(tail)))
	if tailHash == base {
		t.Fatal("changing the last window did not change the hash")
	}
}

func TestSmallFilesRarelyCollide(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	seen := make(map[Fingerprint]struct{}, 64)
	for i := 0; i < 64; i++ {
		data := make([]byte, 50*1024)
		rng.Read(data)
		fp, err := HashFile(context.Background(), bytes.NewReader(data), int64(len(data)))
		if err != nil {
			t.Fatal(err)
		}
		if _, dup := seen[fp]; dup {
			t.Fatalf("collision among random 50 KiB inputs at iteration %d", i)
		}
		seen[fp] = struct{}{}
	}
}

func TestHashFileRejectsEmpty(t *testing.T) {
	_, err := HashFile(context.Background(), bytes.NewReader(nil), 0)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty input, got %v", err)
	}
}

func TestHashFileCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	data := make([]byte, 2*windowSize)
	_, err := HashFile(ctx, bytes.NewReader(data), int64(len(data)))
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected IO error on cancelled context, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
}

type failingReader struct{}

func (failingReader) ReadAt([]byte, int64) (int, error) {
	return 0, errors.New("device detached")
}

func TestHashFileReadFailure(t *testing.T) {
	_, err := HashFile(context.Background(), failingReader{}, 2*windowSize)
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected IO error, got %v", err)
	}
}

func TestFingerprintString(t *testing.T) {
	if got := Fingerprint(0x2a).String(); got != "000000000000002a" {
		t.Fatalf("Fingerprint.String() = %q", got)
	}
}

func TestHashSubtitleText(t *testing.T) {
	a := HashSubtitleText([]byte("1\n00:00:01,000 --> 00:00:02,000\nHello\n"))
	b := HashSubtitleText([]byte("1\n00:00:01,000 --> 00:00:02,000\nHello\n"))
	c := HashSubtitleText([]byte("different"))
	if a != b {
		t.Fatal("subtitle fingerprint is not deterministic")
	}
	if a == c {
		t.Fatal("distinct content produced the same fingerprint")
	}
	if len(a) != 32 {
		t.Fatalf("expected 32-char md5 hex, got %d chars", len(a))
	}
}
