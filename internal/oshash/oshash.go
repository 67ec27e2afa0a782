// Package oshash computes the OpenSubtitles 64-bit movie hash and content
// fingerprints for subtitle text.
//
// The movie hash is file size plus the sum, with 64-bit wraparound, of the
// first and last 64 KiB of the file read as little-endian 64-bit words.
// Files smaller than 128 KiB have overlapping windows, so their content is
// counted up to twice. Reads are chunked and honor context cancellation
// between chunks.
package oshash

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"subflow/internal/services"
)

const (
	windowSize = 64 * 1024
	readChunk  = 16 * 1024
)

// Fingerprint is a 64-bit content hash. The zero value is never a valid
// hash result; hashing failures return an error instead.
type Fingerprint uint64

// String renders the fingerprint the way the subtitle database expects it:
// 16 lowercase hex digits, zero padded.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// HashVideo opens and hashes a video file on disk.
func HashVideo(ctx context.Context, path string) (Fingerprint, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, services.Wrap(services.ErrIO, "oshash", "hash_video", "open video file", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return 0, 0, services.Wrap(services.ErrIO, "oshash", "hash_video", "stat video file", err)
	}
	fp, err := HashFile(ctx, f, st.Size())
	if err != nil {
		return 0, 0, err
	}
	return fp, st.Size(), nil
}

// HashFile computes the movie hash over an open reader of known size.
func HashFile(ctx context.Context, r io.ReaderAt, size int64) (Fingerprint, error) {
	if size <= 0 {
		return 0, services.Wrap(services.ErrValidation, "oshash", "hash_file", "refusing to hash an empty file", nil)
	}

	sum := uint64(size)

	head := windowSize
	if size < int64(head) {
		head = int(size)
	}
	headSum, err := windowChecksum(ctx, r, 0, int64(head))
	if err != nil {
		return 0, err
	}
	sum += headSum

	tailOff := size - windowSize
	if tailOff < 0 {
		tailOff = 0
	}
	tailSum, err := windowChecksum(ctx, r, tailOff, size-tailOff)
	if err != nil {
		return 0, err
	}
	sum += tailSum

	return Fingerprint(sum), nil
}

// HashSubtitleText fingerprints subtitle content for duplicate checks.
func HashSubtitleText(data []byte) string {
	digest := md5.Sum(data)
	return hex.EncodeToString(digest[:])
}

// windowChecksum sums one window in readChunk slices, checking for
// cancellation before each read.
func windowChecksum(ctx context.Context, r io.ReaderAt, offset, length int64) (uint64, error) {
	buf := make([]byte, readChunk)
	var sum uint64
	for length > 0 {
		if err := ctx.Err(); err != nil {
			return 0, services.Wrap(services.ErrIO, "oshash", "hash_file", "hashing cancelled", err)
		}
		n := int64(len(buf))
		if length < n {
			n = length
		}
		read, err := r.ReadAt(buf[:n], offset)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, services.Wrap(services.ErrIO, "oshash", "hash_file", "read hash window", err)
		}
		if int64(read) < n {
			return 0, services.Wrap(services.ErrIO, "oshash", "hash_file", "short read in hash window", io.ErrUnexpectedEOF)
		}
		sum += wordSum(buf[:n])
		offset += n
		length -= n
	}
	return sum, nil
}

// wordSum adds the chunk as little-endian 64-bit words. A trailing partial
// word is zero padded, which in little-endian terms reads the remaining
// bytes as a smaller integer.
func wordSum(chunk []byte) uint64 {
	var sum uint64
	i := 0
	for ; i+8 <= len(chunk); i += 8 {
		sum += binary.LittleEndian.Uint64(chunk[i : i+8])
	}
	if i < len(chunk) {
		var last [8]byte
		copy(last[:], chunk[i:])
		sum += binary.LittleEndian.Uint64(last[:])
	}
	return sum
}
