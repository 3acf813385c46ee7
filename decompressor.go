/*
 * Copyright 2021 National Library of Norway.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *       http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package gowarc

import (
	"bufio"
	"compress/gzip"
	"io"

	"github.com/klauspost/compress/zstd"
)

var (
	gzipMagic       = []byte{0x1f, 0x8b}
	zstdMagic       = []byte{0x28, 0xb5, 0x2f, 0xfd}
	zstdLegacyMagic = []byte{0x37, 0xa4, 0x30, 0xec}
)

// compressionFormat identifies the framing a WARC stream's next record is
// encoded with, sniffed from the leading bytes at the current read offset.
type compressionFormat int8

const (
	compressionNone compressionFormat = iota
	compressionGzip
	compressionZstd
)

// sniffCompression peeks at the next few bytes available from r without
// consuming them, returning which compression framing (if any) the stream
// at the current position is using.
func sniffCompression(r *bufio.Reader) (compressionFormat, error) {
	b, err := r.Peek(4)
	if err != nil && err != io.EOF {
		return compressionNone, err
	}
	if len(b) >= 2 && b[0] == gzipMagic[0] && b[1] == gzipMagic[1] {
		return compressionGzip, nil
	}
	if len(b) >= 4 && b[0] == zstdMagic[0] && b[1] == zstdMagic[1] && b[2] == zstdMagic[2] && b[3] == zstdMagic[3] {
		return compressionZstd, nil
	}
	if len(b) >= 4 && b[0] == zstdLegacyMagic[0] && b[1] == zstdLegacyMagic[1] && b[2] == zstdLegacyMagic[2] && b[3] == zstdLegacyMagic[3] {
		return compressionZstd, nil
	}
	return compressionNone, nil
}

// Decompressor wraps the per-record member framing used by compressed WARC
// files: one independent gzip member, or one zstd frame, per record, so
// that records remain individually seekable.
type Decompressor struct {
	gz *gzip.Reader
	zr *zstd.Decoder
	// zbr buffers the zstd decoder's output once zstd framing is detected.
	// The zstd decoder reads ahead of frame boundaries in the source, so the
	// source cannot be re-sniffed between records; instead the concatenated
	// frames are decoded as one continuous stream behind this reader.
	zbr *bufio.Reader
}

// NewDecompressor creates a Decompressor ready to wrap successive record
// members read from the same underlying stream.
func NewDecompressor() (*Decompressor, error) {
	return &Decompressor{}, nil
}

// Next returns a reader over the next record, transparently decompressing
// it if it is gzip- or zstd-framed, or returning r itself if the stream is
// uncompressed.
func (d *Decompressor) Next(r *bufio.Reader) (io.Reader, compressionFormat, error) {
	if d.zbr != nil {
		return d.zbr, compressionZstd, nil
	}
	format, err := sniffCompression(r)
	if err != nil {
		return nil, format, err
	}
	switch format {
	case compressionGzip:
		// r is an io.ByteReader, so the gzip reader consumes exactly one
		// member from it and the source can be re-sniffed afterwards.
		if d.gz == nil {
			d.gz, err = gzip.NewReader(r)
		} else {
			err = d.gz.Reset(r)
		}
		if err != nil {
			return nil, format, err
		}
		d.gz.Multistream(false)
		return d.gz, format, nil
	case compressionZstd:
		d.zr, err = zstd.NewReader(r)
		if err != nil {
			return nil, format, err
		}
		d.zbr = bufio.NewReader(d.zr.IOReadCloser())
		return d.zbr, format, nil
	default:
		return r, format, nil
	}
}

// Close releases any resources held by the decompressor.
func (d *Decompressor) Close() error {
	var err error
	if d.gz != nil {
		err = d.gz.Close()
	}
	if d.zr != nil {
		d.zr.Close()
	}
	return err
}

// Compressor wraps a writer to produce one independent gzip member per
// record, matching the stream layout Decompressor reads back.
type Compressor struct {
	gz *gzip.Writer
}

// NewCompressor creates a Compressor. Call Next for every record to begin
// its gzip member.
func NewCompressor() *Compressor {
	return &Compressor{gz: gzip.NewWriter(nil)}
}

// Next resets the compressor onto w, returning a writer for the next
// record's member. The caller must Close the returned writer (or call
// Next/Close on the Compressor) to flush the gzip member's footer.
func (c *Compressor) Next(w io.Writer) io.WriteCloser {
	c.gz.Reset(w)
	return c.gz
}
