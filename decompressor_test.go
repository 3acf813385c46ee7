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
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_sniffCompression(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  compressionFormat
	}{
		{"gzip magic", []byte{0x1f, 0x8b, 0x08, 0x00}, compressionGzip},
		{"zstd magic", []byte{0x28, 0xb5, 0x2f, 0xfd}, compressionZstd},
		{"zstd legacy magic", []byte{0x37, 0xa4, 0x30, 0xec}, compressionZstd},
		{"plain warc", []byte("WARC/1.1\r\n"), compressionNone},
		{"empty", nil, compressionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sniffCompression(bufio.NewReader(bytes.NewReader(tt.input)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_Decompressor_gzipMemberPerRecord(t *testing.T) {
	// Two independently gzipped members concatenated, as written by
	// Compressor/WarcFileWriter: each Next call must surface exactly one
	// member and leave the source positioned at the next member's magic.
	var stream bytes.Buffer
	c := NewCompressor()
	for _, member := range []string{"first member", "second member"} {
		w := c.Next(&stream)
		_, err := io.WriteString(w, member)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	src := bufio.NewReader(bytes.NewReader(stream.Bytes()))
	d, err := NewDecompressor()
	require.NoError(t, err)
	defer d.Close()

	for _, want := range []string{"first member", "second member"} {
		member, format, err := d.Next(src)
		require.NoError(t, err)
		assert.Equal(t, compressionGzip, format)
		got, err := io.ReadAll(member)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}

	_, err = src.Peek(1)
	assert.ErrorIs(t, err, io.EOF)
}

func Test_Decompressor_zstdConcatenatedFrames(t *testing.T) {
	// Two zstd frames concatenated; zstd is decoded as one continuous
	// stream, so a single Next surfaces the content of both frames.
	var stream bytes.Buffer
	for _, frame := range []string{"first frame|", "second frame"} {
		enc, err := zstd.NewWriter(&stream)
		require.NoError(t, err)
		_, err = io.WriteString(enc, frame)
		require.NoError(t, err)
		require.NoError(t, enc.Close())
	}

	src := bufio.NewReader(bytes.NewReader(stream.Bytes()))
	d, err := NewDecompressor()
	require.NoError(t, err)
	defer d.Close()

	member, format, err := d.Next(src)
	require.NoError(t, err)
	assert.Equal(t, compressionZstd, format)
	got, err := io.ReadAll(member)
	require.NoError(t, err)
	assert.Equal(t, "first frame|second frame", string(got))
}

func Test_Decompressor_rawPassthrough(t *testing.T) {
	src := bufio.NewReader(strings.NewReader("not compressed at all"))
	d, err := NewDecompressor()
	require.NoError(t, err)
	defer d.Close()

	member, format, err := d.Next(src)
	require.NoError(t, err)
	assert.Equal(t, compressionNone, format)
	got, err := io.ReadAll(member)
	require.NoError(t, err)
	assert.Equal(t, "not compressed at all", string(got))
}

func Test_Compressor_outputIsStandardGzip(t *testing.T) {
	var stream bytes.Buffer
	c := NewCompressor()
	w := c.Next(&stream)
	_, err := io.WriteString(w, "payload")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	gz, err := gzip.NewReader(bytes.NewReader(stream.Bytes()))
	require.NoError(t, err)
	got, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}
