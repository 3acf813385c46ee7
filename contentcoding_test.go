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
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ContentDecoder_roundtrip(t *testing.T) {
	for _, coding := range []string{"gzip", "zstd"} {
		t.Run(coding, func(t *testing.T) {
			var buf bytes.Buffer
			enc, err := NewContentEncoder(coding, &buf)
			require.NoError(t, err)
			_, err = io.WriteString(enc, "some body content")
			require.NoError(t, err)
			require.NoError(t, enc.Close())

			dec, err := NewContentDecoder(coding, bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			got, err := io.ReadAll(dec)
			require.NoError(t, err)
			assert.Equal(t, "some body content", string(got))
		})
	}
}

func Test_ContentDecoder_unknownCodingPassesThrough(t *testing.T) {
	dec, err := NewContentDecoder("br", strings.NewReader("opaque bytes"))
	require.NoError(t, err)
	got, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, "opaque bytes", string(got))
}

func Test_firstRecognizedCoding(t *testing.T) {
	tests := []struct {
		name    string
		codings []string
		want    string
		wantOk  bool
	}{
		{"empty", nil, "", false},
		{"identity only", []string{"identity"}, "", false},
		{"chunked skipped", []string{"chunked"}, "", false},
		{"gzip after chunked", []string{"chunked", "gzip"}, "gzip", true},
		{"first of several", []string{"gzip", "zstd"}, "gzip", true},
		{"unknown still surfaced", []string{"br"}, "br", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := firstRecognizedCoding(tt.codings)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_HttpMessageReader_gzipContentEncoding(t *testing.T) {
	var body bytes.Buffer
	gz := gzip.NewWriter(&body)
	_, err := io.WriteString(gz, "the real payload")
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	var msg bytes.Buffer
	msg.WriteString("HTTP/1.1 200 OK\r\n")
	msg.WriteString("Content-Encoding: gzip\r\n")
	msg.WriteString("Content-Length: " + strconv.Itoa(body.Len()) + "\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	m := NewHttpMessageReader(bufio.NewReader(bytes.NewReader(msg.Bytes())), ZeroNineDisallow)
	_, err = m.BeginResponse(nil)
	require.NoError(t, err)

	r, err := m.ReadBody()
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "the real payload", string(got))
}
