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
	"compress/gzip"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// NewContentDecoder wraps r in a decompressing reader selected by an HTTP
// content-coding or transfer-coding name (e.g. from Content-Encoding or a
// Transfer-Encoding list element). Unknown codings, and "identity", pass r
// through unchanged: per §4.8 this is a deliberate, observable leniency, not
// an error.
func NewContentDecoder(coding string, r io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(coding)) {
	case "gzip", "x-gzip":
		return gzip.NewReader(r)
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	default:
		return r, nil
	}
}

// NewContentEncoder wraps w in a compressing writer selected by coding name,
// for HttpMessageWriter's symmetric encode-on-write path. Unknown codings
// and "identity" pass w through, returned as a no-op io.WriteCloser.
func NewContentEncoder(coding string, w io.Writer) (io.WriteCloser, error) {
	switch strings.ToLower(strings.TrimSpace(coding)) {
	case "gzip", "x-gzip":
		return gzip.NewWriter(w), nil
	case "zstd":
		return zstd.NewWriter(w)
	default:
		return nopWriteCloser{w}, nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// firstRecognizedCoding returns the first coding in codings (a
// comma-separated, possibly multi-valued list as returned by
// HeaderMap.GetList), skipping "identity" and "chunked" (chunked is handled by
// ChunkedReader, never by the content-coding layer). The returned coding is
// not checked against NewContentDecoder/NewContentEncoder: an unknown one is
// returned as well, the decoder then passes the body through unchanged, and
// the codings after it are not tried. Per §4.8, when more than one coding is
// present only the first is applied; this is the second of the two
// deliberate leniencies in the HTTP codec.
func firstRecognizedCoding(codings []string) (string, bool) {
	for _, c := range codings {
		lc := strings.ToLower(strings.TrimSpace(c))
		if lc == "" || lc == "identity" || lc == "chunked" {
			continue
		}
		return lc, true
	}
	return "", false
}
