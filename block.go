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
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/webaves/webaves/internal/diskbuffer"
)

// Block is the interface used to represent the content of a WARC record as specified by the WARC specification:
// https://iipc.github.io/warc-specifications/specifications/warc-format/warc-1.1/#warc-record-content-block
//
// A Block might be cached or non-cached. Calling RawBytes more than once will fail if the block is not cached.
//
// NOTE: Blocks are not required to be thread safe.
type Block interface {
	// RawBytes returns the bytes of the Block
	RawBytes() (io.Reader, error)
	BlockDigest() string
	IsCached() bool
	Cache() error
}

// PayloadBlock is a Block with a well defined payload.
//
// Ref: https://iipc.github.io/warc-specifications/specifications/warc-format/warc-1.1/#warc-record-payload
type PayloadBlock interface {
	Block
	PayloadBytes() (io.Reader, error)
	PayloadDigest() string
}

// WarcFieldsBlock is a Block whose content is itself a sequence of key/value
// fields (Content-Type: application/warc-fields), used for warcinfo records.
type WarcFieldsBlock interface {
	Block
	WarcFields() *HeaderMap
}

// The readOp constants describe access to RawBytes() or PayloadBytes() on a PayloadBlock(),
// so that RawBytes and PayloadBytes() can check for invalid usage.
type readOp int8

const (
	opInitial      readOp = 0 // Initial value.
	opRawBytes     readOp = 1
	opPayloadBytes readOp = 2
)

var errContentReAccessed = errors.New("gowarc.Block: tried to access content twice")

// genericBlock is the fallback Block implementation, used for any content
// whose Content-Type is not one this package knows how to parse further.
type genericBlock struct {
	rawBytes    io.Reader
	blockDigest *digest
	readOp      readOp
	cached      bool
}

func newGenericBlock(rawBytes io.Reader, blockDigest *digest) *genericBlock {
	return &genericBlock{rawBytes: rawBytes, blockDigest: blockDigest}
}

func (block *genericBlock) IsCached() bool {
	return block.cached
}

// Cache reads the whole of the block's content into an in-memory/on-disk
// buffer, allowing RawBytes and BlockDigest to be called more than once.
func (block *genericBlock) Cache() error {
	if block.cached {
		return nil
	}
	buf := diskbuffer.New()
	r, err := block.RawBytes()
	if err != nil {
		return err
	}
	if _, err := buf.ReadFrom(r); err != nil {
		return err
	}
	if _, err := buf.Seek(0, io.SeekStart); err != nil {
		return err
	}
	block.rawBytes = buf
	block.readOp = opInitial
	block.cached = true
	return nil
}

func (block *genericBlock) RawBytes() (io.Reader, error) {
	if block.cached {
		if s, ok := block.rawBytes.(io.Seeker); ok {
			if _, err := s.Seek(0, io.SeekStart); err != nil {
				return nil, err
			}
		}
		return block.rawBytes, nil
	}
	if block.readOp != opInitial {
		return nil, errContentReAccessed
	}
	block.readOp = opRawBytes
	return io.TeeReader(block.rawBytes, block.blockDigest), nil
}

func (block *genericBlock) BlockDigest() string {
	return block.blockDigest.format()
}

// httpBlock wraps a block whose content is an HTTP/1.x request or response
// message, as used by response, request, resource and conversion records.
// RawBytes/PayloadBytes surface the wire bytes exactly as archived (still
// chunked/content-encoded if the original transfer was); a caller that
// wants the decoded payload instead uses ExtractorDispatcher, which layers
// HttpMessageReader's framing and content-coding logic on top.
type httpBlock struct {
	genericBlock
	httpHeaderBytes []byte
	isRequest       bool
	payloadDigest   *digest
}

// newHttpBlock reads the raw HTTP header lines off reader, up to and
// including the blank line, leaving the unread remainder available as the
// block's payload. The header is not parsed here; Header parses it on
// demand, and isRequest selects whether its start line is parsed as a
// request line or a status line.
func newHttpBlock(reader io.Reader, isRequest bool, blockDigest, payloadDigest *digest) (Block, error) {
	br := bufio.NewReader(reader)
	headerBytes, err := readHttpHeaderBlock(br)
	if err != nil && err != io.EOF {
		return nil, err
	}

	full := io.MultiReader(strings.NewReader(string(headerBytes)), br)
	b := &httpBlock{
		genericBlock:    genericBlock{rawBytes: full, blockDigest: blockDigest},
		httpHeaderBytes: headerBytes,
		isRequest:       isRequest,
		payloadDigest:   payloadDigest,
	}
	return b, nil
}

// Header parses the block's preserved HTTP start line and field block with
// the permissive HeaderParser, returning either a RequestHeader or a
// ResponseHeader as its first value (the other is the zero value).
func (b *httpBlock) Header() (RequestHeader, ResponseHeader, error) {
	br := bufio.NewReader(bytes.NewReader(b.httpHeaderBytes))
	line, err := readBoundedLine(br, maxHttpHeaderLine)
	if err != nil {
		return RequestHeader{}, ResponseHeader{}, err
	}
	raw, err := ReadHeaderBlock(br, maxHttpHeaderLine)
	if err != nil && err != io.EOF {
		return RequestHeader{}, ResponseHeader{}, err
	}
	fields, err := (&HeaderParser{}).Parse(raw)
	if err != nil {
		return RequestHeader{}, ResponseHeader{}, err
	}
	if b.isRequest {
		reqLine, err := parseRequestLine(string(line))
		if err != nil {
			return RequestHeader{}, ResponseHeader{}, &InvalidStartLineError{Line: string(line)}
		}
		return RequestHeader{Line: reqLine, Fields: fields}, ResponseHeader{}, nil
	}
	statusLine, err := parseStatusLine(string(line))
	if err != nil {
		return RequestHeader{}, ResponseHeader{}, &InvalidStartLineError{Line: string(line)}
	}
	return RequestHeader{}, ResponseHeader{Line: statusLine, Fields: fields}, nil
}

const maxHttpHeaderLine = 64 * 1024

// readHttpHeaderBlock reads the start line plus every header line up to and
// including the terminating blank line, returning the bytes exactly as they
// appear on the wire so the block stays byte-identical when re-marshaled.
func readHttpHeaderBlock(r *bufio.Reader) ([]byte, error) {
	var out []byte
	for {
		line, err := r.ReadBytes(LF)
		out = append(out, line...)
		if err != nil {
			if err == io.EOF && len(out) > 0 {
				return out, nil
			}
			return out, err
		}
		if len(line) > maxHttpHeaderLine {
			return out, fmt.Errorf("gowarc: HTTP header line exceeds limit of %d bytes", maxHttpHeaderLine)
		}
		if len(bytes.TrimRight(line, CRLF)) == 0 {
			return out, nil
		}
	}
}

func (b *httpBlock) RawBytes() (io.Reader, error) {
	if b.cached {
		return b.genericBlock.RawBytes()
	}
	if b.readOp != opInitial {
		return nil, errContentReAccessed
	}
	b.readOp = opRawBytes
	return io.TeeReader(b.rawBytes, b.blockDigest), nil
}

// PayloadBytes returns a reader positioned at the HTTP message body, i.e.
// the bytes following the blank line that ends the HTTP header block.
func (b *httpBlock) PayloadBytes() (io.Reader, error) {
	raw, err := b.RawBytes()
	if err != nil {
		return nil, err
	}
	if _, err := io.CopyN(io.Discard, raw, int64(len(b.httpHeaderBytes))); err != nil && err != io.EOF {
		return nil, err
	}
	return io.TeeReader(raw, b.payloadDigest), nil
}

func (b *httpBlock) PayloadDigest() string {
	return b.payloadDigest.format()
}

// warcFieldsBlock is the Block implementation for application/warc-fields
// content, used by warcinfo records and crawl-metadata records.
type warcFieldsBlock struct {
	genericBlock
	fields *HeaderMap
}

// newWarcFieldsBlock parses reader as a sequence of "Name: Value" lines
// using the same permissive syntax as a WARC record header block. The
// block's content is always cached, and RawBytes surfaces the original
// bytes, not a re-rendering of the parsed fields, so Content-Length and
// digests stay consistent for blocks with LF-only line endings.
func newWarcFieldsBlock(reader io.Reader, blockDigest *digest) (Block, error) {
	buf := diskbuffer.New()
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, err
	}
	if _, err := buf.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	raw, err := ReadHeaderBlock(bufio.NewReader(buf), maxHttpHeaderLine)
	if err != nil && err != io.EOF {
		return nil, err
	}
	fields, err := (&HeaderParser{}).Parse(raw)
	if err != nil {
		return nil, err
	}

	if _, err := buf.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.Copy(blockDigest, buf); err != nil {
		return nil, err
	}
	if _, err := buf.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	return &warcFieldsBlock{
		genericBlock: genericBlock{rawBytes: buf, blockDigest: blockDigest, cached: true},
		fields:       fields,
	}, nil
}

func (b *warcFieldsBlock) WarcFields() *HeaderMap {
	return b.fields
}

// revisitBlock is the Block implementation for revisit records, whose
// content, if any present at all, is a truncated copy of the original
// response's header, without a distinct payload.
type revisitBlock struct {
	genericBlock
}

func newRevisitBlock(reader io.Reader, blockDigest *digest) (Block, error) {
	return &revisitBlock{genericBlock: genericBlock{rawBytes: reader, blockDigest: blockDigest}}, nil
}
