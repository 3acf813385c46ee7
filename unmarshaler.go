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
	"io"
	"strconv"
	"strings"

	"github.com/webaves/webaves/pkg/countingreader"
)

// Unmarshaler is the interface that wraps the Unmarshal function.
//
// Unmarshal reads one record from b, returning the record, the number of
// bytes consumed from b, and a Validation describing any non-fatal spec
// violations found, depending on the configured error policies.
type Unmarshaler interface {
	Unmarshal(b *bufio.Reader) (WarcRecord, int64, *Validation, error)
}

type unmarshaler struct {
	opts *warcRecordOptions
	dec  *Decompressor
}

// NewUnmarshaler creates an Unmarshaler configured by opts.
func NewUnmarshaler(opts ...WarcRecordOption) *unmarshaler {
	o := newOptions(opts...)
	dec, _ := NewDecompressor()
	return &unmarshaler{opts: o, dec: dec}
}

func (u *unmarshaler) Unmarshal(b *bufio.Reader) (WarcRecord, int64, *Validation, error) {
	validation := &Validation{}
	pos := &position{}
	var offset int64

	member, format, err := u.dec.Next(b)
	if err != nil {
		return nil, offset, validation, err
	}
	r, ok := member.(*bufio.Reader)
	if !ok {
		r = bufio.NewReader(member)
	}

	// Find WARC version line
	l, err := r.ReadBytes('\n')
	if err != nil {
		return nil, offset, validation, err
	}
	offset += int64(len(l))
	trimmed := strings.TrimRight(string(l), SPHTCRLF)
	if !strings.HasPrefix(trimmed, "WARC/0.") && !strings.HasPrefix(trimmed, "WARC/1.") {
		return nil, offset, validation, &UnknownFormatError{Line: trimmed}
	}
	version := resolveRecordVersion(strings.TrimPrefix(trimmed, "WARC/"))

	// Parse WARC header block. ReadHeaderBlock also consumes the empty line
	// separating the header from the block, which the returned bytes do not
	// include.
	headerBytes, err := ReadHeaderBlock(r, 1024*1024)
	offset += int64(len(headerBytes)) + int64(len(CRLF))
	if err != nil {
		switch u.opts.errSyntax {
		case ErrIgnore:
		case ErrWarn:
			validation.addError(NewWrappedSyntaxError("unable to read record header", pos, err))
		case ErrFail:
			return nil, offset, validation, NewWrappedSyntaxError("unable to read record header", pos, err)
		}
	}

	headers, perr := (&HeaderParser{}).Parse(headerBytes)
	if perr != nil {
		switch u.opts.errSyntax {
		case ErrIgnore:
		case ErrWarn:
			validation.addError(perr)
		case ErrFail:
			return nil, offset, validation, NewWrappedSyntaxError("malformed header", pos, perr)
		}
	}

	recordType, err := validateHeader(headers, version, validation, u.opts)
	if err != nil {
		return nil, offset, validation, err
	}

	record := newRecord(u.opts, version)
	record.headers = headers
	record.recordType = recordType

	length, _ := strconv.ParseInt(record.headers.Get(ContentLength), 10, 64)
	recordID := record.headers.Get(WarcRecordID)
	footerOffset := offset + length

	record.metadata = &WarcHeaderMetadata{
		VersionText: version.txt,
		VersionRaw:  append([]byte(nil), l...),
		Fields:      headers,
		HeaderRaw:   append([]byte(nil), headerBytes...),
		BlockLength: length,
	}

	c2 := countingreader.NewLimited(r, length)
	record.closer = func() error {
		if _, err := io.Copy(io.Discard, c2); err != nil {
			return err
		}
		if c2.N() != length {
			return &WrongBlockLengthError{RecordID: recordID, Want: length, Got: c2.N()}
		}
		footerLen, ferr := readRecordFooter(r, footerOffset)
		record.footerLen = footerLen
		if ferr != nil {
			return ferr
		}
		if format == compressionGzip {
			// Read the member through to EOF so the gzip trailer is consumed
			// from the source before the next record is sniffed. A record is
			// exactly one member, so this normally discards nothing.
			if _, err := io.Copy(io.Discard, r); err != nil {
				return err
			}
		}
		return nil
	}

	if u.opts.skipParseBlock {
		d, derr := newDigestFromField(record, WarcBlockDigest)
		if derr != nil {
			return nil, offset, validation, derr
		}
		record.block = newGenericBlock(c2, d)
	} else if err := record.parseBlock(c2); err != nil {
		switch u.opts.errBlock {
		case ErrIgnore:
		case ErrWarn:
			validation.addError(err)
		case ErrFail:
			return nil, offset, validation, err
		}
	}
	if record.block == nil {
		// Block parsing failed but the policy was not ErrFail; fall back to
		// surfacing whatever remains of the block as opaque bytes.
		d, derr := newDigestFromField(record, WarcBlockDigest)
		if derr != nil {
			return nil, offset, validation, derr
		}
		record.block = newGenericBlock(c2, d)
	}
	offset += length

	return record, offset, validation, nil
}

func resolveRecordVersion(s string) *WarcVersion {
	switch s {
	case V1_0.txt:
		return V1_0
	case V1_1.txt:
		return V1_1
	default:
		return &WarcVersion{txt: s}
	}
}

// maxFooterLine bounds each of the two trailing footer lines read by
// readRecordFooter; a genuine footer line is always empty, so this only
// needs to be large enough to read a malformed line far enough to report it.
const maxFooterLine = 1024

// readRecordFooter reads the two-line separator (CRLFCRLF, or LFLF for
// LF-only records) that terminates every record's block, restoring the
// stream to the start of the next record, and returns the number of bytes
// the separator occupies (len(CRLFCRLF) for any well-formed record, since
// both lines must be empty). Both lines must be empty; a short read or a
// non-empty line means the declared Content-Length did not land on the
// real block boundary.
func readRecordFooter(r *bufio.Reader, offset int64) (int64, error) {
	for i := 0; i < 2; i++ {
		line, err := readBoundedLine(r, maxFooterLine)
		if err != nil || len(line) != 0 {
			return 0, &MalformedFooterError{Offset: offset}
		}
	}
	return int64(len(CRLFCRLF)), nil
}
