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
	"io"
	"strconv"

	"github.com/webaves/webaves/internal/diskbuffer"
)

// WarcRecordBuilder accumulates a record's content block and header fields
// before Build assembles and validates the finished WarcRecord.
type WarcRecordBuilder interface {
	io.Writer
	io.StringWriter
	io.ReaderFrom
	AddWarcHeader(name, value string)
	// Build finalizes the record, filling in missing WARC-Record-ID,
	// Content-Length and digest fields as configured by the builder's
	// options, and returns the assembled record along with the size of
	// its content block.
	Build() (WarcRecord, int64, error)
}

type recordBuilder struct {
	opts       *warcRecordOptions
	version    *WarcVersion
	recordType RecordType
	headers    *HeaderMap
	content    diskbuffer.Buffer
}

// NewRecordBuilder creates a WarcRecordBuilder for a new record of recordType,
// configured via opts. The WARC-Type header is prepopulated.
func NewRecordBuilder(recordType RecordType, opts ...WarcRecordOption) WarcRecordBuilder {
	o := newOptions(opts...)
	rb := &recordBuilder{
		opts:       o,
		version:    o.warcVersion,
		recordType: recordType,
		headers:    NewHeaderMap(),
		content:    diskbuffer.New(o.bufferOptions...),
	}
	rb.headers.Set(WarcType, recordType.String())
	return rb
}

func (rb *recordBuilder) Write(p []byte) (int, error) {
	return rb.content.Write(p)
}

func (rb *recordBuilder) WriteString(s string) (int, error) {
	return rb.content.WriteString(s)
}

func (rb *recordBuilder) ReadFrom(r io.Reader) (int64, error) {
	return rb.content.ReadFrom(r)
}

func (rb *recordBuilder) AddWarcHeader(name, value string) {
	rb.headers.Add(name, value)
}

func (rb *recordBuilder) Build() (WarcRecord, int64, error) {
	wr := &warcRecord{
		opts:       rb.opts,
		version:    rb.version,
		recordType: rb.recordType,
		headers:    rb.headers,
		closer: func() error {
			return rb.content.Close()
		},
	}

	if rb.opts.addMissingRecordId && !wr.headers.Has(WarcRecordID) {
		id, err := rb.opts.recordIdFunc()
		if err != nil {
			return nil, 0, err
		}
		wr.headers.Set(WarcRecordID, "<"+id+">")
	}

	size := rb.content.Size()
	sizeStr := strconv.FormatInt(size, 10)
	hasLength := wr.headers.Has(ContentLength)
	if (rb.opts.addMissingContentLength && !hasLength) || (rb.opts.fixContentLength && hasLength) {
		wr.headers.Set(ContentLength, sizeStr)
	}

	hasDigest := wr.headers.Has(WarcBlockDigest)
	if (rb.opts.addMissingDigest && !hasDigest) || (rb.opts.fixDigest && hasDigest) {
		if _, err := rb.content.Seek(0, io.SeekStart); err != nil {
			return nil, 0, err
		}
		d, err := newDigest(rb.opts.defaultDigestAlgorithm, rb.opts.defaultDigestEncoding)
		if err != nil {
			return nil, 0, err
		}
		if _, err := io.Copy(d, rb.content); err != nil {
			return nil, 0, err
		}
		wr.headers.Set(WarcBlockDigest, d.format())
	}

	validation := &Validation{}
	if _, err := validateHeader(wr.headers, wr.version, validation, wr.opts); err != nil {
		return nil, size, err
	}
	if rb.opts.errSpec == ErrFail && !validation.Valid() {
		return nil, size, validation
	}

	if _, err := rb.content.Seek(0, io.SeekStart); err != nil {
		return nil, size, err
	}
	if err := wr.parseBlock(rb.content); err != nil {
		return nil, size, err
	}

	return wr, size, nil
}
