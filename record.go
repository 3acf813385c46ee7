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
	"fmt"
	"io"
	"strings"
	"sync"
)

const (
	SPHTCRLF = " \t\r\n"
	CR       = '\r'
	LF       = '\n'
	SP       = ' '
	HT       = '\t'
	CRLF     = "\r\n"
	CRLFCRLF = "\r\n\r\n"

	crlf     = CRLF
	crlfcrlf = CRLFCRLF
)

// WarcRecord is a single parsed or built WARC record: version line, header
// block, and content block.
type WarcRecord interface {
	Version() *WarcVersion
	Type() RecordType
	WarcHeader() *HeaderMap
	Block() Block
	// Metadata returns the low-level WarcHeaderMetadata this record was
	// parsed from, or nil for a record built with NewRecordBuilder rather
	// than read from a stream.
	Metadata() *WarcHeaderMetadata
	String() string
	Close() error
}

// WarcVersion identifies the version declared on a record's first line.
type WarcVersion struct {
	id    uint8
	txt   string
	major uint8
	minor uint8
}

func (v *WarcVersion) String() string {
	return "WARC/" + v.txt
}

func (v *WarcVersion) Major() uint8 {
	return v.major
}

func (v *WarcVersion) Minor() uint8 {
	return v.minor
}

var (
	V1_0 = &WarcVersion{id: 1, txt: "1.0", major: 1, minor: 0}
	V1_1 = &WarcVersion{id: 2, txt: "1.1", major: 1, minor: 1}
)

// RecordType is a bitmask of WARC-Type values, allowing field definitions to
// name the set of record types a field is legal on.
type RecordType uint16

const (
	Warcinfo     RecordType = 1
	Response     RecordType = 2
	Resource     RecordType = 4
	Request      RecordType = 8
	Metadata     RecordType = 16
	Revisit      RecordType = 32
	Conversion   RecordType = 64
	Continuation RecordType = 128
)

var recordTypeToString = map[RecordType]string{
	Warcinfo:     "warcinfo",
	Response:     "response",
	Resource:     "resource",
	Request:      "request",
	Metadata:     "metadata",
	Revisit:      "revisit",
	Conversion:   "conversion",
	Continuation: "continuation",
}

var stringToRecordTypeMap = func() map[string]RecordType {
	m := make(map[string]RecordType, len(recordTypeToString))
	for rt, s := range recordTypeToString {
		m[s] = rt
	}
	return m
}()

func (rt RecordType) String() string {
	if s, ok := recordTypeToString[rt]; ok {
		return s
	}
	return "unknown"
}

// stringToRecordType resolves the lower-cased value of a WARC-Type field to
// its RecordType constant. It returns 0 for an unrecognized value.
func stringToRecordType(s string) RecordType {
	return stringToRecordTypeMap[strings.ToLower(s)]
}

type warcRecord struct {
	opts       *warcRecordOptions
	version    *WarcVersion
	headers    *HeaderMap
	recordType RecordType
	block      Block
	metadata   *WarcHeaderMetadata
	footerLen  int64 // bytes consumed by the trailing record separator; set once Close has run
	closeOnce  sync.Once
	closer     func() error
}

func newRecord(opts *warcRecordOptions, version *WarcVersion) *warcRecord {
	return &warcRecord{
		opts:    opts,
		version: version,
		headers: NewHeaderMap(),
	}
}

func (wr *warcRecord) Version() *WarcVersion { return wr.version }

func (wr *warcRecord) Type() RecordType { return wr.recordType }

func (wr *warcRecord) WarcHeader() *HeaderMap { return wr.headers }

func (wr *warcRecord) Block() Block {
	return wr.block
}

func (wr *warcRecord) Metadata() *WarcHeaderMetadata {
	return wr.metadata
}

func (wr *warcRecord) String() string {
	return fmt.Sprintf("WARC record: version: %s, type: %s", wr.version, wr.Type())
}

// Close releases resources held by the record's block (the buffered content
// or the gzip/zstd member wrapping it, depending on source). It is safe to
// call more than once.
func (wr *warcRecord) Close() error {
	var err error
	wr.closeOnce.Do(func() {
		if wr.closer != nil {
			err = wr.closer()
		}
	})
	return err
}

// parseBlock classifies and wraps reader as the appropriate Block
// implementation based on the record's type and Content-Type header.
func (wr *warcRecord) parseBlock(reader io.Reader) (err error) {
	blockDigest, err := newDigestFromField(wr, WarcBlockDigest)
	if err != nil {
		return err
	}

	if wr.recordType == Revisit {
		wr.block, err = newRevisitBlock(reader, blockDigest)
		return
	}
	contentType := strings.ToLower(wr.headers.Get(ContentType))
	if wr.recordType&(Response|Resource|Request|Conversion|Continuation) != 0 {
		if strings.HasPrefix(contentType, "application/http") {
			payloadDigest, err := newDigestFromField(wr, WarcPayloadDigest)
			if err != nil {
				return err
			}
			wr.block, err = newHttpBlock(reader, wr.recordType == Request, blockDigest, payloadDigest)
			return err
		}
	}
	if strings.HasPrefix(contentType, "application/warc-fields") {
		wr.block, err = newWarcFieldsBlock(reader, blockDigest)
		return
	}

	wr.block = newGenericBlock(reader, blockDigest)
	return
}
