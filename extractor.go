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
	"strings"
)

// Extractor is the capability set exposed by whatever body-extraction gate
// ExtractorDispatcher selected for a record: a plain byte reader plus the
// ability to hand back the underlying source once extraction is done.
type Extractor interface {
	Read(p []byte) (int, error)
	Finish() (io.Reader, error)
}

// ExtractorClassifier reports whether its paired ExtractorFactory can
// handle a record.
type ExtractorClassifier func(record WarcRecord) bool

// ExtractorFactory builds an Extractor over a record's block content.
type ExtractorFactory func(record WarcRecord, source io.Reader) (Extractor, error)

// extractorEntry is one (classifier, factory) pair in an
// ExtractorDispatcher's table.
type extractorEntry struct {
	accept ExtractorClassifier
	build  ExtractorFactory
}

// ExtractorDispatcher is a polymorphic body-extraction gate: given a
// record's metadata, it picks the first matching (classifier, factory) pair
// from its table and instantiates an Extractor over the record's block
// stream. The default table recognizes "resource" records (verbatim block)
// and "response"/application-http records (HTTP message body, decoded
// through HttpMessageReader).
type ExtractorDispatcher struct {
	table   []extractorEntry
	current Extractor
}

// NewExtractorDispatcher returns a dispatcher configured with the default
// extractor table (resource, HTTP-response).
func NewExtractorDispatcher() *ExtractorDispatcher {
	d := &ExtractorDispatcher{}
	d.Register(isResourceRecord, newResourceExtractor)
	d.Register(isHttpResponseRecord, newHttpResponseExtractor)
	return d
}

// Register appends a (classifier, factory) pair to the dispatch table. Pairs
// are tried in registration order; the default table registers resource
// before HTTP-response.
func (d *ExtractorDispatcher) Register(accept ExtractorClassifier, build ExtractorFactory) {
	d.table = append(d.table, extractorEntry{accept: accept, build: build})
}

// CanAcceptAny reports whether any registered classifier matches record.
func (d *ExtractorDispatcher) CanAcceptAny(record WarcRecord) bool {
	for _, e := range d.table {
		if e.accept(record) {
			return true
		}
	}
	return false
}

// Begin takes ownership of source (the record's block content, typically
// from Block.RawBytes) and instantiates the first matching extractor. It
// returns an error if no classifier in the table matches.
func (d *ExtractorDispatcher) Begin(record WarcRecord, source io.Reader) (Extractor, error) {
	for _, e := range d.table {
		if e.accept(record) {
			ext, err := e.build(record, source)
			if err != nil {
				return nil, err
			}
			d.current = ext
			return ext, nil
		}
	}
	return nil, errNoExtractor
}

var errNoExtractor = &noExtractorError{}

type noExtractorError struct{}

func (*noExtractorError) Error() string { return "gowarc: no extractor matches record" }

// Finish unwraps the current extractor, returning the underlying source and
// finalizing any inner reader (e.g. draining an HTTP message body so a
// pipelined stream is left at a clean boundary).
func (d *ExtractorDispatcher) Finish() (io.Reader, error) {
	if d.current == nil {
		return nil, nil
	}
	src, err := d.current.Finish()
	d.current = nil
	return src, err
}

func isResourceRecord(record WarcRecord) bool {
	return record.Type() == Resource
}

func isHttpResponseRecord(record WarcRecord) bool {
	if record.Type() != Response {
		return false
	}
	ct := strings.ToLower(record.WarcHeader().Get(ContentType))
	return strings.HasPrefix(ct, "application/http")
}

// resourceExtractor streams a resource record's block verbatim.
type resourceExtractor struct {
	source io.Reader
}

func newResourceExtractor(_ WarcRecord, source io.Reader) (Extractor, error) {
	return &resourceExtractor{source: source}, nil
}

func (e *resourceExtractor) Read(p []byte) (int, error) { return e.source.Read(p) }

func (e *resourceExtractor) Finish() (io.Reader, error) { return e.source, nil }

// httpResponseExtractor wraps a response record's block in an
// HttpMessageReader, surfacing the decoded (dechunked, content-decoded)
// HTTP payload as its Read stream.
type httpResponseExtractor struct {
	msg  *HttpMessageReader
	body io.Reader
}

func newHttpResponseExtractor(_ WarcRecord, source io.Reader) (Extractor, error) {
	msg := NewHttpMessageReader(bufio.NewReader(source), ZeroNineDisallow)
	if _, err := msg.BeginResponse(nil); err != nil {
		return nil, err
	}
	body, err := msg.ReadBody()
	if err != nil {
		return nil, err
	}
	return &httpResponseExtractor{msg: msg, body: body}, nil
}

func (e *httpResponseExtractor) Read(p []byte) (int, error) { return e.body.Read(p) }

func (e *httpResponseExtractor) Finish() (io.Reader, error) {
	if err := e.msg.EndMessage(); err != nil {
		return nil, err
	}
	return e.msg.r, nil
}
