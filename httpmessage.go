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
	"fmt"
	"io"
	"strconv"
	"strings"
)

// RequestLine is a parsed HTTP request line: "method target HTTP/major.minor".
type RequestLine struct {
	Method       string
	Target       string
	VersionMajor uint16
	VersionMinor uint16
}

func (l RequestLine) String() string {
	return fmt.Sprintf("%s %s HTTP/%d.%d", l.Method, l.Target, l.VersionMajor, l.VersionMinor)
}

// StatusLine is a parsed HTTP status line: "HTTP/major.minor status reason".
type StatusLine struct {
	VersionMajor uint16
	VersionMinor uint16
	StatusCode   int
	Reason       string
}

func (l StatusLine) String() string {
	return fmt.Sprintf("HTTP/%d.%d %03d %s", l.VersionMajor, l.VersionMinor, l.StatusCode, l.Reason)
}

// RequestHeader is a request's start line plus its field block.
type RequestHeader struct {
	Line   RequestLine
	Fields *HeaderMap
}

// ResponseHeader is a response's start line plus its field block.
type ResponseHeader struct {
	Line   StatusLine
	Fields *HeaderMap
}

// ZeroNinePolicy controls whether HttpMessageReader.BeginResponse may
// synthesize a minimal HTTP/0.9 response when the stream does not begin
// with a recognizable start line.
type ZeroNinePolicy int8

const (
	ZeroNineDisallow ZeroNinePolicy = iota
	ZeroNineAllow
)

const maxStartLine = 8 * 1024

func parseVersion(tok string) (uint16, uint16, error) {
	tok = strings.TrimPrefix(tok, "HTTP/")
	major, minor, ok := strings.Cut(tok, ".")
	if !ok {
		return 0, 0, fmt.Errorf("malformed HTTP version %q", tok)
	}
	maj, err := strconv.ParseUint(major, 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed HTTP version %q", tok)
	}
	min, err := strconv.ParseUint(minor, 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed HTTP version %q", tok)
	}
	return uint16(maj), uint16(min), nil
}

// parseRequestLine parses "METHOD target HTTP/M.m" into its three parts.
func parseRequestLine(line string) (RequestLine, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return RequestLine{}, fmt.Errorf("malformed request line %q", line)
	}
	major, minor, err := parseVersion(parts[2])
	if err != nil {
		return RequestLine{}, err
	}
	return RequestLine{Method: parts[0], Target: parts[1], VersionMajor: major, VersionMinor: minor}, nil
}

// parseStatusLine parses "HTTP/M.m status reason-phrase" into its parts.
// The reason phrase may be empty; status must be exactly 3 digits.
func parseStatusLine(line string) (StatusLine, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return StatusLine{}, fmt.Errorf("malformed status line %q", line)
	}
	major, minor, err := parseVersion(parts[0])
	if err != nil {
		return StatusLine{}, err
	}
	if len(parts[1]) != 3 {
		return StatusLine{}, fmt.Errorf("malformed status code %q", parts[1])
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return StatusLine{}, fmt.Errorf("malformed status code %q", parts[1])
	}
	reason := ""
	if len(parts) == 3 {
		reason = parts[2]
	}
	return StatusLine{VersionMajor: major, VersionMinor: minor, StatusCode: code, Reason: reason}, nil
}

// httpMsgState is the Header/Body position of HttpMessageReader/Writer.
type httpMsgState int8

const (
	httpMsgHeader httpMsgState = iota
	httpMsgBody
)

// HttpMessageReader decodes an HTTP/1.x request or response from a buffered
// byte stream: start line, header block, then a body whose framing is
// selected per RFC 9112 from Transfer-Encoding/Content-Length/method/status,
// with HTTP/0.9 and content-coding support. State is {Header, Body}; calls
// must alternate BeginRequest/BeginResponse, ReadBody, EndMessage in that
// order for each message sharing the underlying stream (pipelining).
type HttpMessageReader struct {
	r             *bufio.Reader
	state         httpMsgState
	zeroNine      ZeroNinePolicy
	modernLatched bool
	bodyRemaining int64 // -1: unbounded (read until EOF or chunked-terminated)
	chunked       *ChunkedReader
	chunkedBody   *chunkedBodyReader
	pendingCoding string
	method        string    // last request method, used by BeginResponse's HEAD rule
	body          io.Reader // cached result of the first ReadBody call this message
}

// NewHttpMessageReader wraps r. zeroNine controls HTTP/0.9 fallback
// detection for BeginResponse.
func NewHttpMessageReader(r *bufio.Reader, zeroNine ZeroNinePolicy) *HttpMessageReader {
	return &HttpMessageReader{r: r, zeroNine: zeroNine, state: httpMsgHeader}
}

// BeginRequest reads the request line and header block, and arms the body
// reader per Transfer-Encoding/Content-Length/absence-of-either (zero-length
// for requests with neither).
func (m *HttpMessageReader) BeginRequest() (RequestHeader, error) {
	if m.state != httpMsgHeader {
		panic("gowarc: HttpMessageReader.BeginRequest called out of order")
	}
	line, err := readBoundedLine(m.r, maxStartLine)
	if err != nil {
		return RequestHeader{}, err
	}
	reqLine, err := parseRequestLine(string(line))
	if err != nil {
		return RequestHeader{}, &InvalidStartLineError{Line: string(line)}
	}
	fields, err := m.readFields()
	if err != nil {
		return RequestHeader{}, err
	}
	m.method = strings.ToUpper(reqLine.Method)

	if err := m.armRequestBody(fields); err != nil {
		return RequestHeader{}, err
	}
	m.state = httpMsgBody
	return RequestHeader{Line: reqLine, Fields: fields}, nil
}

func (m *HttpMessageReader) readFields() (*HeaderMap, error) {
	raw, err := ReadHeaderBlock(m.r, maxHttpHeaderLine)
	if err != nil && err != io.EOF {
		return nil, err
	}
	fields, err := (&HeaderParser{}).Parse(raw)
	if err != nil {
		var perr *HeaderParseError
		if ok := asHeaderParseError(err, &perr); ok {
			return nil, &MalformedHeaderError{Offset: perr.Offset, Cause: perr.Err}
		}
		return nil, &MalformedHeaderError{Cause: err}
	}
	return fields, nil
}

func asHeaderParseError(err error, target **HeaderParseError) bool {
	if e, ok := err.(*HeaderParseError); ok {
		*target = e
		return true
	}
	return false
}

func (m *HttpMessageReader) armRequestBody(fields *HeaderMap) error {
	if fields.Has("Transfer-Encoding") {
		m.startChunked()
		return nil
	}
	if fields.Has("Content-Length") {
		n, err := parseContentLength(fields)
		if err != nil {
			return err
		}
		m.bodyRemaining = n
		return nil
	}
	m.bodyRemaining = 0
	return nil
}

// parseContentLength validates that every Content-Length value is present
// and identical (RFC 9112 §6.3 rejects mismatched duplicates), returning
// the parsed length.
func parseContentLength(fields *HeaderMap) (int64, error) {
	values := fields.GetAll("Content-Length")
	if len(values) == 0 {
		return 0, nil
	}
	first, err := strconv.ParseInt(strings.TrimSpace(values[0]), 10, 64)
	if err != nil || first < 0 {
		return 0, &InvalidFieldValueError{Name: "Content-Length", Cause: fmt.Errorf("invalid value %q", values[0])}
	}
	for _, v := range values[1:] {
		if strings.TrimSpace(v) != strings.TrimSpace(values[0]) {
			return 0, &InvalidFieldValueError{Name: "Content-Length", Cause: fmt.Errorf("conflicting values")}
		}
	}
	return first, nil
}

// BeginResponse reads the status line and header block (or, if zeroNine is
// allowed and the stream does not start with "HTTP/", synthesizes a minimal
// "HTTP/0.9 200" header with the entire remaining stream as an unframed
// body). initiator, if non-nil, supplies the request method driving the
// HEAD-implies-zero-length rule.
func (m *HttpMessageReader) BeginResponse(initiator *RequestHeader) (ResponseHeader, error) {
	if m.state != httpMsgHeader {
		panic("gowarc: HttpMessageReader.BeginResponse called out of order")
	}
	if initiator != nil {
		m.method = strings.ToUpper(initiator.Line.Method)
	}

	if m.zeroNine == ZeroNineAllow && !m.modernLatched {
		peek, _ := m.r.Peek(5)
		if !strings.EqualFold(string(peek), "http/") {
			m.bodyRemaining = -1
			m.state = httpMsgBody
			return ResponseHeader{Line: StatusLine{VersionMajor: 0, VersionMinor: 9, StatusCode: 200}, Fields: NewHeaderMap()}, nil
		}
	}

	line, err := readBoundedLine(m.r, maxStartLine)
	if err != nil {
		return ResponseHeader{}, err
	}
	statusLine, err := parseStatusLine(string(line))
	if err != nil {
		return ResponseHeader{}, &InvalidStartLineError{Line: string(line)}
	}
	m.modernLatched = true

	fields, err := m.readFields()
	if err != nil {
		return ResponseHeader{}, err
	}

	if err := m.armResponseBody(statusLine, fields); err != nil {
		return ResponseHeader{}, err
	}
	m.state = httpMsgBody
	return ResponseHeader{Line: statusLine, Fields: fields}, nil
}

func (m *HttpMessageReader) armResponseBody(status StatusLine, fields *HeaderMap) error {
	// RFC 9112 §6.3: these always carry a zero-length body regardless of
	// framing headers present.
	if m.method == "HEAD" || status.StatusCode == 204 || status.StatusCode == 304 ||
		(status.StatusCode >= 100 && status.StatusCode < 200) {
		m.bodyRemaining = 0
		return nil
	}

	if fields.Has("Transfer-Encoding") {
		m.startChunked()
	} else if fields.Has("Content-Length") {
		n, err := parseContentLength(fields)
		if err != nil {
			return err
		}
		m.bodyRemaining = n
	} else {
		// Connection-close framing: read until EOF.
		m.bodyRemaining = -1
	}

	if m.bodyRemaining != 0 {
		if err := m.wrapContentCoding(fields); err != nil {
			return err
		}
	}
	return nil
}

func (m *HttpMessageReader) startChunked() {
	m.bodyRemaining = -1
	m.chunked = NewChunkedReader(m.r)
}

// wrapContentCoding selects the first content-coding other than identity
// (preferring Content-Encoding, falling back to any non-chunked
// Transfer-Encoding coding) and records it for ReadBody to apply; an unknown
// coding is passed through undecoded. Multiple codings are a deliberate
// leniency: only the first is applied, per §4.8/§7.
func (m *HttpMessageReader) wrapContentCoding(fields *HeaderMap) error {
	codings := fields.GetList("Content-Encoding")
	if coding, ok := firstRecognizedCoding(codings); ok {
		m.pendingCoding = coding
		return nil
	}
	codings = fields.GetList("Transfer-Encoding")
	if coding, ok := firstRecognizedCoding(codings); ok {
		m.pendingCoding = coding
	}
	return nil
}

// ReadBody returns a reader over the message body, applying chunked
// transfer-coding and/or content-coding decompression as armed by
// BeginRequest/BeginResponse.
func (m *HttpMessageReader) ReadBody() (io.Reader, error) {
	if m.state != httpMsgBody {
		panic("gowarc: HttpMessageReader.ReadBody called out of order")
	}
	if m.body != nil {
		return m.body, nil
	}
	var raw io.Reader
	switch {
	case m.chunked != nil:
		m.chunkedBody = &chunkedBodyReader{c: m.chunked}
		raw = m.chunkedBody
	case m.bodyRemaining < 0:
		raw = m.r
	default:
		raw = &countingLimitReader{r: m.r, remaining: m.bodyRemaining}
	}
	if m.pendingCoding != "" {
		dec, err := NewContentDecoder(m.pendingCoding, raw)
		if err != nil {
			return nil, err
		}
		raw = dec
	}
	m.body = raw
	return raw, nil
}

// countingLimitReader behaves like io.LimitReader but tracks the bytes it
// still has to surface on the struct itself, so a caller that partially
// drains it and later asks again (via EndMessage) resumes from where it left
// off instead of re-reading from the full original length.
type countingLimitReader struct {
	r         *bufio.Reader
	remaining int64
}

func (l *countingLimitReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}

// chunkedBodyReader drains a ChunkedReader chunk-by-chunk, transparently
// advancing through BeginChunk/EndChunk so callers see a single flat body.
type chunkedBodyReader struct {
	c       *ChunkedReader
	cur     io.Reader
	done    bool
	trailer *HeaderMap
}

func (b *chunkedBodyReader) Read(p []byte) (int, error) {
	for {
		if b.done {
			return 0, io.EOF
		}
		if b.cur == nil {
			header, err := b.c.BeginChunk()
			if err != nil {
				return 0, err
			}
			if header.Length == 0 {
				if err := b.c.EndChunk(); err != nil {
					return 0, err
				}
				trailer, err := b.c.ReadTrailer()
				if err != nil {
					return 0, err
				}
				b.trailer = trailer
				b.done = true
				return 0, io.EOF
			}
			b.cur = b.c.ReadData()
		}
		n, err := b.cur.Read(p)
		if n > 0 {
			return n, nil
		}
		if err == io.EOF {
			if endErr := b.c.EndChunk(); endErr != nil {
				return 0, endErr
			}
			b.cur = nil
			continue
		}
		return 0, err
	}
}

// EndMessage unwraps the body, consuming/discarding any unread bytes so the
// underlying stream is positioned for a subsequent pipelined message, and
// returns to the Header state.
func (m *HttpMessageReader) EndMessage() error {
	if m.state != httpMsgBody {
		panic("gowarc: HttpMessageReader.EndMessage called out of order")
	}
	body, err := m.ReadBody()
	if err != nil {
		return err
	}
	if _, err := io.Copy(io.Discard, body); err != nil && err != io.EOF {
		return err
	}
	m.chunked = nil
	m.pendingCoding = ""
	m.bodyRemaining = 0
	m.body = nil
	m.state = httpMsgHeader
	return nil
}

// Trailer returns the trailer captured by the last chunked body read via
// ReadBody, or nil if the body was not chunked or has not been fully read.
// Per §9, trailer fields are never merged into the response's HeaderMap;
// callers that need them must call this explicitly.
func (m *HttpMessageReader) Trailer() *HeaderMap {
	if m.chunkedBody == nil {
		return nil
	}
	return m.chunkedBody.trailer
}
