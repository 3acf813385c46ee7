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
	"strings"
)

// HeaderFieldError is used for violations of WARC header specification
type HeaderFieldError struct {
	field string
	msg   string
	line  int
}

func (e *HeaderFieldError) Error() string {
	return "gowarc: " + e.msg
}

func newHeaderFieldError(field, msg string) *HeaderFieldError {
	return &HeaderFieldError{field: field, msg: fmt.Sprintf("field %s: %s", field, msg)}
}

func newHeaderFieldErrorf(field, format string, a ...interface{}) *HeaderFieldError {
	return newHeaderFieldError(field, fmt.Sprintf(format, a...))
}

// SyntaxError is used for syntactical errors like wrong line endings
type SyntaxError struct {
	msg     string
	line    int
	wrapped error
}

func NewSyntaxError(msg string, pos *position) *SyntaxError {
	return &SyntaxError{msg: msg, line: pos.lineNumber}
}

func NewWrappedSyntaxError(msg string, pos *position, wrapped error) *SyntaxError {
	return &SyntaxError{msg: msg, line: pos.lineNumber, wrapped: wrapped}
}

func (e *SyntaxError) Error() string {
	if e.line > 0 {
		return fmt.Sprintf("gowarc: %v at line %d", e.msg, e.line)
	} else {
		return fmt.Sprintf("gowarc: %v", e.msg)
	}
}

func (e *SyntaxError) Unwrap() error {
	return e.wrapped
}

// UnknownFormatError is returned when the first record line of a WARC
// stream does not carry a recognized "WARC/0." or "WARC/1." prefix.
type UnknownFormatError struct {
	Line string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("gowarc: unknown record format, expected WARC version line, got %q", e.Line)
}

// MalformedHeaderError is returned when the permissive HeaderParser rejects
// a record's header block.
type MalformedHeaderError struct {
	Offset int64
	Cause  error
}

func (e *MalformedHeaderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("gowarc: malformed header at offset %d: %v", e.Offset, e.Cause)
	}
	return fmt.Sprintf("gowarc: malformed header at offset %d", e.Offset)
}

func (e *MalformedHeaderError) Unwrap() error { return e.Cause }

// WrongBlockLengthError is returned when the number of bytes actually read
// from (or written to) a record's block does not match its declared
// Content-Length.
type WrongBlockLengthError struct {
	RecordID string
	Want     int64
	Got      int64
}

func (e *WrongBlockLengthError) Error() string {
	return fmt.Sprintf("gowarc: wrong block length for record %s: want %d, got %d", e.RecordID, e.Want, e.Got)
}

// InvalidFieldValueError reports a required WARC header field that is
// either absent or fails to parse, together with the record it belongs to.
type InvalidFieldValueError struct {
	Name     string
	RecordID string
	Cause    error
}

func (e *InvalidFieldValueError) Error() string {
	msg := fmt.Sprintf("gowarc: invalid value for field %s in record %s", e.Name, e.RecordID)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *InvalidFieldValueError) Unwrap() error { return e.Cause }

// MalformedFooterError is returned when a record's two-line trailing
// footer is not two empty lines.
type MalformedFooterError struct {
	Offset int64
}

func (e *MalformedFooterError) Error() string {
	return fmt.Sprintf("gowarc: malformed record footer at offset %d", e.Offset)
}

// UnexpectedEndError is returned when the underlying stream ends before a
// state-required boundary (anywhere except at StartOfHeader).
type UnexpectedEndError struct {
	Context string
}

func (e *UnexpectedEndError) Error() string {
	return fmt.Sprintf("gowarc: unexpected end of stream: %s", e.Context)
}

// InvalidTransferCodingError is returned when a chunked transfer-coding
// chunk line cannot be parsed by either the strict or the fallback parser.
type InvalidTransferCodingError struct {
	Line  string
	Cause error
}

func (e *InvalidTransferCodingError) Error() string {
	msg := fmt.Sprintf("gowarc: invalid transfer-coding chunk line %q", e.Line)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *InvalidTransferCodingError) Unwrap() error { return e.Cause }

// InvalidStartLineError is returned when an HTTP message's request or
// status line cannot be parsed.
type InvalidStartLineError struct {
	Line string
}

func (e *InvalidStartLineError) Error() string {
	return fmt.Sprintf("gowarc: invalid start line %q", e.Line)
}

// multiErr aggregates independent errors encountered while closing multiple
// resources, e.g. the per-writer Close calls in WarcFileWriter.Rotate.
type multiErr []error

func (e multiErr) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
