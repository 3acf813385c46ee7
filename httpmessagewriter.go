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
)

// HttpMessageWriter is the write-side counterpart of HttpMessageReader: it
// formats a start line and header block with HeaderFormatter (raw bytes
// preferred when present), then arms a body writer. State is {Header, Body},
// mirroring the reader.
type HttpMessageWriter struct {
	w     *bufio.Writer
	state httpMsgState
}

// NewHttpMessageWriter wraps w.
func NewHttpMessageWriter(w *bufio.Writer) *HttpMessageWriter {
	return &HttpMessageWriter{w: w, state: httpMsgHeader}
}

// BeginRequest formats header's request line and fields, followed by the
// terminating blank line, and flushes.
func (m *HttpMessageWriter) BeginRequest(header RequestHeader) error {
	if m.state != httpMsgHeader {
		panic("gowarc: HttpMessageWriter.BeginRequest called out of order")
	}
	if _, err := fmt.Fprintf(m.w, "%s %s HTTP/%d.%d"+CRLF, header.Line.Method, header.Line.Target, header.Line.VersionMajor, header.Line.VersionMinor); err != nil {
		return err
	}
	return m.writeFieldsAndArm(header.Fields)
}

// BeginResponse formats header's status line and fields, followed by the
// terminating blank line, and flushes.
func (m *HttpMessageWriter) BeginResponse(header ResponseHeader) error {
	if m.state != httpMsgHeader {
		panic("gowarc: HttpMessageWriter.BeginResponse called out of order")
	}
	if _, err := fmt.Fprintf(m.w, "HTTP/%d.%d %03d %s"+CRLF, header.Line.VersionMajor, header.Line.VersionMinor, header.Line.StatusCode, header.Line.Reason); err != nil {
		return err
	}
	return m.writeFieldsAndArm(header.Fields)
}

func (m *HttpMessageWriter) writeFieldsAndArm(fields *HeaderMap) error {
	formatter := &HeaderFormatter{UseRaw: true}
	if fields == nil {
		fields = NewHeaderMap()
	}
	if _, err := formatter.Format(fields, m.w); err != nil {
		return err
	}
	if _, err := m.w.WriteString(CRLF); err != nil {
		return err
	}
	if err := m.w.Flush(); err != nil {
		return err
	}
	m.state = httpMsgBody
	return nil
}

// WriteBody returns a writer for the message body. The caller is
// responsible for pre-encoding the body (chunked framing, content-coding)
// consistently with whatever Transfer-Encoding/Content-Encoding fields it
// wrote via BeginRequest/BeginResponse; unlike the reader, the writer does
// not re-derive framing from header values, since the caller owns them.
func (m *HttpMessageWriter) WriteBody() io.Writer {
	if m.state != httpMsgBody {
		panic("gowarc: HttpMessageWriter.WriteBody called out of order")
	}
	return m.w
}

// EndMessage flushes the underlying writer and resets to the Header state,
// allowing the same writer to be reused for a subsequent pipelined message.
func (m *HttpMessageWriter) EndMessage() error {
	if m.state != httpMsgBody {
		panic("gowarc: HttpMessageWriter.EndMessage called out of order")
	}
	if err := m.w.Flush(); err != nil {
		return err
	}
	m.state = httpMsgHeader
	return nil
}
