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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ExtractorDispatcher_resourceRecord(t *testing.T) {
	rb := NewRecordBuilder(Resource, WithNoValidation())
	_, err := rb.WriteString("the resource body")
	require.NoError(t, err)
	record, _, err := rb.Build()
	require.NoError(t, err)

	d := NewExtractorDispatcher()
	require.True(t, d.CanAcceptAny(record))

	raw, err := record.Block().RawBytes()
	require.NoError(t, err)
	ext, err := d.Begin(record, raw)
	require.NoError(t, err)
	b, err := io.ReadAll(ext)
	require.NoError(t, err)
	assert.Equal(t, "the resource body", string(b))
}

func Test_ExtractorDispatcher_httpResponseRecord(t *testing.T) {
	rb := NewRecordBuilder(Response, WithNoValidation())
	rb.AddWarcHeader(ContentType, "application/http;msgtype=response")
	httpMsg := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"
	_, err := rb.WriteString(httpMsg)
	require.NoError(t, err)
	record, _, err := rb.Build()
	require.NoError(t, err)

	d := NewExtractorDispatcher()
	require.True(t, d.CanAcceptAny(record))

	raw, err := record.Block().RawBytes()
	require.NoError(t, err)
	ext, err := d.Begin(record, raw)
	require.NoError(t, err)
	b, err := io.ReadAll(ext)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
}

func Test_ExtractorDispatcher_httpResponsePartialReadThenFinish(t *testing.T) {
	rb := NewRecordBuilder(Response, WithNoValidation())
	rb.AddWarcHeader(ContentType, "application/http;msgtype=response")
	httpMsg := "HTTP/1.1 200 OK\r\nContent-Length: 12\r\n\r\nhello world!"
	_, err := rb.WriteString(httpMsg)
	require.NoError(t, err)
	record, _, err := rb.Build()
	require.NoError(t, err)

	d := NewExtractorDispatcher()
	raw, err := record.Block().RawBytes()
	require.NoError(t, err)
	ext, err := d.Begin(record, raw)
	require.NoError(t, err)

	// Read only part of the body, then Finish: the remaining bytes must be
	// drained from where the partial read left off, not re-read from the
	// start of the body.
	buf := make([]byte, 5)
	n, err := io.ReadFull(ext, buf)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))

	_, err = d.Finish()
	require.NoError(t, err)
}

func Test_ExtractorDispatcher_noMatch(t *testing.T) {
	rb := NewRecordBuilder(Metadata, WithNoValidation())
	_, err := rb.WriteString("k: v\r\n")
	require.NoError(t, err)
	record, _, err := rb.Build()
	require.NoError(t, err)

	d := NewExtractorDispatcher()
	assert.False(t, d.CanAcceptAny(record))
	_, err = d.Begin(record, strings.NewReader(""))
	assert.Error(t, err)
}
