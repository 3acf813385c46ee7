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
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_RecordType_String(t *testing.T) {
	tests := []struct {
		rt   RecordType
		want string
	}{
		{Warcinfo, "warcinfo"},
		{Response, "response"},
		{Resource, "resource"},
		{Request, "request"},
		{Metadata, "metadata"},
		{Revisit, "revisit"},
		{Conversion, "conversion"},
		{Continuation, "continuation"},
		{0, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.rt.String())
	}
}

func Test_stringToRecordType(t *testing.T) {
	assert.Equal(t, Response, stringToRecordType("response"))
	assert.Equal(t, Response, stringToRecordType("RESPONSE"))
	assert.Equal(t, RecordType(0), stringToRecordType("bogus"))
}

func Test_WarcVersion_String(t *testing.T) {
	assert.Equal(t, "WARC/1.0", V1_0.String())
	assert.Equal(t, "WARC/1.1", V1_1.String())
}

func Test_recordBuilder_Build(t *testing.T) {
	rb := NewRecordBuilder(Response, WithSpecViolationPolicy(ErrFail), WithSyntaxErrorPolicy(ErrFail))
	rb.AddWarcHeader(WarcDate, "2017-03-06T04:03:53Z")
	rb.AddWarcHeader(ContentType, "application/http;msgtype=response")
	content := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\nContent-Type: text/plain\r\n\r\nhello"
	_, err := rb.WriteString(content)
	require.NoError(t, err)

	record, size, err := rb.Build()
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)
	assert.Equal(t, Response, record.Type())
	assert.True(t, record.WarcHeader().Has(WarcRecordID))
	assert.Equal(t, strconv.Itoa(len(content)), record.WarcHeader().Get(ContentLength))
	assert.NoError(t, record.Close())
	assert.NoError(t, record.Close()) // Close must be idempotent.
}

func Test_warcRecord_String(t *testing.T) {
	rb := NewRecordBuilder(Metadata)
	rb.AddWarcHeader(WarcDate, "2017-03-06T04:03:53Z")
	record, _, err := rb.Build()
	require.NoError(t, err)
	assert.Contains(t, record.String(), "WARC/1.1")
	assert.Contains(t, record.String(), "metadata")
}
