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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshaler_roundtrip(t *testing.T) {
	rb := NewRecordBuilder(Metadata, WithVersion(V1_0))
	rb.AddWarcHeader(WarcDate, "2017-03-06T04:03:53Z")
	rb.AddWarcHeader(ContentType, ApplicationWarcFields)
	_, err := rb.WriteString("via: http://www.example.com/\nhopsFromSeed: P\n")
	require.NoError(t, err)

	record, _, err := rb.Build()
	require.NoError(t, err)
	defer record.Close()

	var buf bytes.Buffer
	_, _, err = NewMarshaler().Marshal(&buf, record, 0)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "WARC/1.0\r\n")
	assert.Contains(t, buf.String(), "WARC-Type: metadata\r\n")
	assert.Contains(t, buf.String(), "via: http://www.example.com/\n")

	u := NewUnmarshaler()
	readBack, _, validation, err := u.Unmarshal(bufio.NewReader(bytes.NewReader(buf.Bytes())))
	require.NoError(t, err)
	defer readBack.Close()

	assert.True(t, validation.Valid())
	assert.Equal(t, Metadata, readBack.Type())
	assert.Equal(t, record.WarcHeader().Get(WarcDate), readBack.WarcHeader().Get(WarcDate))
}
