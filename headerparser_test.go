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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_HeaderParser_foldedLineAndEncodedWord(t *testing.T) {
	input := "k1: Hello\r\n\t \tworld!\r\nk2: [=?ISO-8859-1?Q?a?= =?ISO-8859-1?Q?a?=]\r\n"
	h, err := (&HeaderParser{}).Parse([]byte(input))
	require.NoError(t, err)

	assert.Equal(t, "Hello world!", h.Get("k1"))
	assert.Equal(t, "[aa]", h.Get("k2"))
}

func Test_HeaderParser_foldDoesNotCollapseOtherWhitespace(t *testing.T) {
	// Only the fold itself becomes a space; the run of spaces inside the
	// first physical line is not fold whitespace and must survive.
	input := "k1: Hello  world\r\n\t \tagain\r\n"
	h, err := (&HeaderParser{}).Parse([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, "Hello  world again", h.Get("k1"))
}

func Test_HeaderParser_quotedStringPreservesWhitespace(t *testing.T) {
	input := "k1: p1=\"v1, \"\r\n" +
		"k2: \"a  b\"\r\n  tail\r\n"
	h, err := (&HeaderParser{}).Parse([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, `p1="v1, "`, h.Get("k1"))
	assert.Equal(t, `"a  b" tail`, h.Get("k2"))
}

func Test_HeaderParser_preservesRawBytes(t *testing.T) {
	input := "Name: value\r\n"
	h, err := (&HeaderParser{}).Parse([]byte(input))
	require.NoError(t, err)
	require.Equal(t, 1, h.Len())
	pair := h.Pairs()[0]
	assert.Equal(t, "Name", string(pair.Name.Raw))
	assert.Equal(t, " value", string(pair.Value.Raw))
	assert.Equal(t, "value", pair.Value.Text)
}

func Test_HeaderParser_missingColonIsError(t *testing.T) {
	_, err := (&HeaderParser{}).Parse([]byte("not-a-field-line\r\n"))
	require.Error(t, err)
	var perr *HeaderParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, int64(0), perr.Offset)
}

func Test_HeaderParser_multipleFields(t *testing.T) {
	input := "Host: example.com\r\nX-Custom: 1\r\n"
	h, err := (&HeaderParser{}).Parse([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, "example.com", h.Get("Host"))
	assert.Equal(t, "1", h.Get("X-Custom"))
}

func Test_readBoundedLine_limitBoundary(t *testing.T) {
	atLimit := strings.Repeat("a", 32)
	br := bufio.NewReader(strings.NewReader(atLimit + "\r\n"))
	line, err := readBoundedLine(br, 32)
	require.NoError(t, err)
	assert.Equal(t, atLimit, string(line))

	overLimit := strings.Repeat("a", 33)
	br = bufio.NewReader(strings.NewReader(overLimit + "\r\n"))
	_, err = readBoundedLine(br, 32)
	require.Error(t, err)
}

func Test_HeaderParser_invalidUTF8ValueRoundtrip(t *testing.T) {
	input := []byte("Name: va\xf0\xfflue\r\n")
	h, err := (&HeaderParser{}).Parse(input)
	require.NoError(t, err)

	pair := h.Pairs()[0]
	// The decoded text carries the invalid bytes via the lossy scheme and
	// converts back to the original value bytes.
	assert.Equal(t, []byte("va\xf0\xfflue"), DecodeLossyUTF8(pair.Value.Text))
	assert.Equal(t, []byte(" va\xf0\xfflue"), pair.Value.Raw)
}

func Test_ReadHeaderBlock_stopsAtEmptyLine(t *testing.T) {
	input := "a: 1\r\nb: 2\r\n\r\nnot-part-of-block"
	br := bufio.NewReader(strings.NewReader(input))
	block, err := ReadHeaderBlock(br, 1024)
	require.NoError(t, err)
	assert.Equal(t, "a: 1\r\nb: 2\r\n", string(block))
}
