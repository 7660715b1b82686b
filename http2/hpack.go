/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package http2

import (
	"github.com/sabouaram/netcore/errors"
	"golang.org/x/net/http2/hpack"
)

// staticEntry is one row of the RFC 7541 Appendix A static table. Index 0
// is reserved (the table is 1-indexed on the wire).
type staticEntry struct {
	Name  string
	Value string
}

var staticTable = []staticEntry{
	{}, // index 0 is unused
	{":authority", ""},
	{":method", "GET"},
	{":method", "POST"},
	{":path", "/"},
	{":path", "/index.html"},
	{":scheme", "http"},
	{":scheme", "https"},
	{":status", "200"},
	{":status", "204"},
	{":status", "206"},
	{":status", "304"},
	{":status", "400"},
	{":status", "404"},
	{":status", "500"},
	{"accept-charset", ""},
	{"accept-encoding", "gzip, deflate"},
	{"accept-language", ""},
	{"accept-ranges", ""},
	{"accept", ""},
	{"access-control-allow-origin", ""},
	{"age", ""},
	{"allow", ""},
	{"authorization", ""},
	{"cache-control", ""},
	{"content-disposition", ""},
	{"content-encoding", ""},
	{"content-language", ""},
	{"content-length", ""},
	{"content-location", ""},
	{"content-range", ""},
	{"content-type", ""},
	{"cookie", ""},
	{"date", ""},
	{"etag", ""},
	{"expect", ""},
	{"expires", ""},
	{"from", ""},
	{"host", ""},
	{"if-match", ""},
	{"if-modified-since", ""},
	{"if-none-match", ""},
	{"if-range", ""},
	{"if-unmodified-since", ""},
	{"last-modified", ""},
	{"link", ""},
	{"location", ""},
	{"max-forwards", ""},
	{"proxy-authenticate", ""},
	{"proxy-authorization", ""},
	{"range", ""},
	{"referer", ""},
	{"refresh", ""},
	{"retry-after", ""},
	{"server", ""},
	{"set-cookie", ""},
	{"strict-transport-security", ""},
	{"transfer-encoding", ""},
	{"user-agent", ""},
	{"vary", ""},
	{"via", ""},
	{"www-authenticate", ""},
}

const (
	// ErrorHpackInvalidTableIndex is the spec's InvalidTableIndex kind: an
	// indexed header field representation naming index 0, which RFC 7541
	// §6.1 reserves and never assigns.
	ErrorHpackInvalidTableIndex = errors.MinPkgHttp2Hpack + iota
	ErrorHpackIndexOutOfRange
	ErrorHpackIncompletePrefix
	// ErrorHpackUnsupportedData is the spec's UnsupportedData kind as it
	// applies to Huffman decoding: any bit path that terminates on the
	// EOS-equivalent code (or otherwise isn't a valid prefix code) per
	// RFC 7541 §5.2.
	ErrorHpackUnsupportedData
)

func init() {
	errors.RegisterIdFctMessage(ErrorHpackInvalidTableIndex, hpackMessage)
	errors.RegisterIdFctMessage(ErrorHpackIndexOutOfRange, hpackMessage)
	errors.RegisterIdFctMessage(ErrorHpackIncompletePrefix, hpackMessage)
	errors.RegisterIdFctMessage(ErrorHpackUnsupportedData, hpackMessage)
}

func hpackMessage(code errors.CodeError) string {
	switch code {
	case ErrorHpackInvalidTableIndex:
		return "hpack: index 0 is reserved"
	case ErrorHpackIndexOutOfRange:
		return "hpack: static table index out of range (no dynamic table support)"
	case ErrorHpackIncompletePrefix:
		return "hpack: incomplete integer prefix"
	case ErrorHpackUnsupportedData:
		return "hpack: huffman code reaches the EOS symbol or is otherwise invalid"
	default:
		return ""
	}
}

// StaticTableLookup resolves a 1-based static table index to its name and
// value, per RFC 7541 Appendix A. This decoder deliberately has no dynamic
// table: a reference to index 62+ is reported as ErrorHpackIndexOutOfRange
// rather than silently misbehaving.
func StaticTableLookup(index uint64) (name, value string, err error) {
	if index == 0 {
		return "", "", errors.NewCodeError(ErrorHpackInvalidTableIndex).Error(nil)
	}
	if index >= uint64(len(staticTable)) {
		return "", "", errors.NewCodeError(ErrorHpackIndexOutOfRange).Error(nil)
	}
	e := staticTable[index]
	return e.Name, e.Value, nil
}

// HuffmanDecode expands an RFC 7541 Appendix B Huffman-coded byte string.
// The codec tables themselves are not hand-transcribed here: they are
// reused from golang.org/x/net/http2/hpack, which carries the exact same
// canonical table this package would otherwise have to copy byte-for-byte
// (the DFA this library drives internally is not reimplemented here).
// Any decode failure — including reaching the EOS-equivalent code — is
// reported as ErrorHpackUnsupportedData.
func HuffmanDecode(encoded []byte) ([]byte, error) {
	s, err := hpack.HuffmanDecodeToString(encoded)
	if err != nil {
		return nil, errors.NewCodeError(ErrorHpackUnsupportedData).Error(err)
	}
	return []byte(s), nil
}

// HuffmanEncode produces the Huffman-coded representation of b.
func HuffmanEncode(b []byte) []byte {
	return hpack.AppendHuffmanString(nil, string(b))
}

// EncodeInt writes an RFC 7541 §5.1 prefix-encoded integer into the low
// prefixBits of the first byte (whose high bits are supplied by the
// caller as firstByteHigh, e.g. the indexing flags) and returns the full
// encoded byte sequence.
func EncodeInt(value uint64, prefixBits int, firstByteHigh byte) []byte {
	max := uint64(1<<uint(prefixBits)) - 1

	if value < max {
		return []byte{firstByteHigh | byte(value)}
	}

	out := []byte{firstByteHigh | byte(max)}
	value -= max
	for value >= 128 {
		out = append(out, byte(value%128+128))
		value /= 128
	}
	out = append(out, byte(value))
	return out
}

// DecodeInt reads an RFC 7541 §5.1 prefix-encoded integer starting at b[0],
// given the same prefixBits used to encode it. It returns the decoded
// value and the number of bytes consumed from b.
func DecodeInt(b []byte, prefixBits int) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, errors.NewCodeError(ErrorHpackIncompletePrefix).Error(nil)
	}

	max := uint64(1<<uint(prefixBits)) - 1
	value := uint64(b[0]) & max
	if value < max {
		return value, 1, nil
	}

	m := uint(0)
	for i := 1; ; i++ {
		if i >= len(b) {
			return 0, 0, errors.NewCodeError(ErrorHpackIncompletePrefix).Error(nil)
		}
		octet := b[i]
		value += uint64(octet&0x7F) << m
		m += 7
		if octet&0x80 == 0 {
			return value, i + 1, nil
		}
	}
}
