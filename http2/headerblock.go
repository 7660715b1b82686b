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
)

// HeaderField is one decoded (name, value) pair, in wire order.
type HeaderField struct {
	Name  string
	Value string
}

const (
	ErrorDynamicTableUnsupported = errors.MinPkgHttp2Hpack + 100 + iota
	ErrorHeaderBlockTruncated
)

func init() {
	errors.RegisterIdFctMessage(ErrorDynamicTableUnsupported, blockMessage)
	errors.RegisterIdFctMessage(ErrorHeaderBlockTruncated, blockMessage)
}

func blockMessage(code errors.CodeError) string {
	switch code {
	case ErrorDynamicTableUnsupported:
		return "hpack: dynamic table is not supported by this decoder"
	case ErrorHeaderBlockTruncated:
		return "hpack: header block ends mid field"
	default:
		return ""
	}
}

// DecodeHeaderBlock walks an HPACK header block restricted to the static
// table (RFC 7541 Appendix A) and literal representations, invoking cb for
// every decoded field in wire order. A representation that would mutate
// the (unsupported) dynamic table is handled per spec §4.3: a literal
// with incremental indexing still delivers its field through cb, then
// DecodeHeaderBlock returns ErrorDynamicTableUnsupported immediately —
// the entry can't actually be inserted into a table this decoder doesn't
// keep, so any later indexed reference in the block (or a later block on
// the same connection) can no longer be trusted. A dynamic-table size
// update is a no-op when its encoded size is zero and
// ErrorDynamicTableUnsupported otherwise; it never reaches cb, since it
// carries no header field. The caller (Http2Reader) turns both of these
// into an UnsupportedData event rather than failing the connection.
func DecodeHeaderBlock(data []byte, cb func(HeaderField)) error {
	pos := 0
	for pos < len(data) {
		b := data[pos]

		switch {
		case b&0x80 != 0: // indexed header field
			idx, n, err := DecodeInt(data[pos:], 7)
			if err != nil {
				return err
			}
			pos += n
			name, value, err := StaticTableLookup(idx)
			if err != nil {
				return err
			}
			cb(HeaderField{Name: name, Value: value})

		case b&0xC0 == 0x40: // literal header field with incremental indexing
			name, value, n, err := decodeLiteral(data[pos:], 6)
			if err != nil {
				return err
			}
			pos += n
			cb(HeaderField{Name: name, Value: value})
			return errors.NewCodeError(ErrorDynamicTableUnsupported).Error(nil)

		case b&0xE0 == 0x20: // dynamic table size update
			size, n, err := DecodeInt(data[pos:], 5)
			if err != nil {
				return err
			}
			pos += n
			if size != 0 {
				return errors.NewCodeError(ErrorDynamicTableUnsupported).Error(nil)
			}
			// A zero-size update is a no-op: there is no table to resize.

		case b&0xF0 == 0x10, b&0xF0 == 0x00:
			// literal without indexing / literal never indexed: both carry
			// identical wire shape (4-bit index prefix) for our purposes.
			name, value, n, err := decodeLiteral(data[pos:], 4)
			if err != nil {
				return err
			}
			pos += n
			cb(HeaderField{Name: name, Value: value})

		default:
			return errors.NewCodeError(ErrorHeaderBlockTruncated).Error(nil)
		}
	}
	return nil
}

// decodeLiteral decodes one literal header field representation (index
// prefix width varies by representation) starting at b[0]. If the decoded
// name index is 0, the name itself follows as a string literal; otherwise
// it is resolved against the static table.
func decodeLiteral(b []byte, prefixBits int) (name, value string, consumed int, err error) {
	idx, n, err := DecodeInt(b, prefixBits)
	if err != nil {
		return "", "", 0, err
	}
	pos := n

	if idx == 0 {
		name, n, err = decodeString(b[pos:])
		if err != nil {
			return "", "", 0, err
		}
		pos += n
	} else {
		name, _, err = StaticTableLookup(idx)
		if err != nil {
			return "", "", 0, err
		}
	}

	value, n, err = decodeString(b[pos:])
	if err != nil {
		return "", "", 0, err
	}
	pos += n

	return name, value, pos, nil
}

// decodeString reads an RFC 7541 §5.2 string literal: a huffman flag plus
// 7-bit prefix-encoded length, followed by that many octets (raw, or
// Huffman-coded when the flag is set).
func decodeString(b []byte) (string, int, error) {
	if len(b) == 0 {
		return "", 0, errors.NewCodeError(ErrorHeaderBlockTruncated).Error(nil)
	}

	huff := b[0]&0x80 != 0
	length, n, err := DecodeInt(b, 7)
	if err != nil {
		return "", 0, err
	}

	end := n + int(length)
	if end > len(b) {
		return "", 0, errors.NewCodeError(ErrorHeaderBlockTruncated).Error(nil)
	}
	raw := b[n:end]

	if !huff {
		return string(raw), end, nil
	}

	decoded, err := HuffmanDecode(raw)
	if err != nil {
		return "", 0, err
	}
	return string(decoded), end, nil
}
