package sourcemap

import (
	"bytes"

	"github.com/evanw/postcss/internal/helpers"
)

type Mapping struct {
	GeneratedLine   int32 // 0-based
	GeneratedColumn int32 // 0-based count of UTF-16 code units

	SourceIndex    int32 // 0-based
	OriginalLine   int32 // 0-based
	OriginalColumn int32 // 0-based count of UTF-16 code units
}

var base64 = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/")

// A single base 64 digit can contain 6 bits of data. For the base 64 variable
// length quantities we use in the source map spec, the first bit is the sign,
// the next four bits are the actual value, and the 6th bit is the continuation
// bit. The continuation bit tells us whether there are more digits in this
// value following this digit.
//
//	Continuation
//	|    Sign
//	|    |
//	V    V
//	101011
func encodeVLQ(encoded []byte, value int) []byte {
	var vlq int
	if value < 0 {
		vlq = ((-value) << 1) | 1
	} else {
		vlq = value << 1
	}

	// Handle the common case
	if (vlq >> 5) == 0 {
		digit := vlq & 31
		encoded = append(encoded, base64[digit])
		return encoded
	}

	for {
		digit := vlq & 31
		vlq >>= 5

		// If there are still more digits in this value, we must make sure the
		// continuation bit is marked
		if vlq != 0 {
			digit |= 32
		}

		encoded = append(encoded, base64[digit])

		if vlq == 0 {
			break
		}
	}

	return encoded
}

func DecodeVLQ(encoded []byte, start int) (int, int) {
	shift := 0
	vlq := 0

	// Scan over the input
	for start < len(encoded) {
		index := bytes.IndexByte(base64, encoded[start])
		if index < 0 {
			break
		}

		// Decode a single byte
		vlq |= (index & 31) << shift
		start++
		shift += 5

		// Stop if there's no continuation bit
		if (index & 32) == 0 {
			break
		}
	}

	// Recover the value
	value := vlq >> 1
	if (vlq & 1) != 0 {
		value = -value
	}
	return value, start
}

type LineColumnOffset struct {
	Lines   int
	Columns int
}

func (offset *LineColumnOffset) AdvanceString(text string) {
	columns := offset.Columns
	for i, c := range text {
		switch c {
		case '\r', '\n', ' ', ' ':
			// Handle Windows-specific "\r\n" newlines
			if c == '\r' && i+1 < len(text) && text[i+1] == '\n' {
				columns++
				continue
			}

			offset.Lines++
			columns = 0

		default:
			// Mozilla's "source-map" library counts columns using UTF-16 code units
			if c <= 0xFFFF {
				columns++
			} else {
				columns += 2
			}
		}
	}
	offset.Columns = columns
}

func (offset *LineColumnOffset) AdvanceBytes(data []byte) {
	offset.AdvanceString(string(data))
}

// EncodeMappings serializes mappings, which must be ordered by generated
// position, into the VLQ "mappings" string.
func EncodeMappings(mappings []Mapping) string {
	buffer := []byte{}
	prevGeneratedLine := int32(0)
	prevGeneratedColumn := int32(0)
	prevSourceIndex := int32(0)
	prevOriginalLine := int32(0)
	prevOriginalColumn := int32(0)
	needsComma := false

	for _, mapping := range mappings {
		for prevGeneratedLine < mapping.GeneratedLine {
			buffer = append(buffer, ';')
			prevGeneratedLine++
			prevGeneratedColumn = 0
			needsComma = false
		}
		if needsComma {
			buffer = append(buffer, ',')
		}
		buffer = encodeVLQ(buffer, int(mapping.GeneratedColumn-prevGeneratedColumn))
		buffer = encodeVLQ(buffer, int(mapping.SourceIndex-prevSourceIndex))
		buffer = encodeVLQ(buffer, int(mapping.OriginalLine-prevOriginalLine))
		buffer = encodeVLQ(buffer, int(mapping.OriginalColumn-prevOriginalColumn))
		prevGeneratedColumn = mapping.GeneratedColumn
		prevSourceIndex = mapping.SourceIndex
		prevOriginalLine = mapping.OriginalLine
		prevOriginalColumn = mapping.OriginalColumn
		needsComma = true
	}

	return string(buffer)
}

// SourceMap is the data that ends up in the Source Map v3 JSON object.
type SourceMap struct {
	File           string
	Sources        []string
	SourcesContent []string // empty when unknown; aligned with Sources when not
	Mappings       []Mapping
}

// EncodeJSON assembles the Source Map v3 JSON object. The JSON is built with
// the quoting helper instead of a marshaller so the key order is stable and
// nothing escapes differently between runs.
func (sm *SourceMap) EncodeJSON() []byte {
	j := helpers.Joiner{}
	j.AddString("{\n  \"version\": 3,\n  \"file\": ")
	j.AddBytes(helpers.QuoteForJSON(sm.File))
	j.AddString(",\n  \"sources\": [")
	for i, source := range sm.Sources {
		if i > 0 {
			j.AddString(", ")
		}
		j.AddBytes(helpers.QuoteForJSON(source))
	}
	j.AddString("]")
	if len(sm.SourcesContent) > 0 {
		j.AddString(",\n  \"sourcesContent\": [")
		for i, content := range sm.SourcesContent {
			if i > 0 {
				j.AddString(", ")
			}
			j.AddBytes(helpers.QuoteForJSON(content))
		}
		j.AddString("]")
	}
	j.AddString(",\n  \"names\": [],\n  \"mappings\": ")
	j.AddBytes(helpers.QuoteForJSON(EncodeMappings(sm.Mappings)))
	j.AddString("\n}\n")
	return j.Done()
}
