// Package filters implements the PDF stream filter pipeline.
package filters

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/pdflex/pdflex/pdf/generic"
)

// Filter transforms a stream payload in one direction of the pipeline.
// params is the /DecodeParms dictionary for this filter stage, possibly nil.
type Filter interface {
	Decode(data []byte, params *generic.DictionaryObject) ([]byte, error)
	Encode(data []byte, params *generic.DictionaryObject) ([]byte, error)
	// Name returns the canonical filter name.
	Name() string
}

func paramInt(params *generic.DictionaryObject, key string, def int64) int64 {
	if params == nil {
		return def
	}
	if v, ok := params.GetInt(key); ok {
		return v
	}
	return def
}

// FlateDecodeFilter implements FlateDecode (zlib compression).
type FlateDecodeFilter struct{}

// Name implements Filter.
func (f *FlateDecodeFilter) Name() string {
	return "FlateDecode"
}

// Decode implements Filter.
func (f *FlateDecodeFilter) Decode(data []byte, params *generic.DictionaryObject) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: flate: %v", generic.ErrCorruptedFile, err)
	}
	defer r.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, fmt.Errorf("%w: flate: %v", generic.ErrCorruptedFile, err)
	}

	return applyPredictor(buf.Bytes(), params)
}

// Encode implements Filter.
func (f *FlateDecodeFilter) Encode(data []byte, params *generic.DictionaryObject) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("flate encode: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("flate encode: %w", err)
	}
	return buf.Bytes(), nil
}

// applyPredictor reverses the /Predictor transform after decompression.
// Predictor 1 is the identity; 10..15 are the PNG row predictors.
func applyPredictor(data []byte, params *generic.DictionaryObject) ([]byte, error) {
	predictor := paramInt(params, "Predictor", 1)
	if predictor <= 1 {
		return data, nil
	}

	columns := paramInt(params, "Columns", 1)
	colors := paramInt(params, "Colors", 1)
	bitsPerComponent := paramInt(params, "BitsPerComponent", 8)

	bytesPerPixel := int(colors*bitsPerComponent+7) / 8
	rowLength := int(columns*colors*bitsPerComponent+7)/8 + 1 // +1 for the filter byte

	if predictor >= 10 && predictor <= 15 {
		return decodePNGPredictor(data, rowLength, bytesPerPixel)
	}
	return nil, fmt.Errorf("%w: predictor %d", generic.ErrUnsupportedFeature, predictor)
}

func decodePNGPredictor(data []byte, rowLength, bytesPerPixel int) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	if len(data)%rowLength != 0 {
		return nil, fmt.Errorf("%w: predictor data is not a whole number of rows", generic.ErrCorruptedFile)
	}

	output := make([]byte, 0, len(data)/rowLength*(rowLength-1))
	prevRow := make([]byte, rowLength-1)

	for i := 0; i < len(data); i += rowLength {
		filterType := data[i]
		row := data[i+1 : i+rowLength]
		decodedRow := make([]byte, len(row))

		switch filterType {
		case 0: // None
			copy(decodedRow, row)
		case 1: // Sub
			for j := range row {
				left := byte(0)
				if j >= bytesPerPixel {
					left = decodedRow[j-bytesPerPixel]
				}
				decodedRow[j] = row[j] + left
			}
		case 2: // Up
			for j := range row {
				decodedRow[j] = row[j] + prevRow[j]
			}
		case 3: // Average
			for j := range row {
				left := byte(0)
				if j >= bytesPerPixel {
					left = decodedRow[j-bytesPerPixel]
				}
				up := prevRow[j]
				decodedRow[j] = row[j] + byte((int(left)+int(up))/2)
			}
		case 4: // Paeth
			for j := range row {
				left := byte(0)
				upLeft := byte(0)
				if j >= bytesPerPixel {
					left = decodedRow[j-bytesPerPixel]
					upLeft = prevRow[j-bytesPerPixel]
				}
				decodedRow[j] = row[j] + paethPredictor(left, prevRow[j], upLeft)
			}
		default:
			return nil, fmt.Errorf("%w: PNG filter type %d", generic.ErrCorruptedFile, filterType)
		}

		output = append(output, decodedRow...)
		copy(prevRow, decodedRow)
	}

	return output, nil
}

func paethPredictor(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))

	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ASCIIHexDecodeFilter implements ASCIIHexDecode.
type ASCIIHexDecodeFilter struct{}

// Name implements Filter.
func (f *ASCIIHexDecodeFilter) Name() string {
	return "ASCIIHexDecode"
}

// Decode implements Filter. Whitespace is ignored, '>' ends the data, and
// an odd trailing digit is padded with 0.
func (f *ASCIIHexDecodeFilter) Decode(data []byte, params *generic.DictionaryObject) ([]byte, error) {
	var cleaned bytes.Buffer
	for _, b := range data {
		if b == '>' {
			break
		}
		switch b {
		case ' ', '\t', '\n', '\r', '\x00', '\x0c':
			continue
		}
		cleaned.WriteByte(b)
	}

	hexStr := cleaned.String()
	if len(hexStr)%2 != 0 {
		hexStr += "0"
	}

	decoded, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("%w: ASCIIHex: %v", generic.ErrCorruptedFile, err)
	}
	return decoded, nil
}

// Encode implements Filter.
func (f *ASCIIHexDecodeFilter) Encode(data []byte, params *generic.DictionaryObject) ([]byte, error) {
	return []byte(hex.EncodeToString(data) + ">"), nil
}

// ASCII85DecodeFilter implements ASCII85Decode.
type ASCII85DecodeFilter struct{}

// Name implements Filter.
func (f *ASCII85DecodeFilter) Name() string {
	return "ASCII85Decode"
}

// Decode implements Filter. Data ends at the "~>" marker; whitespace is
// ignored.
func (f *ASCII85DecodeFilter) Decode(data []byte, params *generic.DictionaryObject) ([]byte, error) {
	if end := bytes.Index(data, []byte("~>")); end != -1 {
		data = data[:end]
	}
	data = bytes.TrimPrefix(data, []byte("<~"))

	var cleaned bytes.Buffer
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r', '\x00', '\x0c':
			continue
		}
		cleaned.WriteByte(b)
	}

	decoder := ascii85.NewDecoder(bytes.NewReader(cleaned.Bytes()))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, decoder); err != nil {
		return nil, fmt.Errorf("%w: ASCII85: %v", generic.ErrCorruptedFile, err)
	}

	return buf.Bytes(), nil
}

// Encode implements Filter.
func (f *ASCII85DecodeFilter) Encode(data []byte, params *generic.DictionaryObject) ([]byte, error) {
	var buf bytes.Buffer
	encoder := ascii85.NewEncoder(&buf)
	if _, err := encoder.Write(data); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	buf.WriteString("~>")
	return buf.Bytes(), nil
}

// LZWDecodeFilter implements LZWDecode. PDF LZW defaults to /EarlyChange 1,
// where the code width grows one code earlier than in the plain variant, so
// compress/lzw cannot be used here.
type LZWDecodeFilter struct{}

// Name implements Filter.
func (f *LZWDecodeFilter) Name() string {
	return "LZWDecode"
}

const (
	lzwClearCode = 256
	lzwEODCode   = 257
	lzwMaxBits   = 12
)

// Decode implements Filter.
func (f *LZWDecodeFilter) Decode(data []byte, params *generic.DictionaryObject) ([]byte, error) {
	earlyChange := int(paramInt(params, "EarlyChange", 1))

	table := make(map[int][]byte, 4096)
	resetTable := func() {
		for k := range table {
			delete(table, k)
		}
		for i := 0; i < 256; i++ {
			table[i] = []byte{byte(i)}
		}
	}
	resetTable()

	nextCode := 258
	codeLen := 9

	bitPos := 0
	readCode := func() int {
		if bitPos+codeLen > len(data)*8 {
			return lzwEODCode
		}
		code := 0
		for i := 0; i < codeLen; i++ {
			byteIdx := (bitPos + i) / 8
			bitIdx := 7 - ((bitPos + i) % 8)
			if (data[byteIdx]>>bitIdx)&1 == 1 {
				code |= 1 << (codeLen - 1 - i)
			}
		}
		bitPos += codeLen
		return code
	}

	var output bytes.Buffer
	var prevSeq []byte

	for {
		code := readCode()
		if code == lzwEODCode {
			break
		}
		if code == lzwClearCode {
			resetTable()
			nextCode = 258
			codeLen = 9
			prevSeq = nil
			continue
		}

		var seq []byte
		if s, ok := table[code]; ok {
			seq = s
		} else if code == nextCode && prevSeq != nil {
			seq = append(append([]byte{}, prevSeq...), prevSeq[0])
		} else {
			return nil, fmt.Errorf("%w: invalid LZW code %d", generic.ErrCorruptedFile, code)
		}

		output.Write(seq)

		if prevSeq != nil {
			entry := append(append([]byte{}, prevSeq...), seq[0])
			table[nextCode] = entry
			nextCode++
			// The decoder trails the encoder by one pending table entry,
			// so it widens codes one entry earlier than the encoder does.
			if nextCode+earlyChange >= 1<<codeLen && codeLen < lzwMaxBits {
				codeLen++
			}
		}
		prevSeq = seq
	}

	return applyPredictor(output.Bytes(), params)
}

// Encode implements Filter. The output always starts with a clear code and
// ends with EOD, matching what Decode expects.
func (f *LZWDecodeFilter) Encode(data []byte, params *generic.DictionaryObject) ([]byte, error) {
	earlyChange := int(paramInt(params, "EarlyChange", 1))

	var out bytes.Buffer
	var bitBuf uint32
	bitCount := 0
	codeLen := 9

	emit := func(code int) {
		bitBuf = bitBuf<<codeLen | uint32(code)
		bitCount += codeLen
		for bitCount >= 8 {
			out.WriteByte(byte(bitBuf >> (bitCount - 8)))
			bitCount -= 8
		}
	}

	table := make(map[string]int, 4096)
	resetTable := func() {
		for k := range table {
			delete(table, k)
		}
		for i := 0; i < 256; i++ {
			table[string([]byte{byte(i)})] = i
		}
	}
	resetTable()
	nextCode := 258

	emit(lzwClearCode)

	var w []byte
	for _, c := range data {
		wc := append(append([]byte{}, w...), c)
		if _, ok := table[string(wc)]; ok {
			w = wc
			continue
		}

		emit(table[string(w)])
		table[string(wc)] = nextCode
		nextCode++
		if nextCode+earlyChange-1 >= 1<<codeLen {
			if codeLen < lzwMaxBits {
				codeLen++
			} else {
				emit(lzwClearCode)
				resetTable()
				nextCode = 258
				codeLen = 9
			}
		}
		w = []byte{c}
	}

	if len(w) > 0 {
		emit(table[string(w)])
	}
	emit(lzwEODCode)

	if bitCount > 0 {
		out.WriteByte(byte(bitBuf << (8 - bitCount)))
	}
	return out.Bytes(), nil
}

// RunLengthDecodeFilter implements RunLengthDecode.
type RunLengthDecodeFilter struct{}

// Name implements Filter.
func (f *RunLengthDecodeFilter) Name() string {
	return "RunLengthDecode"
}

// Decode implements Filter. A length byte 0..127 copies the next length+1
// bytes, 129..255 repeats the next byte 257-length times, 128 is EOD.
func (f *RunLengthDecodeFilter) Decode(data []byte, params *generic.DictionaryObject) ([]byte, error) {
	var output bytes.Buffer
	i := 0

	for i < len(data) {
		length := int(data[i])
		i++

		if length == 128 {
			break
		} else if length < 128 {
			count := length + 1
			if i+count > len(data) {
				return nil, fmt.Errorf("%w: truncated run-length data", generic.ErrCorruptedFile)
			}
			output.Write(data[i : i+count])
			i += count
		} else {
			count := 257 - length
			if i >= len(data) {
				return nil, fmt.Errorf("%w: truncated run-length data", generic.ErrCorruptedFile)
			}
			for j := 0; j < count; j++ {
				output.WriteByte(data[i])
			}
			i++
		}
	}

	return output.Bytes(), nil
}

// Encode implements Filter.
func (f *RunLengthDecodeFilter) Encode(data []byte, params *generic.DictionaryObject) ([]byte, error) {
	var output bytes.Buffer
	i := 0

	for i < len(data) {
		runStart := i
		for i < len(data)-1 && data[i] == data[i+1] && i-runStart < 127 {
			i++
		}

		runLength := i - runStart + 1
		if runLength > 1 {
			output.WriteByte(byte(257 - runLength))
			output.WriteByte(data[runStart])
			i++
		} else {
			literalStart := i
			for i < len(data) && (i == len(data)-1 || data[i] != data[i+1]) && i-literalStart < 127 {
				i++
			}
			literalLength := i - literalStart
			output.WriteByte(byte(literalLength - 1))
			output.Write(data[literalStart:i])
		}
	}

	output.WriteByte(128) // EOD
	return output.Bytes(), nil
}

// Registry maps filter names, including the abbreviated forms, to their
// implementations.
var Registry = map[string]Filter{
	"FlateDecode":     &FlateDecodeFilter{},
	"Fl":              &FlateDecodeFilter{},
	"ASCIIHexDecode":  &ASCIIHexDecodeFilter{},
	"AHx":             &ASCIIHexDecodeFilter{},
	"ASCII85Decode":   &ASCII85DecodeFilter{},
	"A85":             &ASCII85DecodeFilter{},
	"LZWDecode":       &LZWDecodeFilter{},
	"LZW":             &LZWDecodeFilter{},
	"RunLengthDecode": &RunLengthDecodeFilter{},
	"RL":              &RunLengthDecodeFilter{},
}

// GetFilter returns a filter by name.
func GetFilter(name string) (Filter, error) {
	if f, ok := Registry[name]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: filter %s", generic.ErrUnsupportedFeature, name)
}

// DecodeStream runs data through the named filters in order.
func DecodeStream(data []byte, names []string, decodeParms []*generic.DictionaryObject) ([]byte, error) {
	result := data

	for i, name := range names {
		filter, err := GetFilter(name)
		if err != nil {
			return nil, err
		}

		var params *generic.DictionaryObject
		if i < len(decodeParms) {
			params = decodeParms[i]
		}

		result, err = filter.Decode(result, params)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", name, err)
		}
	}

	return result, nil
}

// EncodeStream runs data through the named filters in reverse order, so
// that decoding with the same filter list restores the input.
func EncodeStream(data []byte, names []string, encodeParms []*generic.DictionaryObject) ([]byte, error) {
	result := data

	for i := len(names) - 1; i >= 0; i-- {
		filter, err := GetFilter(names[i])
		if err != nil {
			return nil, err
		}

		var params *generic.DictionaryObject
		if i < len(encodeParms) {
			params = encodeParms[i]
		}

		result, err = filter.Encode(result, params)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", names[i], err)
		}
	}

	return result, nil
}

// DecodeStreamObject decodes a stream's payload through its declared
// /Filter chain with the matching /DecodeParms, caching the result on the
// stream. A stream with no filters decodes to its raw payload.
func DecodeStreamObject(s *generic.StreamObject) ([]byte, error) {
	if decoded, ok := s.Decoded(); ok {
		return decoded, nil
	}

	names := s.FilterNames()
	if len(names) == 0 {
		s.SetDecoded(s.Raw)
		return s.Raw, nil
	}

	decoded, err := DecodeStream(s.Raw, names, decodeParms(s.Dictionary, len(names)))
	if err != nil {
		return nil, err
	}
	s.SetDecoded(decoded)
	return decoded, nil
}

// decodeParms normalizes /DecodeParms into one (possibly nil) dictionary
// per filter stage. A single dictionary applies to a single-filter chain;
// an array is positional with null for stages without parameters.
func decodeParms(dict *generic.DictionaryObject, stages int) []*generic.DictionaryObject {
	parms := make([]*generic.DictionaryObject, stages)

	raw := dict.Get("DecodeParms")
	if raw == nil {
		raw = dict.Get("DP")
	}

	switch v := raw.(type) {
	case *generic.DictionaryObject:
		if stages > 0 {
			parms[0] = v
		}
	case generic.ArrayObject:
		for i := 0; i < stages && i < len(v); i++ {
			if d, ok := v[i].(*generic.DictionaryObject); ok {
				parms[i] = d
			}
		}
	}
	return parms
}
