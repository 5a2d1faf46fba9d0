package bose

import (
	"github.com/joeycumines/go-utilpkg/jsonenc"
)

// AppendJSON renders v as JSON, appending to dst. Strings are escaped
// with jsonenc.AppendString, the same routine the stumpy logging
// backend uses for its own structured-log field values (itself derived
// from zerolog's AppendString), rather than hand-rolling escaping.
func AppendJSON(dst []byte, v Value) []byte {
	switch v.Kind() {
	case KindNull:
		return append(dst, "null"...)
	case KindTrue:
		return append(dst, "true"...)
	case KindFalse:
		return append(dst, "false"...)
	case KindInt:
		return append(dst, v.Int().String()...)
	case KindOctets:
		return jsonenc.AppendString(dst, string(v.Bytes()))
	case KindUTF8, KindUTF16:
		return jsonenc.AppendString(dst, v.Str())
	case KindArray:
		dst = append(dst, '[')
		for i, e := range v.Elems() {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = AppendJSON(dst, e)
		}
		return append(dst, ']')
	case KindObject:
		dst = append(dst, '{')
		for i, p := range v.Pairs() {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = jsonenc.AppendString(dst, p.Key)
			dst = append(dst, ':')
			dst = AppendJSON(dst, p.Value)
		}
		return append(dst, '}')
	default:
		panic("bose: AppendJSON of invalid Value")
	}
}

// JSON renders v as a JSON string, the BOSE codec's JSON printer
// component.
func JSON(v Value) string {
	return string(AppendJSON(nil, v))
}
