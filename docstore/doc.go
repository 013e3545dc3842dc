package docstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Fields is the content of a document. Values are strings, numbers,
// bools, time.Time, []any and nested Fields / map[string]any.
type Fields = map[string]any

// Doc is a snapshot of a stored document.
type Doc struct {
	Ref     Ref
	Data    Fields
	Version int64 // 0 means the document did not exist when read
}

func (d *Doc) Exists() bool {
	return d != nil && d.Version > 0
}

// DataTo decodes the document into out, a pointer to a struct tagged with
// `doc:"name"`. Numbers are weakly typed and RFC3339 strings decode into
// time.Time so rows read back from DynamoDB match rows from memory.
func (d *Doc) DataTo(out any) error {
	if d == nil {
		return fmt.Errorf("decode of missing document")
	}
	return Decode(d.Data, out)
}

func Decode(in any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "doc",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

type increment struct {
	n float64
}

// Increment adds n to the numeric field it is assigned to when the write
// is applied. A missing or non-numeric field counts as 0.
func Increment(n float64) any {
	return increment{n: n}
}

type SetOption func(*setOptions)

type setOptions struct {
	merge bool
}

// Merge makes Set deep-merge the given fields into the existing document
// instead of replacing it.
func Merge() SetOption {
	return func(o *setOptions) { o.merge = true }
}

func collectSetOptions(opts []SetOption) setOptions {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type write struct {
	ref    Ref
	fields Fields
	merge  bool
}

// applyWrite returns the document content after the write. The existing
// content is never mutated.
func applyWrite(existing Fields, w write) Fields {
	if !w.merge {
		return mergeFields(Fields{}, w.fields)
	}
	return mergeFields(deepCopy(existing), w.fields)
}

func mergeFields(dst Fields, src Fields) Fields {
	if dst == nil {
		dst = Fields{}
	}
	for k, v := range src {
		switch val := v.(type) {
		case increment:
			cur, _ := toFloat(dst[k])
			dst[k] = cur + val.n
		case map[string]any:
			sub, ok := dst[k].(map[string]any)
			if !ok {
				sub = Fields{}
			}
			dst[k] = mergeFields(sub, val)
		default:
			dst[k] = deepCopyValue(val)
		}
	}
	return dst
}

func deepCopy(f Fields) Fields {
	if f == nil {
		return Fields{}
	}
	res := make(Fields, len(f))
	for k, v := range f {
		res[k] = deepCopyValue(v)
	}
	return res
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopy(val)
	case []any:
		res := make([]any, len(val))
		for i, x := range val {
			res[i] = deepCopyValue(x)
		}
		return res
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

// lookup resolves a dotted field path like "exercise.id".
func lookup(f Fields, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = f
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Number reads a numeric field value; missing or non-numeric values are 0.
func Number(v any) float64 {
	n, _ := toFloat(v)
	return n
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}

func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := toTime(b)
		return ok && ta.Equal(tb)
	}
	switch a.(type) {
	case string, bool:
		return a == b
	}
	return false
}

// compareValues orders numbers, times, strings and bools (false < true).
func compareValues(a, b any) int {
	if fa, ok := toFloat(a); ok {
		fb, _ := toFloat(b)
		return cmpOrdered(fa, fb)
	}
	if ta, ok := a.(time.Time); ok {
		tb, _ := toTime(b)
		return ta.Compare(tb)
	}
	if sa, ok := a.(string); ok {
		if ta, ok := toTime(sa); ok {
			if tb, ok := toTime(b); ok {
				return ta.Compare(tb)
			}
		}
		sb, _ := b.(string)
		return strings.Compare(sa, sb)
	}
	if ba, ok := a.(bool); ok {
		bb, _ := b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		default:
			return 1
		}
	}
	return 0
}

func cmpOrdered(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cloneDoc(d *Doc) *Doc {
	if d == nil {
		return nil
	}
	return &Doc{Ref: d.Ref, Data: deepCopy(d.Data), Version: d.Version}
}
