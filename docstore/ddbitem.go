package docstore

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Document fields live in top-level attributes named "f:" plus the dotted
// path of the leaf, so a blind merge can SET or ADD any leaf without the
// parent maps existing. Lists and empty maps are leaves. Map keys must not
// contain '.'.
const fieldPrefix = "f:"

// Index declares a query DdbStore serves from its own partition. Every
// document of Collection with all Fields set is copied into the partition
// of its field values within the same transaction that writes it, so
// equality queries pinning all Fields read one small partition with strong
// consistency. Documents written before the index was declared are not
// copied.
type Index struct {
	Collection string
	Fields     []string
}

func (idx Index) partition(values []string) string {
	var b strings.Builder
	b.WriteString("idx|")
	b.WriteString(idx.Collection)
	for i, f := range idx.Fields {
		b.WriteString("|")
		b.WriteString(f)
		b.WriteString("=")
		b.WriteString(values[i])
	}
	return b.String()
}

// docPartition is the partition holding the copy of a document with this
// content; false when an indexed field is missing.
func (idx Index) docPartition(data Fields) (string, bool) {
	values := make([]string, len(idx.Fields))
	for i, f := range idx.Fields {
		v, ok := lookup(data, f)
		if !ok {
			return "", false
		}
		values[i], ok = indexValue(v)
		if !ok {
			return "", false
		}
	}
	return idx.partition(values), true
}

// queryPartition picks the partition for equality filters that pin every
// indexed field and returns the filters it does not cover.
func (idx Index) queryPartition(filters []filter) (string, []filter, bool) {
	values := make([]string, len(idx.Fields))
	used := make([]bool, len(filters))
	for i, f := range idx.Fields {
		found := false
		for j, flt := range filters {
			if used[j] || flt.field != f {
				continue
			}
			v, ok := indexValue(flt.value)
			if !ok {
				continue
			}
			values[i] = v
			used[j] = true
			found = true
			break
		}
		if !found {
			return "", nil, false
		}
	}
	var rest []filter
	for j, flt := range filters {
		if !used[j] {
			rest = append(rest, flt)
		}
	}
	return idx.partition(values), rest, true
}

func indexValue(v any) (string, bool) {
	if n, ok := toFloat(v); ok {
		return "n:" + strconv.FormatFloat(n, 'f', -1, 64), true
	}
	switch val := v.(type) {
	case string:
		return "s:" + url.QueryEscape(val), true
	case bool:
		return "b:" + strconv.FormatBool(val), true
	}
	return "", false
}

func flatten(prefix string, f Fields, out map[string]any) {
	for k, v := range f {
		path := prefix + k
		if m, ok := v.(map[string]any); ok && len(m) > 0 {
			flatten(path+".", m, out)
			continue
		}
		out[path] = v
	}
}

type fieldOp struct {
	value any
	add   float64
	isAdd bool
}

// foldMerge folds a merge write into per-leaf update operations. A later
// assignment replaces an earlier one and increments add up, matching
// mergeFields as long as no merge replaces a map with a scalar.
func foldMerge(ops map[string]fieldOp, prefix string, fields Fields) {
	for k, v := range fields {
		path := prefix + k
		switch val := v.(type) {
		case increment:
			op, ok := ops[path]
			switch {
			case !ok:
				ops[path] = fieldOp{add: val.n, isAdd: true}
			case op.isAdd:
				op.add += val.n
				ops[path] = op
			default:
				ops[path] = fieldOp{value: Number(op.value) + val.n}
			}
		case map[string]any:
			if len(val) == 0 {
				if _, ok := ops[path]; !ok {
					ops[path] = fieldOp{value: Fields{}}
				}
				continue
			}
			foldMerge(ops, path+".", val)
		default:
			ops[path] = fieldOp{value: deepCopyValue(val)}
		}
	}
}

func stringAttr(s string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: s}
}

func keyAttrs(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": stringAttr(pk),
		"sk": stringAttr(sk),
	}
}

// encodeItem builds a full item. grp is left out for index copies so they
// stay out of collection-group queries.
func encodeItem(pk, sk, grp string, data Fields, version int64) (map[string]types.AttributeValue, error) {
	item := keyAttrs(pk, sk)
	if grp != "" {
		item["grp"] = stringAttr(grp)
	}
	item["version"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)}

	flat := make(map[string]any)
	flatten("", data, flat)
	for path, v := range flat {
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field %s: %w", path, err)
		}
		item[fieldPrefix+path] = av
	}
	return item, nil
}

// decodeItem rebuilds a document from its item. Paths are applied in
// sorted order so a map always wins over a stale scalar at its own path.
func decodeItem(ref Ref, item map[string]types.AttributeValue) (*Doc, error) {
	doc := &Doc{Ref: ref, Data: Fields{}}
	if av, ok := item["version"]; ok {
		if err := attributevalue.Unmarshal(av, &doc.Version); err != nil {
			return nil, fmt.Errorf("failed to unmarshal version of %s: %w", ref, err)
		}
	}

	paths := make([]string, 0, len(item))
	for name := range item {
		if strings.HasPrefix(name, fieldPrefix) {
			paths = append(paths, name)
		}
	}
	sort.Strings(paths)
	for _, name := range paths {
		var v any
		if err := attributevalue.Unmarshal(item[name], &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal field %s of %s: %w", name, ref, err)
		}
		setPath(doc.Data, strings.Split(strings.TrimPrefix(name, fieldPrefix), "."), v)
	}
	return doc, nil
}

func setPath(dst Fields, parts []string, v any) {
	for _, p := range parts[:len(parts)-1] {
		sub, ok := dst[p].(map[string]any)
		if !ok {
			sub = Fields{}
			dst[p] = sub
		}
		dst = sub
	}
	last := parts[len(parts)-1]
	if m, ok := v.(map[string]any); ok {
		if cur, ok := dst[last].(map[string]any); ok {
			mergeFields(cur, m)
			return
		}
	}
	dst[last] = v
}

func itemString(item map[string]types.AttributeValue, name string) string {
	if s, ok := item[name].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}
