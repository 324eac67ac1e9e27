package docstore

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// normalize converts any marshalable document into a bson.M with nested
// documents as bson.M and arrays as bson.A.
func normalize(document interface{}) (bson.M, error) {
	raw, err := bson.Marshal(document)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// decodeAll decodes docs into results, a pointer to a slice, through BSON
// so struct tags apply the same way they do for driver cursors.
func decodeAll(docs []bson.M, results interface{}) error {
	rv := reflect.ValueOf(results)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Slice {
		return ErrInvalidResults
	}
	sliceVal := rv.Elem()
	elemType := sliceVal.Type().Elem()
	out := reflect.MakeSlice(sliceVal.Type(), 0, len(docs))
	for _, doc := range docs {
		raw, err := bson.Marshal(doc)
		if err != nil {
			return err
		}
		elem := reflect.New(elemType)
		if err := bson.Unmarshal(raw, elem.Interface()); err != nil {
			return err
		}
		out = reflect.Append(out, elem.Elem())
	}
	sliceVal.Set(out)
	return nil
}

func asDoc(v interface{}) (bson.D, bool) {
	switch t := v.(type) {
	case bson.D:
		return t, true
	case bson.M:
		return sortedEntries(t), true
	case map[string]interface{}:
		return sortedEntries(t), true
	}
	return nil, false
}

func sortedEntries(m map[string]interface{}) bson.D {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(bson.D, 0, len(keys))
	for _, k := range keys {
		out = append(out, bson.E{Key: k, Value: m[k]})
	}
	return out
}

func asArray(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case bson.A:
		return t, true
	case []interface{}:
		return t, true
	}
	return nil, false
}

func getField(v interface{}, key string) (interface{}, bool) {
	switch t := v.(type) {
	case bson.M:
		val, ok := t[key]
		return val, ok
	case map[string]interface{}:
		val, ok := t[key]
		return val, ok
	case bson.D:
		for _, e := range t {
			if e.Key == key {
				return e.Value, true
			}
		}
	}
	return nil, false
}

func isNumber(v interface{}) bool {
	_, ok := toFloat(v)
	return ok
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(n.String(), 64)
		return f, err == nil
	}
	return 0, false
}

func isInteger(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// typeRank orders values of different BSON types the way MongoDB sorts them.
func typeRank(v interface{}) int {
	if v == nil {
		return 1
	}
	if isNumber(v) {
		return 2
	}
	switch v.(type) {
	case primitive.Null, primitive.Undefined:
		return 1
	case string, primitive.Symbol:
		return 3
	case bson.D, bson.M, map[string]interface{}:
		return 4
	case bson.A, []interface{}:
		return 5
	case primitive.Binary, []byte:
		return 6
	case primitive.ObjectID:
		return 7
	case bool:
		return 8
	case primitive.DateTime, time.Time:
		return 9
	case primitive.Timestamp:
		return 10
	case primitive.Regex:
		return 11
	}
	return 12
}

// compareValues returns -1, 0 or 1. Values of different types compare by
// type rank; numbers of any width compare by value.
func compareValues(a, b interface{}) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return compareInts(int64(ra), int64(rb))
	}
	switch ra {
	case 1:
		return 0
	case 2:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 3:
		return strings.Compare(stringOf(a), stringOf(b))
	case 4:
		da, _ := asDoc(a)
		db, _ := asDoc(b)
		for i := 0; i < len(da) && i < len(db); i++ {
			if c := strings.Compare(da[i].Key, db[i].Key); c != 0 {
				return c
			}
			if c := compareValues(da[i].Value, db[i].Value); c != 0 {
				return c
			}
		}
		return compareInts(int64(len(da)), int64(len(db)))
	case 5:
		aa, _ := asArray(a)
		ab, _ := asArray(b)
		for i := 0; i < len(aa) && i < len(ab); i++ {
			if c := compareValues(aa[i], ab[i]); c != 0 {
				return c
			}
		}
		return compareInts(int64(len(aa)), int64(len(ab)))
	case 6:
		return bytes.Compare(bytesOf(a), bytesOf(b))
	case 7:
		oa, ob := a.(primitive.ObjectID), b.(primitive.ObjectID)
		return bytes.Compare(oa[:], ob[:])
	case 8:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	case 9:
		return compareInts(millisOf(a), millisOf(b))
	case 10:
		ta, tb := a.(primitive.Timestamp), b.(primitive.Timestamp)
		return primitive.CompareTimestamp(ta, tb)
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func stringOf(v interface{}) string {
	if s, ok := v.(primitive.Symbol); ok {
		return string(s)
	}
	s, _ := v.(string)
	return s
}

func bytesOf(v interface{}) []byte {
	if b, ok := v.(primitive.Binary); ok {
		return b.Data
	}
	b, _ := v.([]byte)
	return b
}

func millisOf(v interface{}) int64 {
	if d, ok := v.(primitive.DateTime); ok {
		return int64(d)
	}
	t, _ := v.(time.Time)
	return t.UnixMilli()
}

// canonicalKey renders v so that values comparing equal produce the same
// key, e.g. int32(1), int64(1) and 1.0.
func canonicalKey(v interface{}) string {
	var sb strings.Builder
	writeCanonical(&sb, v)
	return sb.String()
}

func writeCanonical(sb *strings.Builder, v interface{}) {
	switch typeRank(v) {
	case 1:
		sb.WriteString("null")
	case 2:
		f, _ := toFloat(v)
		if math.IsNaN(f) {
			sb.WriteString("n:NaN")
			return
		}
		sb.WriteString("n:")
		sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case 3:
		sb.WriteString("s:")
		sb.WriteString(strconv.Quote(stringOf(v)))
	case 4:
		d, _ := asDoc(v)
		sb.WriteByte('{')
		for i, e := range d {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Quote(e.Key))
			sb.WriteByte(':')
			writeCanonical(sb, e.Value)
		}
		sb.WriteByte('}')
	case 5:
		a, _ := asArray(v)
		sb.WriteByte('[')
		for i, e := range a {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCanonical(sb, e)
		}
		sb.WriteByte(']')
	case 7:
		sb.WriteString("oid:")
		sb.WriteString(v.(primitive.ObjectID).Hex())
	case 9:
		sb.WriteString("date:")
		sb.WriteString(strconv.FormatInt(millisOf(v), 10))
	default:
		fmt.Fprintf(sb, "%T:%v", v, v)
	}
}
