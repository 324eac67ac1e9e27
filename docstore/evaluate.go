package docstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/tanisharajgor/Mongo-Exploratory/pipeline"
)

func splitPath(path string) []string {
	return strings.Split(path, ".")
}

// resolvePath returns every value reachable through path for query
// matching. Arrays met on the way are traversed element by element.
func resolvePath(v interface{}, parts []string) []interface{} {
	if len(parts) == 0 {
		return []interface{}{v}
	}
	if arr, ok := asArray(v); ok {
		var out []interface{}
		for _, elem := range arr {
			if _, isDoc := asDoc(elem); isDoc {
				out = append(out, resolvePath(elem, parts)...)
			}
		}
		return out
	}
	child, ok := getField(v, parts[0])
	if !ok {
		return nil
	}
	return resolvePath(child, parts[1:])
}

// evalPath evaluates a "$a.b" field reference. A path crossing an array of
// documents yields the array of the nested values.
func evalPath(v interface{}, parts []string) (interface{}, bool) {
	if len(parts) == 0 {
		return v, true
	}
	if arr, ok := asArray(v); ok {
		out := bson.A{}
		for _, elem := range arr {
			if _, isDoc := asDoc(elem); !isDoc {
				continue
			}
			if val, ok := evalPath(elem, parts); ok {
				out = append(out, val)
			}
		}
		return out, true
	}
	child, ok := getField(v, parts[0])
	if !ok {
		return nil, false
	}
	return evalPath(child, parts[1:])
}

func evalExpr(doc bson.M, expr pipeline.Expr) (interface{}, bool) {
	switch e := expr.(type) {
	case nil:
		return nil, true
	case pipeline.FieldRef:
		return evalPath(doc, splitPath(e.Path))
	case pipeline.LiteralValue:
		return e.Value, true
	case pipeline.DocExpr:
		out := bson.D{}
		for _, f := range e {
			if v, ok := evalExpr(doc, f.Expr); ok {
				out = append(out, bson.E{Key: f.Name, Value: v})
			}
		}
		return out, true
	}
	return nil, false
}

func matchFilter(doc bson.M, filter pipeline.Filter) (bool, error) {
	for _, cond := range filter {
		ok, err := matchCondition(doc, cond)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchCondition(doc bson.M, cond pipeline.Condition) (bool, error) {
	switch c := cond.(type) {
	case pipeline.Eq:
		return matchEq(resolvePath(doc, splitPath(c.Field)), c.Value), nil
	case pipeline.NonEmptyArray:
		candidates := resolvePath(doc, splitPath(c.Field))
		if len(candidates) == 0 {
			return false, nil
		}
		return !matchEq(candidates, bson.A{}), nil
	case pipeline.NearSphere:
		return false, ErrGeoNotAllowed
	}
	return false, fmt.Errorf("unsupported condition %T", cond)
}

// matchEq reports whether any candidate equals value, or contains it when
// the candidate is an array. A nil value also matches a missing field.
func matchEq(candidates []interface{}, value interface{}) bool {
	if value == nil && len(candidates) == 0 {
		return true
	}
	for _, cand := range candidates {
		if compareValues(cand, value) == 0 {
			return true
		}
		if arr, ok := asArray(cand); ok {
			for _, elem := range arr {
				if compareValues(elem, value) == 0 {
					return true
				}
			}
		}
	}
	return false
}

func runPipeline(ctx context.Context, docs []bson.M, p pipeline.Pipeline) ([]bson.M, error) {
	for _, stage := range p.Stages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		switch s := stage.(type) {
		case pipeline.Match:
			docs, err = matchStage(docs, s.Filter)
		case pipeline.Unwind:
			docs = unwindStage(docs, s.Path)
		case pipeline.Group:
			docs, err = groupStage(docs, s)
		case pipeline.Sort:
			docs, err = sortStage(docs, s.Keys)
		case pipeline.Limit:
			if s.N <= 0 {
				return nil, fmt.Errorf("the limit must be positive")
			}
			if int64(len(docs)) > s.N {
				docs = docs[:s.N]
			}
		case pipeline.Project:
			docs = projectAll(docs, s.Projection)
		default:
			return nil, fmt.Errorf("unrecognized pipeline stage name: '%s'", stage.Name())
		}
		if err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func matchStage(docs []bson.M, filter pipeline.Filter) ([]bson.M, error) {
	out := make([]bson.M, 0, len(docs))
	for _, doc := range docs {
		ok, err := matchFilter(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

// unwindStage drops documents whose path is missing, null or an empty
// array. A non-array value passes through unchanged.
func unwindStage(docs []bson.M, path string) []bson.M {
	parts := splitPath(path)
	var out []bson.M
	for _, doc := range docs {
		v, ok := lookupNoTraverse(doc, parts)
		if !ok || v == nil {
			continue
		}
		arr, isArr := asArray(v)
		if !isArr {
			out = append(out, doc)
			continue
		}
		for _, elem := range arr {
			out = append(out, withPath(doc, parts, elem))
		}
	}
	return out
}

func lookupNoTraverse(v interface{}, parts []string) (interface{}, bool) {
	for _, p := range parts {
		child, ok := getField(v, p)
		if !ok {
			return nil, false
		}
		v = child
	}
	return v, true
}

// withPath returns a shallow copy of doc with the value at parts replaced.
// Documents along the path are copied; doc itself is left untouched.
func withPath(doc bson.M, parts []string, value interface{}) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	if len(parts) == 1 {
		out[parts[0]] = value
		return out
	}
	child, _ := out[parts[0]].(bson.M)
	if child == nil {
		child = bson.M{}
	}
	out[parts[0]] = withPath(child, parts[1:], value)
	return out
}

type groupState struct {
	id     interface{}
	values [][]interface{}
	found  [][]bool
}

func groupStage(docs []bson.M, g pipeline.Group) ([]bson.M, error) {
	for _, acc := range g.Accumulators {
		switch acc.Op {
		case pipeline.OpSum, pipeline.OpMin, pipeline.OpMax, pipeline.OpAvg, pipeline.OpFirst:
		default:
			return nil, fmt.Errorf("unknown group operator '%s'", acc.Op)
		}
		if acc.Name == "_id" || strings.Contains(acc.Name, ".") {
			return nil, fmt.Errorf("invalid group field name '%s'", acc.Name)
		}
	}

	index := make(map[string]int)
	var groups []*groupState
	for _, doc := range docs {
		id, _ := evalExpr(doc, g.ID)
		key := canonicalKey(id)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, &groupState{
				id:     id,
				values: make([][]interface{}, len(g.Accumulators)),
				found:  make([][]bool, len(g.Accumulators)),
			})
		}
		st := groups[i]
		for a, acc := range g.Accumulators {
			v, found := evalExpr(doc, acc.Arg)
			st.values[a] = append(st.values[a], v)
			st.found[a] = append(st.found[a], found)
		}
	}

	out := make([]bson.M, 0, len(groups))
	for _, st := range groups {
		res := bson.M{"_id": st.id}
		for a, acc := range g.Accumulators {
			res[acc.Name] = accumulate(acc.Op, st.values[a], st.found[a])
		}
		out = append(out, res)
	}
	return out, nil
}

func accumulate(op pipeline.AccumulatorOp, values []interface{}, found []bool) interface{} {
	switch op {
	case pipeline.OpSum:
		var isum int64
		var fsum float64
		useFloat := false
		for _, v := range values {
			f, ok := toFloat(v)
			if !ok {
				continue
			}
			if isInteger(v) && !useFloat {
				isum += int64(f)
				continue
			}
			if !useFloat {
				fsum = float64(isum)
				useFloat = true
			}
			fsum += f
		}
		if useFloat {
			return fsum
		}
		return isum
	case pipeline.OpAvg:
		var sum float64
		n := 0
		for _, v := range values {
			if f, ok := toFloat(v); ok {
				sum += f
				n++
			}
		}
		if n == 0 {
			return nil
		}
		return sum / float64(n)
	case pipeline.OpMin, pipeline.OpMax:
		var best interface{}
		for _, v := range values {
			if typeRank(v) == 1 {
				continue
			}
			if best == nil {
				best = v
				continue
			}
			c := compareValues(v, best)
			if (op == pipeline.OpMin && c < 0) || (op == pipeline.OpMax && c > 0) {
				best = v
			}
		}
		return best
	case pipeline.OpFirst:
		if len(values) == 0 || !found[0] {
			return nil
		}
		return values[0]
	}
	return nil
}

func sortStage(docs []bson.M, keys []pipeline.SortKey) ([]bson.M, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("$sort stage must have at least one sort key")
	}
	type row struct {
		doc  bson.M
		vals []interface{}
	}
	rows := make([]row, len(docs))
	for i, doc := range docs {
		vals := make([]interface{}, len(keys))
		for k, key := range keys {
			vals[k], _ = evalPath(doc, splitPath(key.Field))
		}
		rows[i] = row{doc: doc, vals: vals}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for k, key := range keys {
			c := compareValues(rows[i].vals[k], rows[j].vals[k])
			if c == 0 {
				continue
			}
			if key.Order == pipeline.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	out := make([]bson.M, len(rows))
	for i, r := range rows {
		out[i] = r.doc
	}
	return out, nil
}

func projectAll(docs []bson.M, projection pipeline.Projection) []bson.M {
	out := make([]bson.M, 0, len(docs))
	for _, doc := range docs {
		out = append(out, project(doc, projection))
	}
	return out
}

// project keeps _id and the listed paths.
func project(doc bson.M, projection pipeline.Projection) bson.M {
	out := bson.M{}
	if id, ok := doc["_id"]; ok {
		out["_id"] = id
	}
	for _, path := range projection {
		includePath(doc, out, splitPath(path))
	}
	return out
}

func includePath(src, dst bson.M, parts []string) {
	v, ok := src[parts[0]]
	if !ok {
		return
	}
	if len(parts) == 1 {
		dst[parts[0]] = v
		return
	}
	switch child := v.(type) {
	case bson.M:
		sub, _ := dst[parts[0]].(bson.M)
		if sub == nil {
			sub = bson.M{}
		}
		includePath(child, sub, parts[1:])
		if len(sub) > 0 {
			dst[parts[0]] = sub
		}
	case bson.A:
		prev, _ := dst[parts[0]].(bson.A)
		arr := bson.A{}
		for _, elem := range child {
			elemDoc, isDoc := elem.(bson.M)
			if !isDoc {
				continue
			}
			sub := bson.M{}
			if n := len(arr); n < len(prev) {
				if p, ok := prev[n].(bson.M); ok {
					sub = p
				}
			}
			includePath(elemDoc, sub, parts[1:])
			arr = append(arr, sub)
		}
		dst[parts[0]] = arr
	}
}
