package pipeline

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Stage is one step of an aggregation pipeline.
type Stage interface {
	Name() string
	Spec() interface{}
}

// Match keeps documents satisfying Filter.
type Match struct {
	Filter Filter
}

func (s Match) Name() string      { return "$match" }
func (s Match) Spec() interface{} { return s.Filter.BSON() }

// Unwind emits one document per element of the array at Path.
type Unwind struct {
	Path string
}

func (s Unwind) Name() string      { return "$unwind" }
func (s Unwind) Spec() interface{} { return "$" + s.Path }

// AccumulatorOp is a group accumulator operator.
type AccumulatorOp string

const (
	OpSum   AccumulatorOp = "$sum"
	OpMin   AccumulatorOp = "$min"
	OpMax   AccumulatorOp = "$max"
	OpAvg   AccumulatorOp = "$avg"
	OpFirst AccumulatorOp = "$first"
)

// Accumulator computes output field Name from Arg over each group.
type Accumulator struct {
	Name string
	Op   AccumulatorOp
	Arg  Expr
}

// Count is {name: {$sum: 1}}.
func Count(name string) Accumulator {
	return Accumulator{Name: name, Op: OpSum, Arg: Literal(1)}
}

// Sum, Min, Max, Avg and First build accumulators over an expression.
func Sum(name string, arg Expr) Accumulator   { return Accumulator{Name: name, Op: OpSum, Arg: arg} }
func Min(name string, arg Expr) Accumulator   { return Accumulator{Name: name, Op: OpMin, Arg: arg} }
func Max(name string, arg Expr) Accumulator   { return Accumulator{Name: name, Op: OpMax, Arg: arg} }
func Avg(name string, arg Expr) Accumulator   { return Accumulator{Name: name, Op: OpAvg, Arg: arg} }
func First(name string, arg Expr) Accumulator { return Accumulator{Name: name, Op: OpFirst, Arg: arg} }

// Group buckets documents by ID and computes the accumulators per bucket.
type Group struct {
	ID           Expr
	Accumulators []Accumulator
}

func (s Group) Name() string { return "$group" }
func (s Group) Spec() interface{} {
	id := interface{}(nil)
	if s.ID != nil {
		id = s.ID.BSON()
	}
	out := bson.D{{Key: "_id", Value: id}}
	for _, a := range s.Accumulators {
		out = append(out, bson.E{Key: a.Name, Value: bson.D{{Key: string(a.Op), Value: a.Arg.BSON()}}})
	}
	return out
}

// Order is a sort direction.
type Order int

const (
	Ascending  Order = 1
	Descending Order = -1
)

// SortKey is one key of a compound sort.
type SortKey struct {
	Field string
	Order Order
}

// Asc and Desc build sort keys.
func Asc(field string) SortKey  { return SortKey{Field: field, Order: Ascending} }
func Desc(field string) SortKey { return SortKey{Field: field, Order: Descending} }

// Sort orders documents by Keys, earlier keys taking precedence.
type Sort struct {
	Keys []SortKey
}

func (s Sort) Name() string { return "$sort" }
func (s Sort) Spec() interface{} {
	out := make(bson.D, 0, len(s.Keys))
	for _, k := range s.Keys {
		out = append(out, bson.E{Key: k.Field, Value: int(k.Order)})
	}
	return out
}

// Limit passes through at most N documents.
type Limit struct {
	N int64
}

func (s Limit) Name() string      { return "$limit" }
func (s Limit) Spec() interface{} { return s.N }

// Project reshapes documents to the listed fields.
type Project struct {
	Projection Projection
}

func (s Project) Name() string      { return "$project" }
func (s Project) Spec() interface{} { return s.Projection.BSON() }

// Pipeline is an ordered list of stages submitted as one unit.
type Pipeline struct {
	stages []Stage
}

// Stages returns a copy of the stage descriptors in order.
func (p Pipeline) Stages() []Stage {
	out := make([]Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

// Len returns the number of stages.
func (p Pipeline) Len() int { return len(p.stages) }

// BSON renders the pipeline for the driver.
func (p Pipeline) BSON() mongo.Pipeline {
	out := make(mongo.Pipeline, 0, len(p.stages))
	for _, s := range p.stages {
		out = append(out, bson.D{{Key: s.Name(), Value: s.Spec()}})
	}
	return out
}
