// Package pipeline describes aggregation pipelines and filters as typed
// stage descriptors that render to driver BSON.
package pipeline

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Expr is a value expression inside a stage: a field reference, a literal
// or a sub-document of named expressions.
type Expr interface {
	BSON() interface{}
}

// FieldRef refers to a (possibly dotted) field of the input document.
type FieldRef struct {
	Path string
}

func (f FieldRef) BSON() interface{} { return "$" + f.Path }

// Field references the value at path.
func Field(path string) FieldRef { return FieldRef{Path: path} }

// LiteralValue is a constant.
type LiteralValue struct {
	Value interface{}
}

func (l LiteralValue) BSON() interface{} { return l.Value }

// Literal wraps a constant value.
func Literal(v interface{}) LiteralValue { return LiteralValue{Value: v} }

// Null is the literal null, used as a group key that collapses every document.
func Null() LiteralValue { return LiteralValue{} }

// NamedExpr is one element of a DocExpr.
type NamedExpr struct {
	Name string
	Expr Expr
}

// DocExpr builds a sub-document whose fields are evaluated expressions,
// e.g. a compound group key.
type DocExpr []NamedExpr

func (d DocExpr) BSON() interface{} {
	out := make(bson.D, 0, len(d))
	for _, e := range d {
		out = append(out, bson.E{Key: e.Name, Value: e.Expr.BSON()})
	}
	return out
}

// Doc builds a DocExpr.
func Doc(fields ...NamedExpr) DocExpr { return DocExpr(fields) }

// As names an expression inside Doc.
func As(name string, expr Expr) NamedExpr { return NamedExpr{Name: name, Expr: expr} }
