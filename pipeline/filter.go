package pipeline

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Condition is a single predicate in a Filter.
type Condition interface {
	Path() string
	BSON() interface{}
}

// Eq matches documents whose field equals Value. When the field holds an
// array, any element equal to Value matches.
type Eq struct {
	Field string
	Value interface{}
}

func (c Eq) Path() string      { return c.Field }
func (c Eq) BSON() interface{} { return c.Value }

// NonEmptyArray matches documents where Field exists and is not the empty array.
type NonEmptyArray struct {
	Field string
}

func (c NonEmptyArray) Path() string { return c.Field }
func (c NonEmptyArray) BSON() interface{} {
	return bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: bson.A{}}}
}

// Point is a GeoJSON point in longitude/latitude order.
type Point struct {
	Longitude float64
	Latitude  float64
}

// Coordinates returns the GeoJSON coordinate pair.
func (p Point) Coordinates() []float64 { return []float64{p.Longitude, p.Latitude} }

// NearSphere selects documents within MaxDistance meters of Point on a
// sphere, nearest first. The field must carry a 2dsphere index.
type NearSphere struct {
	Field       string
	Point       Point
	MaxDistance float64
}

func (c NearSphere) Path() string { return c.Field }
func (c NearSphere) BSON() interface{} {
	return bson.D{{Key: "$nearSphere", Value: bson.D{
		{Key: "$geometry", Value: bson.D{
			{Key: "type", Value: "Point"},
			{Key: "coordinates", Value: bson.A{c.Point.Longitude, c.Point.Latitude}},
		}},
		{Key: "$maxDistance", Value: c.MaxDistance},
	}}}
}

// Filter is a conjunction of conditions, rendered in order.
type Filter []Condition

// Where builds a Filter.
func Where(conds ...Condition) Filter { return Filter(conds) }

// BSON renders the filter document. An empty filter renders as an empty
// document that matches everything.
func (f Filter) BSON() bson.D {
	out := bson.D{}
	for _, c := range f {
		out = append(out, bson.E{Key: c.Path(), Value: c.BSON()})
	}
	return out
}

// Projection is an inclusion list of dotted paths. _id is always returned.
type Projection []string

func (p Projection) BSON() bson.D {
	out := make(bson.D, 0, len(p))
	for _, path := range p {
		out = append(out, bson.E{Key: path, Value: 1})
	}
	return out
}

// IndexKind names a secondary index type.
type IndexKind string

// Sphere2D is the spherical geometry index used by NearSphere.
const Sphere2D IndexKind = "2dsphere"

// Index describes a single-field secondary index.
type Index struct {
	Field string
	Kind  IndexKind
}

// Keys renders the index key document.
func (i Index) Keys() bson.D {
	return bson.D{{Key: i.Field, Value: string(i.Kind)}}
}
