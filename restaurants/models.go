package restaurants

import (
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CollectionName is the collection every operation runs against.
const CollectionName = "restaurants"

// Code is an identifier the source data stores either as a string or as
// a number, such as restaurant_id or a zipcode. Numbers decode to their
// decimal form and null to "".
type Code string

// UnmarshalBSONValue implements bson.ValueUnmarshaler.
func (c *Code) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	v := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		*c = Code(v.StringValue())
	case bsontype.Int32:
		*c = Code(strconv.FormatInt(int64(v.Int32()), 10))
	case bsontype.Int64:
		*c = Code(strconv.FormatInt(v.Int64(), 10))
	case bsontype.Double:
		*c = Code(strconv.FormatFloat(v.Double(), 'f', -1, 64))
	case bsontype.Null, bsontype.Undefined:
		*c = ""
	default:
		return fmt.Errorf("cannot decode %s into a Code", t)
	}
	return nil
}

// Restaurant is the shape of a document in the restaurants collection.
// Insert accepts any document, this type is a convenience for callers.
type Restaurant struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	RestaurantID Code               `bson:"restaurant_id" json:"restaurant_id"`
	Name         string             `bson:"name" json:"name"`
	Borough      string             `bson:"borough,omitempty" json:"borough,omitempty"`
	Cuisine      string             `bson:"cuisine" json:"cuisine"`
	Address      Address            `bson:"address" json:"address"`
	Grades       []Grade            `bson:"grades" json:"grades"`
}

type Address struct {
	Building string `bson:"building,omitempty" json:"building,omitempty"`
	Street   string `bson:"street,omitempty" json:"street,omitempty"`
	Zipcode  Code   `bson:"zipcode,omitempty" json:"zipcode,omitempty"`
	// Coord is [longitude, latitude].
	Coord []float64 `bson:"coord,omitempty" json:"coord,omitempty"`
}

// Grade is one inspection result. Score may be absent in source data.
type Grade struct {
	Date  time.Time `bson:"date" json:"date"`
	Grade string    `bson:"grade" json:"grade"`
	Score *float64  `bson:"score" json:"score"`
}

// ZipcodeCount is a row of TopZipcodes. Documents without a zipcode
// are grouped under the empty string.
type ZipcodeCount struct {
	Zipcode         Code  `bson:"_id" json:"zipcode"`
	RestaurantCount int64 `bson:"restaurant_count" json:"restaurant_count"`
}

// CuisineCount is a row of the cuisine popularity queries.
type CuisineCount struct {
	Cuisine string `bson:"_id" json:"cuisine"`
	Count   int64  `bson:"count" json:"count"`
}

// BoroughCuisine is the most popular cuisine of one borough.
type BoroughCuisine struct {
	Borough            string `bson:"_id" json:"borough"`
	MostPopularCuisine string `bson:"most_popular_cuisine" json:"most_popular_cuisine"`
	Count              int64  `bson:"count" json:"count"`
}

// ScoreRange holds the lowest and highest score recorded for a grade.
// Both are nil when every entry of the grade lacks a numeric score.
type ScoreRange struct {
	Grade    string   `bson:"_id" json:"grade"`
	MinScore *float64 `bson:"min_score" json:"min_score"`
	MaxScore *float64 `bson:"max_score" json:"max_score"`
}

// BoroughAverage is the mean inspection score of one borough.
type BoroughAverage struct {
	Borough  string   `bson:"_id" json:"borough"`
	AvgScore *float64 `bson:"avg_score" json:"avg_score"`
}

// Summary is the projected view returned by the find operations.
type Summary struct {
	ID           interface{}    `bson:"_id" json:"id"`
	RestaurantID Code           `bson:"restaurant_id,omitempty" json:"restaurant_id,omitempty"`
	Name         string         `bson:"name,omitempty" json:"name,omitempty"`
	Borough      string         `bson:"borough,omitempty" json:"borough,omitempty"`
	Cuisine      string         `bson:"cuisine,omitempty" json:"cuisine,omitempty"`
	Address      SummaryAddress `bson:"address,omitempty" json:"address"`
}

type SummaryAddress struct {
	Coord []float64 `bson:"coord,omitempty" json:"coord,omitempty"`
}
