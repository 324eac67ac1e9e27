package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestBuilderRendersStagesInOrder(t *testing.T) {
	p := New().
		Match(Eq{Field: "borough", Value: "Bronx"}).
		Unwind("grades").
		Group(Field("cuisine"), Count("count")).
		Sort(Desc("count"), Asc("_id")).
		Limit(3).
		Build()

	want := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "borough", Value: "Bronx"}}}},
		{{Key: "$unwind", Value: "$grades"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$cuisine"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: int64(3)}},
	}
	assert.Equal(t, want, p.BSON())
	assert.Equal(t, 5, p.Len())
}

func TestBuildSnapshotsStages(t *testing.T) {
	b := New().Unwind("grades")
	p := b.Build()
	b.Limit(1)

	assert.Equal(t, 1, p.Len())
	stages := p.Stages()
	stages[0] = Limit{N: 9}
	assert.Equal(t, Unwind{Path: "grades"}, p.Stages()[0])
}

func TestGroupSpec(t *testing.T) {
	t.Run("compound key", func(t *testing.T) {
		g := Group{
			ID:           Doc(As("borough", Field("borough")), As("cuisine", Field("cuisine"))),
			Accumulators: []Accumulator{Count("count")},
		}
		want := bson.D{
			{Key: "_id", Value: bson.D{{Key: "borough", Value: "$borough"}, {Key: "cuisine", Value: "$cuisine"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}
		assert.Equal(t, want, g.Spec())
	})

	t.Run("null key", func(t *testing.T) {
		g := Group{ID: Null(), Accumulators: []Accumulator{Min("lo", Field("grades.score")), Max("hi", Field("grades.score"))}}
		spec := g.Spec().(bson.D)
		require.Len(t, spec, 3)
		assert.Nil(t, spec[0].Value)
		assert.Equal(t, bson.D{{Key: "$min", Value: "$grades.score"}}, spec[1].Value)
		assert.Equal(t, bson.D{{Key: "$max", Value: "$grades.score"}}, spec[2].Value)
	})

	t.Run("nil key renders null", func(t *testing.T) {
		g := Group{Accumulators: []Accumulator{Avg("avg", Field("x")), First("f", Field("y")), Sum("s", Field("z"))}}
		spec := g.Spec().(bson.D)
		assert.Nil(t, spec[0].Value)
		assert.Equal(t, "$avg", spec[1].Value.(bson.D)[0].Key)
		assert.Equal(t, "$first", spec[2].Value.(bson.D)[0].Key)
		assert.Equal(t, "$sum", spec[3].Value.(bson.D)[0].Key)
	})
}

func TestFilterBSON(t *testing.T) {
	assert.Equal(t, bson.D{}, Filter(nil).BSON())

	f := Where(
		Eq{Field: "cuisine", Value: "Italian"},
		NonEmptyArray{Field: "grades"},
	)
	want := bson.D{
		{Key: "cuisine", Value: "Italian"},
		{Key: "grades", Value: bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: bson.A{}}}},
	}
	assert.Equal(t, want, f.BSON())
}

func TestNearSphereBSON(t *testing.T) {
	c := NearSphere{Field: "address.coord", Point: Point{Longitude: -73.9, Latitude: 40.7}, MaxDistance: 500}
	want := bson.D{{Key: "$nearSphere", Value: bson.D{
		{Key: "$geometry", Value: bson.D{
			{Key: "type", Value: "Point"},
			{Key: "coordinates", Value: bson.A{-73.9, 40.7}},
		}},
		{Key: "$maxDistance", Value: float64(500)},
	}}}
	assert.Equal(t, "address.coord", c.Path())
	assert.Equal(t, want, c.BSON())
	assert.Equal(t, []float64{-73.9, 40.7}, c.Point.Coordinates())
}

func TestProjectionAndIndex(t *testing.T) {
	p := Projection{"name", "address.coord"}
	assert.Equal(t, bson.D{{Key: "name", Value: 1}, {Key: "address.coord", Value: 1}}, p.BSON())

	stage := New().Project("name").Build().BSON()[0]
	assert.Equal(t, "$project", stage[0].Key)

	idx := Index{Field: "address.coord", Kind: Sphere2D}
	assert.Equal(t, bson.D{{Key: "address.coord", Value: "2dsphere"}}, idx.Keys())
}
