// Package restaurants answers the fixed set of questions the service asks
// about the restaurants collection. Every operation builds one filter or
// pipeline, runs it through the injected collection and returns the
// materialized rows.
package restaurants

import (
	"context"
	"time"

	"github.com/tanisharajgor/Mongo-Exploratory/docstore"
	"github.com/tanisharajgor/Mongo-Exploratory/logging"
	"github.com/tanisharajgor/Mongo-Exploratory/pipeline"
	"github.com/tanisharajgor/Mongo-Exploratory/utils"
)

// Field paths used by the queries.
const (
	fieldBorough    = "borough"
	fieldCuisine    = "cuisine"
	fieldZipcode    = "address.zipcode"
	fieldCoord      = "address.coord"
	fieldGrades     = "grades"
	fieldGradeLabel = "grades.grade"
	fieldGradeScore = "grades.score"
)

// summaryProjection is returned by the find operations, together with _id.
var summaryProjection = pipeline.Projection{"restaurant_id", "name", fieldCoord, fieldBorough, fieldCuisine}

// Repository is safe for concurrent use as long as the collection is.
// Storage errors are returned unchanged; an empty result is never an error.
type Repository struct {
	coll   docstore.Collection
	logger logging.Logger
}

func NewRepository(coll docstore.Collection, logger logging.Logger) *Repository {
	return &Repository{coll: coll, logger: logger}
}

// Insert stores doc as is and returns its _id.
func (r *Repository) Insert(ctx context.Context, doc interface{}) (interface{}, error) {
	id, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		r.log(ctx).Errorw("Insert failed", "error", err)
		return nil, err
	}
	return id, nil
}

// CountInBorough counts the restaurants whose borough equals borough exactly.
func (r *Repository) CountInBorough(ctx context.Context, borough string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, pipeline.Where(pipeline.Eq{Field: fieldBorough, Value: borough}))
	if err != nil {
		r.log(ctx).Errorw("CountInBorough failed", "borough", borough, "error", err)
		return 0, err
	}
	return n, nil
}

// TopZipcodes returns the limit zipcodes with the most restaurants.
func (r *Repository) TopZipcodes(ctx context.Context, limit int) ([]ZipcodeCount, error) {
	if limit <= 0 {
		return []ZipcodeCount{}, nil
	}
	p := pipeline.New().
		Group(pipeline.Field(fieldZipcode), pipeline.Count("restaurant_count")).
		Sort(pipeline.Desc("restaurant_count"), pipeline.Asc("_id")).
		Limit(int64(limit)).
		Build()
	return aggregate[ZipcodeCount](ctx, r, "TopZipcodes", p)
}

// CountByGradeAndCuisine counts grade entries labelled grade across the
// restaurants serving cuisine. A restaurant graded twice counts twice.
func (r *Repository) CountByGradeAndCuisine(ctx context.Context, grade, cuisine string) (int64, error) {
	p := pipeline.New().
		Unwind(fieldGrades).
		Match(
			pipeline.Eq{Field: fieldCuisine, Value: cuisine},
			pipeline.Eq{Field: fieldGradeLabel, Value: grade},
		).
		Group(pipeline.Null(), pipeline.Count("count")).
		Build()
	rows, err := aggregate[struct {
		Count int64 `bson:"count"`
	}](ctx, r, "CountByGradeAndCuisine", p)
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	return rows[0].Count, nil
}

// ScoreRangeForGrade returns the min and max score recorded with grade,
// or nil when no entry carries that grade.
func (r *Repository) ScoreRangeForGrade(ctx context.Context, grade string) (*ScoreRange, error) {
	p := pipeline.New().
		Match(pipeline.Eq{Field: fieldGradeLabel, Value: grade}).
		Unwind(fieldGrades).
		Match(pipeline.Eq{Field: fieldGradeLabel, Value: grade}).
		Group(pipeline.Literal(grade),
			pipeline.Min("min_score", pipeline.Field(fieldGradeScore)),
			pipeline.Max("max_score", pipeline.Field(fieldGradeScore)),
		).
		Build()
	rows, err := aggregate[ScoreRange](ctx, r, "ScoreRangeForGrade", p)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// MostPopularCuisinePerBorough returns one row per borough, ordered by borough.
// Ties on count go to the alphabetically first cuisine.
func (r *Repository) MostPopularCuisinePerBorough(ctx context.Context) ([]BoroughCuisine, error) {
	p := pipeline.New().
		Group(pipeline.Doc(
			pipeline.As("borough", pipeline.Field(fieldBorough)),
			pipeline.As("cuisine", pipeline.Field(fieldCuisine)),
		), pipeline.Count("count")).
		Sort(pipeline.Asc("_id.borough"), pipeline.Desc("count"), pipeline.Asc("_id.cuisine")).
		Group(pipeline.Field("_id.borough"),
			pipeline.First("most_popular_cuisine", pipeline.Field("_id.cuisine")),
			pipeline.First("count", pipeline.Field("count")),
		).
		Sort(pipeline.Asc("_id")).
		Build()
	return aggregate[BoroughCuisine](ctx, r, "MostPopularCuisinePerBorough", p)
}

// MostPopularCuisinesOverall ranks cuisines over every restaurant,
// including those without a borough.
func (r *Repository) MostPopularCuisinesOverall(ctx context.Context, limit int) ([]CuisineCount, error) {
	if limit <= 0 {
		return []CuisineCount{}, nil
	}
	p := pipeline.New().
		Group(pipeline.Field(fieldCuisine), pipeline.Count("count")).
		Sort(pipeline.Desc("count"), pipeline.Asc("_id")).
		Limit(int64(limit)).
		Build()
	return aggregate[CuisineCount](ctx, r, "MostPopularCuisinesOverall", p)
}

// TopCuisinesForBorough ranks the cuisines of one borough.
func (r *Repository) TopCuisinesForBorough(ctx context.Context, borough string, limit int) ([]CuisineCount, error) {
	if limit <= 0 {
		return []CuisineCount{}, nil
	}
	p := pipeline.New().
		Match(pipeline.Eq{Field: fieldBorough, Value: borough}).
		Group(pipeline.Field(fieldCuisine), pipeline.Count("count")).
		Sort(pipeline.Desc("count"), pipeline.Asc("_id")).
		Limit(int64(limit)).
		Build()
	return aggregate[CuisineCount](ctx, r, "TopCuisinesForBorough", p)
}

// AverageScorePerBorough averages every numeric grade score per borough.
// Restaurants without grades do not contribute.
func (r *Repository) AverageScorePerBorough(ctx context.Context) ([]BoroughAverage, error) {
	p := pipeline.New().
		Match(pipeline.NonEmptyArray{Field: fieldGrades}).
		Unwind(fieldGrades).
		Group(pipeline.Field(fieldBorough), pipeline.Avg("avg_score", pipeline.Field(fieldGradeScore))).
		Sort(pipeline.Asc("_id")).
		Build()
	return aggregate[BoroughAverage](ctx, r, "AverageScorePerBorough", p)
}

// NearbyRestaurants returns the restaurants within maxMeters of the point,
// nearest first. It creates the 2dsphere index on address.coord if missing.
func (r *Repository) NearbyRestaurants(ctx context.Context, longitude, latitude, maxMeters float64) ([]Summary, error) {
	if err := r.coll.EnsureIndex(ctx, pipeline.Index{Field: fieldCoord, Kind: pipeline.Sphere2D}); err != nil {
		r.log(ctx).Errorw("NearbyRestaurants index creation failed", "error", err)
		return nil, err
	}
	filter := pipeline.Where(pipeline.NearSphere{
		Field:       fieldCoord,
		Point:       pipeline.Point{Longitude: longitude, Latitude: latitude},
		MaxDistance: maxMeters,
	})
	return find(ctx, r, "NearbyRestaurants", filter)
}

// RestaurantsOfCuisineInBorough lists the restaurants matching both cuisine
// and borough exactly, in storage order.
func (r *Repository) RestaurantsOfCuisineInBorough(ctx context.Context, cuisine, borough string) ([]Summary, error) {
	filter := pipeline.Where(
		pipeline.Eq{Field: fieldCuisine, Value: cuisine},
		pipeline.Eq{Field: fieldBorough, Value: borough},
	)
	return find(ctx, r, "RestaurantsOfCuisineInBorough", filter)
}

func (r *Repository) log(ctx context.Context) logging.Logger {
	return utils.WithTraceLogger(r.logger, ctx)
}

func aggregate[T any](ctx context.Context, r *Repository, op string, p pipeline.Pipeline) ([]T, error) {
	start := time.Now()
	var rows []T
	if err := r.coll.Aggregate(ctx, p, &rows); err != nil {
		r.log(ctx).Errorw(op+" failed", "stages", p.Len(), "error", err)
		return nil, err
	}
	if rows == nil {
		rows = []T{}
	}
	r.log(ctx).Debugw(op, "rows", len(rows), "duration", time.Since(start).String())
	return rows, nil
}

func find(ctx context.Context, r *Repository, op string, filter pipeline.Filter) ([]Summary, error) {
	start := time.Now()
	var rows []Summary
	if err := r.coll.Find(ctx, filter, summaryProjection, &rows); err != nil {
		r.log(ctx).Errorw(op+" failed", "error", err)
		return nil, err
	}
	if rows == nil {
		rows = []Summary{}
	}
	r.log(ctx).Debugw(op, "rows", len(rows), "duration", time.Since(start).String())
	return rows, nil
}
