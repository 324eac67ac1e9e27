package docstore

import (
	"math"
	"sort"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/tanisharajgor/Mongo-Exploratory/pipeline"
)

// earthRadiusMeters matches the radius MongoDB uses for spherical queries.
const earthRadiusMeters = 6378100.0

// haversineMeters returns the great-circle distance between two points.
func haversineMeters(a, b pipeline.Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// pointOf reads a legacy [lon, lat] pair or a GeoJSON Point.
func pointOf(v interface{}) (pipeline.Point, bool) {
	if _, isDoc := asDoc(v); isDoc {
		if t, _ := getField(v, "type"); t != "Point" {
			return pipeline.Point{}, false
		}
		v, _ = getField(v, "coordinates")
	}
	arr, ok := asArray(v)
	if !ok || len(arr) < 2 {
		return pipeline.Point{}, false
	}
	lon, ok1 := toFloat(arr[0])
	lat, ok2 := toFloat(arr[1])
	if !ok1 || !ok2 || lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return pipeline.Point{}, false
	}
	return pipeline.Point{Longitude: lon, Latitude: lat}, true
}

// nearest keeps the documents within near.MaxDistance of near.Point,
// ordered by ascending distance. Documents without a usable point are dropped.
func nearest(docs []bson.M, near pipeline.NearSphere) []bson.M {
	type hit struct {
		doc  bson.M
		dist float64
	}
	parts := splitPath(near.Field)
	var hits []hit
	for _, doc := range docs {
		v, ok := lookupNoTraverse(doc, parts)
		if !ok {
			continue
		}
		p, ok := pointOf(v)
		if !ok {
			continue
		}
		d := haversineMeters(near.Point, p)
		if d > near.MaxDistance {
			continue
		}
		hits = append(hits, hit{doc: doc, dist: d})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	out := make([]bson.M, len(hits))
	for i, h := range hits {
		out[i] = h.doc
	}
	return out
}
