package api

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/tanisharajgor/Mongo-Exploratory/internal/metrics"
	"github.com/tanisharajgor/Mongo-Exploratory/logging"
	"github.com/tanisharajgor/Mongo-Exploratory/restaurants"
	"github.com/tanisharajgor/Mongo-Exploratory/utils"
)

// Error message constants
const (
	ErrInvalidRequestBody = "Invalid request body"
	ErrInvalidParameter   = "Invalid query parameter"
	ErrQueryFailed        = "Query failed"
	ErrInsertFailed       = "Insert failed"
	ErrGradeNotFound      = "No score recorded for grade"
	ErrStoreUnavailable   = "Store unavailable"
	ErrorFailedToEncode   = "Failed to encode response"
)

// Constants for headers
const (
	HeaderContentType = "Content-Type"
	ContentTypeJSON   = "application/json"
)

const (
	defaultLimit       = 5
	defaultMaxDistance = 1000.0
	maxBodyBytes       = 1 << 20
	version            = "1.0.0"
)

// Queries is the restaurant query surface served over HTTP
type Queries interface {
	Insert(ctx context.Context, doc interface{}) (interface{}, error)
	CountInBorough(ctx context.Context, borough string) (int64, error)
	TopZipcodes(ctx context.Context, limit int) ([]restaurants.ZipcodeCount, error)
	CountByGradeAndCuisine(ctx context.Context, grade, cuisine string) (int64, error)
	ScoreRangeForGrade(ctx context.Context, grade string) (*restaurants.ScoreRange, error)
	MostPopularCuisinePerBorough(ctx context.Context) ([]restaurants.BoroughCuisine, error)
	MostPopularCuisinesOverall(ctx context.Context, limit int) ([]restaurants.CuisineCount, error)
	TopCuisinesForBorough(ctx context.Context, borough string, limit int) ([]restaurants.CuisineCount, error)
	AverageScorePerBorough(ctx context.Context) ([]restaurants.BoroughAverage, error)
	NearbyRestaurants(ctx context.Context, longitude, latitude, maxMeters float64) ([]restaurants.Summary, error)
	RestaurantsOfCuisineInBorough(ctx context.Context, cuisine, borough string) ([]restaurants.Summary, error)
}

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the dependencies for API handlers
type Handler struct {
	logger  logging.Logger
	queries Queries
	store   Pinger
}

// NewHandler creates a new Handler instance. store may be nil.
func NewHandler(logger logging.Logger, queries Queries, store Pinger) *Handler {
	return &Handler{
		logger:  logger,
		queries: queries,
		store:   store,
	}
}

// Routes builds the chi router serving every endpoint
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(traceMiddleware)
	r.Use(corsMiddleware)
	r.Use(metrics.Middleware())

	r.Get("/health", h.HealthCheck)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/restaurants", h.InsertRestaurant)
		r.Get("/restaurants/nearby", h.NearbyRestaurants)

		r.Get("/boroughs/popular-cuisine", h.MostPopularCuisinePerBorough)
		r.Get("/boroughs/average-score", h.AverageScorePerBorough)
		r.Get("/boroughs/{borough}/count", h.CountInBorough)
		r.Get("/boroughs/{borough}/cuisines", h.TopCuisinesForBorough)
		r.Get("/boroughs/{borough}/cuisines/{cuisine}/restaurants", h.RestaurantsOfCuisineInBorough)

		r.Get("/zipcodes/top", h.TopZipcodes)
		r.Get("/cuisines/popular", h.MostPopularCuisinesOverall)

		r.Get("/grades/{grade}/count", h.CountByGradeAndCuisine)
		r.Get("/grades/{grade}/score-range", h.ScoreRangeForGrade)
	})
	return r
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := sonic.Marshal(data)
	if err != nil {
		http.Error(w, ErrorFailedToEncode, http.StatusInternalServerError)
		return
	}
	w.Header().Set(HeaderContentType, ContentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (h *Handler) log(r *http.Request) logging.Logger {
	return utils.WithTraceLogger(h.logger, r.Context()).WithFields(logging.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	h.log(r).Warnw("Rejected request", "error", err)
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrInvalidParameter, Details: err.Error()})
}

func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.log(r).Errorw(msg, "error", err)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: msg, Details: err.Error()})
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "healthy",
		Store:     "ok",
		Timestamp: time.Now(),
		Version:   version,
	}
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			h.log(r).Warnw("Store ping failed", "error", err)
			health.Status = "unhealthy"
			health.Store = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, health)
			return
		}
	}
	writeJSON(w, http.StatusOK, health)
}

// InsertRestaurant stores the Extended JSON document in the request body
func (h *Handler) InsertRestaurant(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrInvalidRequestBody, Details: err.Error()})
		return
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(body, false, &doc); err != nil {
		h.log(r).Warnw("Undecodable document", "error", err)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrInvalidRequestBody, Details: err.Error()})
		return
	}

	id, err := h.queries.Insert(r.Context(), doc)
	if err != nil {
		h.storeError(w, r, ErrInsertFailed, err)
		return
	}
	writeJSON(w, http.StatusCreated, InsertResponse{ID: id})
}

// CountInBorough handles GET /boroughs/{borough}/count
func (h *Handler) CountInBorough(w http.ResponseWriter, r *http.Request) {
	n, err := h.queries.CountInBorough(r.Context(), chi.URLParam(r, "borough"))
	if err != nil {
		h.storeError(w, r, ErrQueryFailed, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Data: CountResponse{Count: n}})
}

// TopZipcodes handles GET /zipcodes/top?limit=
func (h *Handler) TopZipcodes(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultLimit)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	rows, err := h.queries.TopZipcodes(r.Context(), limit)
	if err != nil {
		h.storeError(w, r, ErrQueryFailed, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Data: rows})
}

// CountByGradeAndCuisine handles GET /grades/{grade}/count?cuisine=
func (h *Handler) CountByGradeAndCuisine(w http.ResponseWriter, r *http.Request) {
	cuisine := r.URL.Query().Get("cuisine")
	if cuisine == "" {
		h.badRequest(w, r, errMissing("cuisine"))
		return
	}
	n, err := h.queries.CountByGradeAndCuisine(r.Context(), chi.URLParam(r, "grade"), cuisine)
	if err != nil {
		h.storeError(w, r, ErrQueryFailed, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Data: CountResponse{Count: n}})
}

// ScoreRangeForGrade handles GET /grades/{grade}/score-range
func (h *Handler) ScoreRangeForGrade(w http.ResponseWriter, r *http.Request) {
	grade := chi.URLParam(r, "grade")
	scores, err := h.queries.ScoreRangeForGrade(r.Context(), grade)
	if err != nil {
		h.storeError(w, r, ErrQueryFailed, err)
		return
	}
	if scores == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: ErrGradeNotFound, Details: grade})
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Data: scores})
}

// MostPopularCuisinePerBorough handles GET /boroughs/popular-cuisine
func (h *Handler) MostPopularCuisinePerBorough(w http.ResponseWriter, r *http.Request) {
	rows, err := h.queries.MostPopularCuisinePerBorough(r.Context())
	if err != nil {
		h.storeError(w, r, ErrQueryFailed, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Data: rows})
}

// MostPopularCuisinesOverall handles GET /cuisines/popular?limit=
func (h *Handler) MostPopularCuisinesOverall(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultLimit)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	rows, err := h.queries.MostPopularCuisinesOverall(r.Context(), limit)
	if err != nil {
		h.storeError(w, r, ErrQueryFailed, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Data: rows})
}

// TopCuisinesForBorough handles GET /boroughs/{borough}/cuisines?limit=
func (h *Handler) TopCuisinesForBorough(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultLimit)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	rows, err := h.queries.TopCuisinesForBorough(r.Context(), chi.URLParam(r, "borough"), limit)
	if err != nil {
		h.storeError(w, r, ErrQueryFailed, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Data: rows})
}

// AverageScorePerBorough handles GET /boroughs/average-score
func (h *Handler) AverageScorePerBorough(w http.ResponseWriter, r *http.Request) {
	rows, err := h.queries.AverageScorePerBorough(r.Context())
	if err != nil {
		h.storeError(w, r, ErrQueryFailed, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Data: rows})
}

// NearbyRestaurants handles GET /restaurants/nearby?lon=&lat=&maxDistance=
func (h *Handler) NearbyRestaurants(w http.ResponseWriter, r *http.Request) {
	lon, err := floatParam(r, "lon", math.NaN())
	if err == nil && (math.IsNaN(lon) || lon < -180 || lon > 180) {
		err = errRange("lon", -180, 180)
	}
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	lat, err := floatParam(r, "lat", math.NaN())
	if err == nil && (math.IsNaN(lat) || lat < -90 || lat > 90) {
		err = errRange("lat", -90, 90)
	}
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	maxDistance, err := floatParam(r, "maxDistance", defaultMaxDistance)
	if err == nil && maxDistance < 0 {
		err = errRange("maxDistance", 0, math.Inf(1))
	}
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	rows, err := h.queries.NearbyRestaurants(r.Context(), lon, lat, maxDistance)
	if err != nil {
		h.storeError(w, r, ErrQueryFailed, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Data: rows})
}

// RestaurantsOfCuisineInBorough handles GET /boroughs/{borough}/cuisines/{cuisine}/restaurants
func (h *Handler) RestaurantsOfCuisineInBorough(w http.ResponseWriter, r *http.Request) {
	rows, err := h.queries.RestaurantsOfCuisineInBorough(r.Context(), chi.URLParam(r, "cuisine"), chi.URLParam(r, "borough"))
	if err != nil {
		h.storeError(w, r, ErrQueryFailed, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Data: rows})
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &paramError{name: name, reason: "must be an integer"}
	}
	return v, nil
}

func floatParam(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &paramError{name: name, reason: "must be a number"}
	}
	return v, nil
}

type paramError struct {
	name   string
	reason string
}

func (e *paramError) Error() string {
	return e.name + " " + e.reason
}

func errMissing(name string) error {
	return &paramError{name: name, reason: "is required"}
}

func errRange(name string, lo, hi float64) error {
	if math.IsInf(hi, 1) {
		return &paramError{name: name, reason: "must be >= " + strconv.FormatFloat(lo, 'f', -1, 64)}
	}
	return &paramError{name: name, reason: "is required and must be within [" +
		strconv.FormatFloat(lo, 'f', -1, 64) + ", " + strconv.FormatFloat(hi, 'f', -1, 64) + "]"}
}
