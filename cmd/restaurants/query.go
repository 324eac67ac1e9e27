package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/tanisharajgor/Mongo-Exploratory/internal/api"
	"github.com/tanisharajgor/Mongo-Exploratory/internal/app"
	"github.com/tanisharajgor/Mongo-Exploratory/utils"
)

type queryOptions struct {
	borough     string
	cuisine     string
	grade       string
	limit       int
	longitude   float64
	latitude    float64
	maxDistance float64
}

var queryOpts queryOptions

type queryFunc func(ctx context.Context, q api.Queries, o queryOptions) (interface{}, error)

var queries = map[string]queryFunc{
	"count-borough": func(ctx context.Context, q api.Queries, o queryOptions) (interface{}, error) {
		return q.CountInBorough(ctx, o.borough)
	},
	"top-zipcodes": func(ctx context.Context, q api.Queries, o queryOptions) (interface{}, error) {
		return q.TopZipcodes(ctx, o.limit)
	},
	"grade-cuisine-count": func(ctx context.Context, q api.Queries, o queryOptions) (interface{}, error) {
		return q.CountByGradeAndCuisine(ctx, o.grade, o.cuisine)
	},
	"score-range": func(ctx context.Context, q api.Queries, o queryOptions) (interface{}, error) {
		return q.ScoreRangeForGrade(ctx, o.grade)
	},
	"popular-per-borough": func(ctx context.Context, q api.Queries, o queryOptions) (interface{}, error) {
		return q.MostPopularCuisinePerBorough(ctx)
	},
	"popular-cuisines": func(ctx context.Context, q api.Queries, o queryOptions) (interface{}, error) {
		return q.MostPopularCuisinesOverall(ctx, o.limit)
	},
	"borough-cuisines": func(ctx context.Context, q api.Queries, o queryOptions) (interface{}, error) {
		return q.TopCuisinesForBorough(ctx, o.borough, o.limit)
	},
	"average-score": func(ctx context.Context, q api.Queries, o queryOptions) (interface{}, error) {
		return q.AverageScorePerBorough(ctx)
	},
	"nearby": func(ctx context.Context, q api.Queries, o queryOptions) (interface{}, error) {
		return q.NearbyRestaurants(ctx, o.longitude, o.latitude, o.maxDistance)
	},
	"cuisine-in-borough": func(ctx context.Context, q api.Queries, o queryOptions) (interface{}, error) {
		return q.RestaurantsOfCuisineInBorough(ctx, o.cuisine, o.borough)
	},
}

func queryNames() []string {
	names := make([]string, 0, len(queries))
	for name := range queries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var queryCmd = &cobra.Command{
	Use:       "query <operation>",
	Short:     "Run one restaurant query and print the result as JSON",
	Long:      "Operations: " + strings.Join(queryNames(), ", "),
	Args:      cobra.ExactArgs(1),
	ValidArgs: queryNames(),
	RunE:      runQueryCmd,
}

func init() {
	f := queryCmd.Flags()
	f.StringVar(&queryOpts.borough, "borough", "", "borough name")
	f.StringVar(&queryOpts.cuisine, "cuisine", "", "cuisine name")
	f.StringVar(&queryOpts.grade, "grade", "", "grade label")
	f.IntVar(&queryOpts.limit, "limit", 5, "maximum number of rows")
	f.Float64Var(&queryOpts.longitude, "lon", 0, "longitude of the query point")
	f.Float64Var(&queryOpts.latitude, "lat", 0, "latitude of the query point")
	f.Float64Var(&queryOpts.maxDistance, "max-distance", 1000, "radius in meters")
}

func runQueryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	ctx := utils.WithTraceID(cmd.Context(), utils.GenerateTraceID())
	application, err := app.NewApplication(ctx, oneShotConfig(cfg), logger)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	out, err := runQuery(ctx, application.Repository(), args[0], queryOpts)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// runQuery runs the named operation and renders its result as indented JSON
func runQuery(ctx context.Context, q api.Queries, name string, o queryOptions) ([]byte, error) {
	fn, ok := queries[name]
	if !ok {
		return nil, fmt.Errorf("unknown operation %q, expected one of: %s", name, strings.Join(queryNames(), ", "))
	}
	result, err := fn(ctx, q, o)
	if err != nil {
		return nil, err
	}
	return sonic.ConfigStd.MarshalIndent(result, "", "  ")
}
