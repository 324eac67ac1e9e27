package pipeline

// Builder assembles a Pipeline stage by stage.
//
//	p := pipeline.New().
//		Match(pipeline.Eq{Field: "borough", Value: "Bronx"}).
//		Group(pipeline.Field("cuisine"), pipeline.Count("count")).
//		Sort(pipeline.Desc("count")).
//		Limit(5).
//		Build()
type Builder struct {
	stages []Stage
}

// New starts an empty pipeline.
func New() *Builder {
	return &Builder{}
}

func (b *Builder) add(s Stage) *Builder {
	b.stages = append(b.stages, s)
	return b
}

func (b *Builder) Match(conds ...Condition) *Builder {
	return b.add(Match{Filter: Where(conds...)})
}

func (b *Builder) Unwind(path string) *Builder {
	return b.add(Unwind{Path: path})
}

func (b *Builder) Group(id Expr, accs ...Accumulator) *Builder {
	return b.add(Group{ID: id, Accumulators: accs})
}

func (b *Builder) Sort(keys ...SortKey) *Builder {
	return b.add(Sort{Keys: keys})
}

func (b *Builder) Limit(n int64) *Builder {
	return b.add(Limit{N: n})
}

func (b *Builder) Project(fields ...string) *Builder {
	return b.add(Project{Projection: Projection(fields)})
}

// Build returns the pipeline. The builder may keep being used afterwards
// without affecting the returned value.
func (b *Builder) Build() Pipeline {
	stages := make([]Stage, len(b.stages))
	copy(stages, b.stages)
	return Pipeline{stages: stages}
}
