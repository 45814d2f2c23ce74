package query

import (
	"context"
	"time"

	"github.com/kxtools/insights-mcp/internal/insights"
	"github.com/kxtools/insights-mcp/internal/params"
)

// Executor performs the one network call in the pipeline: it hands a
// normalized field set to the data engine and returns the raw result.
type Executor func(ctx context.Context, fields params.Fields) (*insights.Result, error)

// Pipeline binds one tool's parameter schema to its executor. Run is safe
// for concurrent use: the pipeline holds no per-call state.
type Pipeline struct {
	schema  *params.Schema
	execute Executor
	now     func() time.Time
}

// NewPipeline creates a pipeline for one tool.
func NewPipeline(schema *params.Schema, execute Executor) *Pipeline {
	return &Pipeline{
		schema:  schema,
		execute: execute,
		now:     time.Now,
	}
}

// Run takes a raw JSON parameter object through sanitize, normalize,
// execute, and govern. Every failure along the way resolves to the uniform
// error response; Run never returns a Go error.
func (p *Pipeline) Run(ctx context.Context, rawJSON string) Response {
	raw, err := params.ParseObject(rawJSON)
	if err != nil {
		return Error(err)
	}

	clean, dropped := p.schema.Sanitize(raw)

	fields, err := p.schema.Normalize(clean, p.now())
	if err != nil {
		return Error(err)
	}

	result, err := p.execute(ctx, fields)
	if err != nil {
		return Error(err)
	}

	return Govern(result, dropped)
}
