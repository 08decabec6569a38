package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/harshithgowdakt/granulestream/internal/stream"
)

// PlanConfig describes a scan pipeline:
// files -> (union) -> filter -> projection -> sort -> limit.
type PlanConfig struct {
	Files   []string
	Filter  string
	Columns []string
	OrderBy []string
	Desc    bool
	// Limit of 0 means unlimited.
	Limit int64
}

// Opener opens a native block file.
type Opener func(path string) (io.ReadCloser, error)

// OpenFile opens path on the local filesystem.
func OpenFile(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Plan builds the stream tree for cfg. The returned root owns every stream
// and file below it.
func Plan(ctx context.Context, cfg PlanConfig, open Opener, logger zerolog.Logger, opts ...stream.Option) (stream.Stream, error) {
	if len(cfg.Files) == 0 {
		return nil, errors.New("plan: no input files")
	}
	if cfg.Limit < 0 {
		return nil, fmt.Errorf("plan: negative limit %d", cfg.Limit)
	}

	var pred Predicate
	if cfg.Filter != "" {
		p, err := ParsePredicate(cfg.Filter)
		if err != nil {
			return nil, err
		}
		pred = p
	}

	inputs := make([]stream.Stream, 0, len(cfg.Files))
	for _, path := range cfg.Files {
		rc, err := open(path)
		if err != nil {
			for _, in := range inputs {
				_ = in.Close()
			}
			return nil, fmt.Errorf("plan: open %s: %w", path, err)
		}
		inputs = append(inputs, NewNativeStream(path, rc, logger, opts...))
	}

	var root stream.Stream = inputs[0]
	if len(inputs) > 1 {
		root = NewUnionStream(ctx, inputs, opts...)
	}
	if pred != nil {
		root = NewFilterStream(root, pred, opts...)
	}
	if len(cfg.Columns) > 0 {
		root = NewProjectionStream(root, cfg.Columns, opts...)
	}
	if len(cfg.OrderBy) > 0 {
		root = NewSortStream(root, cfg.OrderBy, cfg.Desc, opts...)
	}
	if cfg.Limit > 0 {
		root = NewLimitStream(root, cfg.Limit, opts...)
	}

	logger.Debug().
		Int("files", len(cfg.Files)).
		Str("root", root.Name()).
		Msg("planned stream tree")
	return root, nil
}
