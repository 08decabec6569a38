package engine

import (
	"fmt"
	"strings"

	"github.com/harshithgowdakt/granulestream/internal/column"
	"github.com/harshithgowdakt/granulestream/internal/stream"
	"github.com/harshithgowdakt/granulestream/internal/types"
)

// Predicate computes which rows of a block to keep.
type Predicate interface {
	Mask(b *column.Block) ([]bool, error)
	String() string
}

// Comparison compares one column against a literal.
type Comparison struct {
	Column  string
	Op      string
	Literal string
}

var comparisonOps = []string{"<=", ">=", "!=", "=", "<", ">"}

// ParsePredicate parses "column op literal" with op one of = != < <= > >=.
// The operator is looked for before the first quote only, so quoted
// literals may contain operator characters.
func ParsePredicate(expr string) (*Comparison, error) {
	head := expr
	if q := strings.IndexByte(expr, '\''); q >= 0 {
		head = expr[:q]
	}
	for _, op := range comparisonOps {
		i := strings.Index(head, op)
		if i <= 0 {
			continue
		}
		col := strings.TrimSpace(expr[:i])
		lit := strings.Trim(strings.TrimSpace(expr[i+len(op):]), "'")
		if col == "" || strings.ContainsAny(col, " <>=!") {
			break
		}
		return &Comparison{Column: col, Op: op, Literal: lit}, nil
	}
	return nil, fmt.Errorf("invalid predicate %q: expected <column> <op> <literal>", expr)
}

func (c *Comparison) String() string { return c.Column + " " + c.Op + " " + c.Literal }

func (c *Comparison) Mask(b *column.Block) ([]bool, error) {
	col, ok := b.GetColumn(c.Column)
	if !ok {
		return nil, fmt.Errorf("filter column not found: %s", c.Column)
	}
	dt := col.DataType()
	lit, err := types.ParseValue(dt, c.Literal)
	if err != nil {
		return nil, err
	}

	mask := make([]bool, col.Len())
	for i := range mask {
		cmp := types.CompareValues(dt, col.Value(i), lit)
		switch c.Op {
		case "=":
			mask[i] = cmp == 0
		case "!=":
			mask[i] = cmp != 0
		case "<":
			mask[i] = cmp < 0
		case "<=":
			mask[i] = cmp <= 0
		case ">":
			mask[i] = cmp > 0
		case ">=":
			mask[i] = cmp >= 0
		}
	}
	return mask, nil
}

// filterProducer keeps the rows matching a predicate. Blocks with no
// matching row are skipped.
type filterProducer struct {
	unary
	pred Predicate
}

// NewFilterStream creates a filter over input.
func NewFilterStream(input stream.Stream, pred Predicate, opts ...stream.Option) *stream.Profiled {
	return stream.NewProfiled(&filterProducer{unary: unary{input: input}, pred: pred}, opts...)
}

func (f *filterProducer) Name() string { return "Filter(" + f.pred.String() + ")" }

func (f *filterProducer) ReadImpl() (*column.Block, error) {
	for {
		b, err := f.readInput()
		if err != nil || b == nil {
			return nil, err
		}

		mask, err := f.pred.Mask(b)
		if err != nil {
			return nil, err
		}
		matched := 0
		for _, m := range mask {
			if m {
				matched++
			}
		}
		switch matched {
		case 0:
			continue
		case len(mask):
			return b, nil
		default:
			return b.FilterRowsByMask(mask), nil
		}
	}
}
