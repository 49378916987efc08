package physical

import (
	"context"

	"github.com/corvusdb/corvusdb/internal/dberr"
	"github.com/corvusdb/corvusdb/internal/operator"
	"github.com/corvusdb/corvusdb/internal/record"
)

// Limit drops the first Offset child tuples, then yields up to Count
// more before reporting END, never pulling another child tuple once
// Count is reached. Supplements the teacher (which had no LIMIT/OFFSET
// support at all), written in the same pull-operator idiom as its
// siblings.
type Limit struct {
	child  operator.Operator
	count  int
	offset int

	emitted int
	skipped int
}

func NewLimit(child operator.Operator, count, offset int) *Limit {
	return &Limit{child: child, count: count, offset: offset}
}

func (l *Limit) Open(ctx context.Context) error {
	l.emitted = 0
	l.skipped = 0
	return l.child.Open(ctx)
}

func (l *Limit) Next(ctx context.Context) (operator.Tuple, bool, error) {
	if err := checkAborted(ctx, "physical.Limit"); err != nil {
		return nil, false, err
	}
	if l.emitted >= l.count {
		return nil, true, nil
	}
	for l.skipped < l.offset {
		_, end, err := l.child.Next(ctx)
		if err != nil {
			return nil, false, dberr.Wrap("physical.Limit", err)
		}
		if end {
			return nil, true, nil
		}
		l.skipped++
	}
	row, end, err := l.child.Next(ctx)
	if err != nil {
		return nil, false, dberr.Wrap("physical.Limit", err)
	}
	if end {
		return nil, true, nil
	}
	l.emitted++
	return row, false, nil
}

func (l *Limit) Close(ctx context.Context) error {
	return l.child.Close(ctx)
}

func (l *Limit) Schema() record.Schema { return l.child.Schema() }
func (l *Limit) YieldsData() bool      { return true }
