package physical

import (
	"context"

	"github.com/corvusdb/corvusdb/internal/dberr"
	"github.com/corvusdb/corvusdb/internal/index"
	"github.com/corvusdb/corvusdb/internal/operator"
	"github.com/corvusdb/corvusdb/internal/record"
)

// BuildIndex is a non-yielding operator that populates Idx from Data, a
// child (typically a TableScan, or a Filter over one) whose rows carry
// the indexed column at ColumnIndex. Open first drains CreateChild, if
// set, representing the catalog registration of the new, still-empty
// index (so any catalog-side operator tree composes into this operator
// the same way a data child does); Next then drains Data entirely,
// inserting (value, rid) for every row before returning END.
//
// Grounded on the teacher's CREATE INDEX path in Executor.execPlan,
// restructured as a standalone operator and generalized from a
// hardwired B-tree build to any index.Index.
type BuildIndex struct {
	createChild operator.Operator
	data        operator.Operator
	idx         index.Index
	columnIndex int

	built int
	done  bool
}

func NewBuildIndex(createChild, data operator.Operator, idx index.Index, columnIndex int) *BuildIndex {
	return &BuildIndex{createChild: createChild, data: data, idx: idx, columnIndex: columnIndex}
}

func (b *BuildIndex) Open(ctx context.Context) error {
	b.done = false
	b.built = 0

	if b.createChild != nil {
		if err := b.createChild.Open(ctx); err != nil {
			return dberr.Wrap("physical.BuildIndex", err)
		}
		for {
			if err := checkAborted(ctx, "physical.BuildIndex"); err != nil {
				return err
			}
			_, end, err := b.createChild.Next(ctx)
			if err != nil {
				return dberr.Wrap("physical.BuildIndex", err)
			}
			if end {
				break
			}
		}
	}
	return b.data.Open(ctx)
}

func (b *BuildIndex) Next(ctx context.Context) (operator.Tuple, bool, error) {
	if b.done {
		return nil, true, nil
	}
	b.done = true

	rs, ok := b.data.(ridSource)
	if !ok {
		return nil, false, dberr.Wrap("physical.BuildIndex", dberr.ErrConfig)
	}

	for {
		if err := checkAborted(ctx, "physical.BuildIndex"); err != nil {
			return nil, false, err
		}
		row, end, err := b.data.Next(ctx)
		if err != nil {
			return nil, false, dberr.Wrap("physical.BuildIndex", err)
		}
		if end {
			break
		}
		if b.columnIndex < 0 || b.columnIndex >= len(row) {
			return nil, false, dberr.Wrap("physical.BuildIndex", dberr.ErrSchemaMismatch)
		}
		rid := rs.CurrentRID()
		if err := b.idx.Insert(row[b.columnIndex], rid); err != nil {
			return nil, false, dberr.Wrap("physical.BuildIndex", err)
		}
		b.built++
	}
	return nil, true, nil
}

func (b *BuildIndex) Close(ctx context.Context) error {
	return operator.CloseAll(ctx, b.createChild, b.data)
}

func (b *BuildIndex) Schema() record.Schema { return record.Schema{} }
func (b *BuildIndex) YieldsData() bool      { return false }

// Built reports how many entries the last Next call inserted into the
// index.
func (b *BuildIndex) Built() int { return b.built }
