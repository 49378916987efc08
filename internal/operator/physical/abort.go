package physical

import (
	"context"

	"github.com/corvusdb/corvusdb/internal/dberr"
)

// checkAborted polls ctx for cancellation or deadline expiry, per spec
// §5's cooperative cancellation model ("polls an abort flag at every
// next call"). Every physical operator's Next calls this first so a
// cancellation surfaces as dberr.ErrAborted instead of running to
// completion or blocking on I/O that nobody is waiting on anymore.
func checkAborted(ctx context.Context, component string) error {
	if err := ctx.Err(); err != nil {
		return dberr.Wrap(component, dberr.ErrAborted)
	}
	return nil
}
