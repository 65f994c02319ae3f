package diagram

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrNotPersisted is returned by operations that need a saved diagram.
var ErrNotPersisted = errors.New("diagram has not been saved")

// PartialSubmitError reports that the diagram was submitted but scoring
// failed. The diagram stays submitted; calling SubmitForScoring again only
// re-requests the score.
type PartialSubmitError struct {
	DiagramID string
	Err       error
}

func (e *PartialSubmitError) Error() string {
	return fmt.Sprintf("diagram %s submitted but scoring failed: %v", e.DiagramID, e.Err)
}

func (e *PartialSubmitError) Unwrap() error {
	return e.Err
}
