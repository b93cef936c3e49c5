package common

import (
	"fmt"

	"github.com/crmarques/rossync/faults"
	"github.com/crmarques/rossync/resource"
)

// PartialFailure turns per-object failures into a non-zero exit once the
// result has been written.
func PartialFailure(failed int) error {
	if failed == 0 {
		return nil
	}
	return faults.NewTypedError(faults.InternalError, fmt.Sprintf("%d object(s) failed", failed), nil)
}

func DescribeRef(ref resource.ObjectRef) string {
	if ref.Name == "" {
		return fmt.Sprintf("%s %d", ref.Type, ref.ID)
	}
	return fmt.Sprintf("%s %d %q", ref.Type, ref.ID, ref.Name)
}
