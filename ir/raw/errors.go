package raw

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFrozen is returned by Allocate after serialization has started.
var ErrFrozen = errors.New("document is frozen; no further allocation")

// ReferenceError reports use of an object number that was never allocated
// or never defined.
type ReferenceError struct {
	Op   string
	Ref  ObjectRef
	From ObjectRef // object containing the reference, zero if not applicable
}

func (e *ReferenceError) Error() string {
	if e.From.Num != 0 {
		return fmt.Sprintf("%s: object %d references undefined object %d %d", e.Op, e.From.Num, e.Ref.Num, e.Ref.Gen)
	}
	return fmt.Sprintf("%s: undefined object %d %d", e.Op, e.Ref.Num, e.Ref.Gen)
}

// DanglingObjectError reports objects that were allocated but never defined
// by the time the document was serialized.
type DanglingObjectError struct {
	Refs []ObjectRef
}

func (e *DanglingObjectError) Error() string {
	nums := make([]string, len(e.Refs))
	for i, r := range e.Refs {
		nums[i] = fmt.Sprintf("%d", r.Num)
	}
	return "dangling objects allocated but never defined: " + strings.Join(nums, ", ")
}
