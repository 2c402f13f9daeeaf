package raw

import (
	"fmt"
)

// ObjectRef uniquely identifies an indirect PDF object.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is the base interface for all raw PDF values. The set of
// implementations is closed: only the types in this package satisfy it.
type Object interface {
	Type() string
	IsIndirect() bool
	object()
}

// Dictionary represents a PDF dictionary object.
type Dictionary interface {
	Object
	Get(key string) (Object, bool)
	Set(key string, value Object)
	Keys() []string
	Len() int
}

// Array represents a PDF array object.
type Array interface {
	Object
	Get(index int) (Object, bool)
	Len() int
	Append(obj Object)
}

// Stream represents a raw (unfiltered) PDF stream.
type Stream interface {
	Object
	Dictionary() Dictionary
	RawData() []byte
	Length() int64
}

// Reference represents an indirect object reference.
type Reference interface {
	Object
	Ref() ObjectRef
}

// Walk calls fn for every value nested in o, depth first, including o itself.
// Indirect references are reported but not followed.
func Walk(o Object, fn func(Object)) {
	fn(o)
	switch v := o.(type) {
	case *ArrayObj:
		for _, it := range v.Items {
			Walk(it, fn)
		}
	case *DictObj:
		for _, k := range v.keys {
			Walk(v.kv[k], fn)
		}
	case *StreamObj:
		if v.Dict != nil {
			Walk(v.Dict, fn)
		}
	}
}
