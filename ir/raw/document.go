package raw

import "sort"

// Document owns the indirect objects of one PDF file. Object numbers are
// handed out by Allocate starting at 1 and are never reused; object 0 is the
// head of the xref free list and is never allocated.
//
// A Document is not safe for concurrent use.
type Document struct {
	Version string // e.g., "1.7"

	next    int
	objects map[int]Object
	root    ObjectRef
	frozen  bool
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Version: "1.7", next: 1, objects: make(map[int]Object)}
}

// Allocate reserves the next object number. It fails with ErrFrozen once the
// document has been handed to a serializer.
func (d *Document) Allocate() (ObjectRef, error) {
	if d.frozen {
		return ObjectRef{}, ErrFrozen
	}
	if d.next == 0 {
		d.next = 1
	}
	ref := ObjectRef{Num: d.next}
	d.next++
	return ref, nil
}

// Define stores or replaces the value of an allocated object.
func (d *Document) Define(ref ObjectRef, value Object) error {
	if !d.Allocated(ref) {
		return &ReferenceError{Op: "define", Ref: ref}
	}
	if d.objects == nil {
		d.objects = make(map[int]Object)
	}
	d.objects[ref.Num] = value
	return nil
}

// Add allocates a new object number and defines it in one step.
func (d *Document) Add(value Object) (ObjectRef, error) {
	ref, err := d.Allocate()
	if err != nil {
		return ObjectRef{}, err
	}
	return ref, d.Define(ref, value)
}

// Resolve returns the value defined for ref.
func (d *Document) Resolve(ref ObjectRef) (Object, error) {
	if !d.Allocated(ref) {
		return nil, &ReferenceError{Op: "resolve", Ref: ref}
	}
	obj, ok := d.objects[ref.Num]
	if !ok {
		return nil, &ReferenceError{Op: "resolve", Ref: ref}
	}
	return obj, nil
}

// Allocated reports whether ref names an object number handed out by Allocate.
func (d *Document) Allocated(ref ObjectRef) bool {
	return ref.Gen == 0 && ref.Num >= 1 && ref.Num < d.next
}

// Defined reports whether a value has been stored for ref.
func (d *Document) Defined(ref ObjectRef) bool {
	if !d.Allocated(ref) {
		return false
	}
	_, ok := d.objects[ref.Num]
	return ok
}

// Count is the number of allocated objects, defined or not.
func (d *Document) Count() int {
	if d.next == 0 {
		return 0
	}
	return d.next - 1
}

// SetRoot designates the catalog. The reference may be forward; it is
// checked at serialization time.
func (d *Document) SetRoot(ref ObjectRef) { d.root = ref }

// Root returns the catalog reference (zero if unset).
func (d *Document) Root() ObjectRef { return d.root }

// Freeze stops further allocation. It is idempotent.
func (d *Document) Freeze() { d.frozen = true }

// Frozen reports whether Freeze was called.
func (d *Document) Frozen() bool { return d.frozen }

// Undefined lists allocated object numbers that were never defined, in
// ascending order.
func (d *Document) Undefined() []ObjectRef {
	var out []ObjectRef
	for n := 1; n <= d.Count(); n++ {
		if _, ok := d.objects[n]; !ok {
			out = append(out, ObjectRef{Num: n})
		}
	}
	return out
}

// Check verifies that every allocated object is defined, that the root is
// defined and that every reference inside a defined value resolves.
func (d *Document) Check() error {
	if missing := d.Undefined(); len(missing) > 0 {
		return &DanglingObjectError{Refs: missing}
	}
	if !d.Defined(d.root) {
		return &ReferenceError{Op: "root", Ref: d.root}
	}
	nums := make([]int, 0, len(d.objects))
	for n := range d.objects {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	for _, n := range nums {
		var bad *ReferenceError
		Walk(d.objects[n], func(o Object) {
			if bad != nil {
				return
			}
			if r, ok := o.(RefObj); ok && !d.Defined(r.R) {
				bad = &ReferenceError{Op: "serialize", Ref: r.R, From: ObjectRef{Num: n}}
			}
		})
		if bad != nil {
			return bad
		}
	}
	return nil
}
