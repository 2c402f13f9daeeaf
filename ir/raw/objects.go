package raw

// Name object
type NameObj struct{ Val string }

func (n NameObj) Type() string     { return "name" }
func (n NameObj) IsIndirect() bool { return false }
func (n NameObj) Value() string    { return n.Val }
func (NameObj) object()            {}

// Number object
type NumberObj struct {
	I     int64
	F     float64
	IsInt bool
}

func (n NumberObj) Type() string     { return "number" }
func (n NumberObj) IsIndirect() bool { return false }
func (n NumberObj) Int() int64       { return n.I }
func (n NumberObj) Float() float64 {
	if n.IsInt {
		return float64(n.I)
	}
	return n.F
}
func (n NumberObj) IsInteger() bool { return n.IsInt }
func (NumberObj) object()           {}

// Boolean object
type BoolObj struct{ V bool }

func (b BoolObj) Type() string     { return "boolean" }
func (b BoolObj) IsIndirect() bool { return false }
func (b BoolObj) Value() bool      { return b.V }
func (BoolObj) object()            {}

// Null object
type NullObj struct{}

func (n NullObj) Type() string     { return "null" }
func (n NullObj) IsIndirect() bool { return false }
func (NullObj) object()            {}

// String object. Hex strings are written as <...>, everything else as a
// literal (...) string.
type StringObj struct {
	Bytes []byte
	Hex   bool
}

func (s StringObj) Type() string     { return "string" }
func (s StringObj) IsIndirect() bool { return false }
func (s StringObj) Value() []byte    { return s.Bytes }
func (s StringObj) IsHex() bool      { return s.Hex }
func (StringObj) object()            {}

// Array object
type ArrayObj struct{ Items []Object }

func (a *ArrayObj) Type() string     { return "array" }
func (a *ArrayObj) IsIndirect() bool { return false }
func (a *ArrayObj) Get(i int) (Object, bool) {
	if i < 0 || i >= len(a.Items) {
		return nil, false
	}
	return a.Items[i], true
}
func (a *ArrayObj) Len() int        { return len(a.Items) }
func (a *ArrayObj) Append(o Object) { a.Items = append(a.Items, o) }
func (*ArrayObj) object()           {}

// DictObj is a dictionary that remembers key insertion order so that
// serialization is deterministic. Replacing a key keeps its position.
type DictObj struct {
	keys []string
	kv   map[string]Object
}

func (d *DictObj) Type() string     { return "dict" }
func (d *DictObj) IsIndirect() bool { return false }
func (*DictObj) object()            {}

func (d *DictObj) Get(key string) (Object, bool) {
	o, ok := d.kv[key]
	return o, ok
}

func (d *DictObj) Set(key string, value Object) {
	if d.kv == nil {
		d.kv = make(map[string]Object)
	}
	if _, ok := d.kv[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.kv[key] = value
}

// Delete removes key, preserving the order of the remaining keys.
func (d *DictObj) Delete(key string) {
	if _, ok := d.kv[key]; !ok {
		return
	}
	delete(d.kv, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

func (d *DictObj) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

func (d *DictObj) Len() int { return len(d.keys) }

// Stream object
type StreamObj struct {
	Dict *DictObj
	Data []byte
}

func (s *StreamObj) Type() string           { return "stream" }
func (s *StreamObj) IsIndirect() bool       { return false }
func (s *StreamObj) Dictionary() Dictionary { return s.Dict }
func (s *StreamObj) RawData() []byte        { return s.Data }
func (s *StreamObj) Length() int64          { return int64(len(s.Data)) }
func (*StreamObj) object()                  {}

// Reference object
type RefObj struct{ R ObjectRef }

func (r RefObj) Type() string     { return "ref" }
func (r RefObj) IsIndirect() bool { return true }
func (r RefObj) Ref() ObjectRef   { return r.R }
func (RefObj) object()            {}

// Helpers
func NameLiteral(v string) NameObj       { return NameObj{Val: v} }
func NumberInt(i int64) NumberObj        { return NumberObj{I: i, IsInt: true} }
func NumberFloat(f float64) NumberObj    { return NumberObj{F: f, IsInt: false} }
func Bool(v bool) BoolObj                { return BoolObj{V: v} }
func Str(bytes []byte) StringObj         { return StringObj{Bytes: bytes} }
func HexStr(bytes []byte) StringObj      { return StringObj{Bytes: bytes, Hex: true} }
func NewArray(items ...Object) *ArrayObj { return &ArrayObj{Items: items} }
func Dict() *DictObj                     { return &DictObj{kv: make(map[string]Object)} }
func NewStream(dict *DictObj, data []byte) *StreamObj {
	if dict == nil {
		dict = Dict()
	}
	return &StreamObj{Dict: dict, Data: data}
}
func Ref(num, gen int) RefObj  { return RefObj{R: ObjectRef{Num: num, Gen: gen}} }
func RefTo(r ObjectRef) RefObj { return RefObj{R: r} }

// Number returns an integer object when f has no fractional part and a real
// object otherwise.
func Number(f float64) NumberObj {
	if f == float64(int64(f)) {
		return NumberInt(int64(f))
	}
	return NumberFloat(f)
}
