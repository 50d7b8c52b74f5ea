package nav

// Field is one child element of an invoiceDigest.
type Field struct {
	Name  string
	Value string
}

// Record is one invoiceDigest as returned by NAV: field name to text, in
// document order. The field set is whatever the response carried.
type Record struct {
	fields []Field
	index  map[string]int
}

func NewRecord(fields ...Field) Record {
	var r Record
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Set replaces the value of an existing field in place, or appends a new one.
func (r *Record) Set(name, value string) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

func (r Record) Get(name string) (string, bool) {
	i, ok := r.index[name]
	if !ok {
		return "", false
	}
	return r.fields[i].Value, true
}

func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

func (r Record) Len() int {
	return len(r.fields)
}
