package sd

import (
	"fmt"
	"sort"
	"strings"
)

// Key addresses an SdArray entry. Positional keys have Named unset.
type Key struct {
	Named bool
	Num   int64
	Str   string
}

func IndexKey(n int64) Key { return Key{Num: n} }
func NameKey(s string) Key { return Key{Named: true, Str: s} }

func (k Key) String() string {
	if k.Named {
		return "「" + k.Str + "」"
	}
	return fmt.Sprintf("%d", k.Num)
}

type entry struct {
	key   Key
	value Value
}

// SdArray is an insertion-ordered collection addressed by positional or named keys.
type SdArray struct {
	entries []entry
	index   map[Key]int
	next    int64
}

func NewSdArray() *SdArray {
	return &SdArray{index: make(map[Key]int)}
}

// ArrayFromList assigns keys 0..n-1 in list order.
func ArrayFromList(values []Value) *SdArray {
	a := NewSdArray()
	for _, v := range values {
		a.Append(v)
	}
	return a
}

// ArrayFromMap builds an array from explicit keys. Go maps carry no order, so
// positional keys come first in ascending order, followed by named keys sorted by name.
func ArrayFromMap(m map[Key]Value) *SdArray {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Named != b.Named {
			return !a.Named
		}
		if a.Named {
			return a.Str < b.Str
		}
		return a.Num < b.Num
	})
	arr := NewSdArray()
	for _, k := range keys {
		arr.Set(k, m[k])
	}
	return arr
}

func (a *SdArray) Get(k Key) (Value, bool) {
	i, ok := a.index[k]
	if !ok {
		return NewNull(), false
	}
	return a.entries[i].value, true
}

// Set overwrites an existing key in place or appends a new entry at the end.
func (a *SdArray) Set(k Key, v Value) {
	if i, ok := a.index[k]; ok {
		a.entries[i].value = v
		return
	}
	a.index[k] = len(a.entries)
	a.entries = append(a.entries, entry{key: k, value: v})
	if !k.Named && k.Num >= a.next {
		a.next = k.Num + 1
	}
}

// Append stores v under the next positional index.
func (a *SdArray) Append(v Value) {
	a.Set(IndexKey(a.next), v)
}

func (a *SdArray) Len() int {
	return len(a.entries)
}

func (a *SdArray) Keys() []Key {
	keys := make([]Key, len(a.entries))
	for i, e := range a.entries {
		keys[i] = e.key
	}
	return keys
}

// Each visits entries in insertion order until fn returns false.
func (a *SdArray) Each(fn func(Key, Value) bool) {
	for _, e := range a.entries {
		if !fn(e.key, e.value) {
			return
		}
	}
}

func (a *SdArray) Clone() *SdArray {
	out := &SdArray{
		entries: make([]entry, len(a.entries)),
		index:   make(map[Key]int, len(a.index)),
		next:    a.next,
	}
	for i, e := range a.entries {
		out.entries[i] = entry{key: e.key, value: e.value.Copy()}
		out.index[e.key] = i
	}
	return out
}

func (a *SdArray) Equal(other *SdArray) bool {
	if a.Len() != other.Len() {
		return false
	}
	for i, e := range a.entries {
		o := other.entries[i]
		if e.key != o.key || !e.value.Equal(o.value) {
			return false
		}
	}
	return true
}

func (a *SdArray) isList() bool {
	for i, e := range a.entries {
		if e.key.Named || e.key.Num != int64(i) {
			return false
		}
	}
	return true
}

func (a *SdArray) String() string {
	parts := make([]string, len(a.entries))
	list := a.isList()
	for i, e := range a.entries {
		if list {
			parts[i] = e.value.String()
		} else {
			parts[i] = fmt.Sprintf("%s: %s", e.key, e.value)
		}
	}
	if list {
		return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
}
