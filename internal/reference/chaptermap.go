package reference

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Fragment maps a document's local citation numbers to canonical keys.
type Fragment map[int]string

// ChapterMap maps document slugs to their fragments.
type ChapterMap map[string]Fragment

// Numbers returns the local numbers in ascending order.
func (f Fragment) Numbers() []int {
	nums := make([]int, 0, len(f))
	for n := range f {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Clone returns a copy of the fragment.
func (f Fragment) Clone() Fragment {
	out := make(Fragment, len(f))
	for n, k := range f {
		out[n] = k
	}
	return out
}

// MarshalJSON writes the fragment with string keys in numeric order.
func (f Fragment) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range f.Numbers() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := marshal(strconv.Itoa(n))
		val, err := marshal(f[n])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a fragment whose keys are decimal strings.
func (f *Fragment) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Fragment, len(raw))
	for k, v := range raw {
		n, err := strconv.Atoi(k)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid local number %q", k)
		}
		out[n] = v
	}
	*f = out
	return nil
}

// Slugs returns the document slugs in ascending order.
func (m ChapterMap) Slugs() []string {
	return sortedKeys(m)
}

// Location identifies one local number in one document.
type Location struct {
	Slug   string `json:"slug"`
	Number int    `json:"number"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s/ref-%d", l.Slug, l.Number)
}

// Locations returns, for every canonical key, where it is cited.
// Documents are visited in the given order, then any remaining slugs
// alphabetically; numbers ascend within a document.
func (m ChapterMap) Locations(order []string) map[string][]Location {
	seen := make(map[string]bool, len(order))
	slugs := make([]string, 0, len(m))
	for _, s := range order {
		if _, ok := m[s]; ok && !seen[s] {
			slugs = append(slugs, s)
			seen[s] = true
		}
	}
	for _, s := range m.Slugs() {
		if !seen[s] {
			slugs = append(slugs, s)
		}
	}

	out := make(map[string][]Location)
	for _, s := range slugs {
		frag := m[s]
		for _, n := range frag.Numbers() {
			key := frag[n]
			out[key] = append(out[key], Location{Slug: s, Number: n})
		}
	}
	return out
}
