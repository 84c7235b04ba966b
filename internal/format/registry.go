package format

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/JonMunkholm/dataviz/internal/table"
)

// Codec converts between one encoding and table.Table.
type Codec struct {
	Tag       Tag
	Name      string // short lowercase name used in URLs: "csv", "parquet"
	MediaType string // Content-Type for exported files
	Extension string // canonical extension for exported files

	Decode func(data []byte) (*table.Table, error)
	Encode func(w io.Writer, t *table.Table) error
}

var (
	registry   = make(map[Tag]Codec)
	registryMu sync.RWMutex
)

// Register adds a codec to the registry.
// Panics if a codec for the same tag is already registered.
func Register(c Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[c.Tag]; exists {
		panic(fmt.Sprintf("codec already registered: %s", c.Tag))
	}
	registry[c.Tag] = c
}

// Lookup returns the codec for tag.
func Lookup(tag Tag) (Codec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	c, ok := registry[tag]
	return c, ok
}

// LookupName returns the codec whose Name is name.
func LookupName(name string) (Codec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, c := range registry {
		if c.Name == name {
			return c, true
		}
	}
	return Codec{}, false
}

// All returns every registered codec ordered by tag.
func All() []Codec {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Codec, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// Extensions returns every recognized extension for tag, sorted.
func Extensions(tag Tag) []string {
	var out []string
	for ext, t := range extensions {
		if t == tag {
			out = append(out, ext)
		}
	}
	sort.Strings(out)
	return out
}

// Tags returns the tags that have a registered codec, in order.
func Tags() []Tag {
	codecs := All()
	out := make([]Tag, len(codecs))
	for i, c := range codecs {
		out[i] = c.Tag
	}
	return out
}
