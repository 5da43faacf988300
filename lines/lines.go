// Package lines provides named lists of rest-frame spectral lines that can be
// marked on a spectrum at a given redshift.
package lines

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/carbocation/pfx"
	"gopkg.in/yaml.v3"
)

// DefaultList is used when a requested list is not known.
const DefaultList = "strongem"

//go:embed linelists.yaml
var embeddedLists embed.FS

// ErrUnknownList is returned (possibly wrapped) when a list name has not been
// registered.
var ErrUnknownList = errors.New("unknown line list")

type Kind string

const (
	Emission   Kind = "em"
	Absorption Kind = "abs"
)

type Line struct {
	Label      string  `yaml:"label"`
	Wavelength float64 `yaml:"wavelength"` // Rest frame, Angstroms
	Kind       Kind    `yaml:"kind"`
}

// Observed returns the wavelength of the line at redshift z.
func (l Line) Observed(z float64) float64 {
	return l.Wavelength * (1 + z)
}

type List struct {
	Name  string
	Lines []Line
}

// Within returns the lines whose observed wavelength at redshift z falls in
// [wmin, wmax].
func (l List) Within(z, wmin, wmax float64) []Line {
	out := make([]Line, 0)
	for _, v := range l.Lines {
		if obs := v.Observed(z); obs >= wmin && obs <= wmax {
			out = append(out, v)
		}
	}

	return out
}

var (
	mu       sync.RWMutex
	registry map[string]List
)

func init() {
	data, err := embeddedLists.ReadFile("linelists.yaml")
	if err != nil {
		panic(pfx.Err(err))
	}

	lists, err := parseYAML(data)
	if err != nil {
		panic(pfx.Err(err))
	}

	registry = make(map[string]List, len(lists))
	for _, v := range lists {
		registry[v.Name] = v
	}
}

// Lookup returns the named list. Names are case insensitive.
func Lookup(name string) (List, error) {
	mu.RLock()
	defer mu.RUnlock()

	l, exists := registry[strings.ToLower(name)]
	if !exists {
		return List{}, fmt.Errorf("%w: %q", ErrUnknownList, name)
	}

	return l, nil
}

// Register adds or replaces a list, making it available to Lookup.
func Register(l List) error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("lines: list has no name")
	}
	if len(l.Lines) == 0 {
		return fmt.Errorf("lines: list %q has no lines", l.Name)
	}

	mu.Lock()
	defer mu.Unlock()

	l.Name = strings.ToLower(l.Name)
	registry[l.Name] = l

	return nil
}

// Names returns the registered list names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)

	return out
}

// ReadYAML parses a document mapping list names to lines, in the same layout
// as the built-in lists.
func ReadYAML(r io.Reader) ([]List, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return parseYAML(data)
}

func parseYAML(data []byte) ([]List, error) {
	raw := make(map[string][]Line)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("lines: decode yaml: %w", err)
	}

	out := make([]List, 0, len(raw))
	for name, v := range raw {
		for i, line := range v {
			if line.Wavelength <= 0 {
				return nil, fmt.Errorf("lines: list %q line %d (%s) has non-positive wavelength %f", name, i, line.Label, line.Wavelength)
			}
			if line.Kind == "" {
				v[i].Kind = Emission
			}
		}
		out = append(out, List{Name: strings.ToLower(name), Lines: v})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}
