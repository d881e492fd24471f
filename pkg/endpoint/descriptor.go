// Package endpoint provides the immutable endpoint descriptor used as the
// selection input for adaptive dispatch: an addressable value (scheme, host,
// port, path) plus a string parameter map read at call time.
package endpoint

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const logPrefix = "endpoint:descriptor"

// Descriptor is an immutable address-plus-parameters value. All mutation
// methods return a new Descriptor; callers may freely share one instance
// across goroutines.
type Descriptor struct {
	scheme string
	host   string
	port   int
	path   string
	params map[string]string
}

// New builds a Descriptor. The params map is copied; nil means no parameters.
func New(scheme, host string, port int, path string, params map[string]string) *Descriptor {
	return &Descriptor{
		scheme: scheme,
		host:   host,
		port:   port,
		path:   strings.TrimPrefix(path, "/"),
		params: copyParams(params),
	}
}

// Parse parses a descriptor from its string form, e.g.
// "comms://127.0.0.1:4222/orders.Service?protocol=comms&version=1.2.0".
// Query values become the parameter map; repeated keys keep the first value.
func Parse(raw string) (*Descriptor, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to parse %q: %w", logPrefix, raw, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%s - missing scheme in %q", logPrefix, raw)
	}

	port := 0
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%s - invalid port in %q: %w", logPrefix, raw, err)
		}
	}

	params := make(map[string]string)
	for key, values := range u.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	return &Descriptor{
		scheme: u.Scheme,
		host:   u.Hostname(),
		port:   port,
		path:   strings.TrimPrefix(u.Path, "/"),
		params: params,
	}, nil
}

// Scheme returns the descriptor scheme.
func (d *Descriptor) Scheme() string { return d.scheme }

// Host returns the descriptor host.
func (d *Descriptor) Host() string { return d.host }

// Port returns the descriptor port (0 if unset).
func (d *Descriptor) Port() int { return d.port }

// Path returns the descriptor path without a leading slash.
func (d *Descriptor) Path() string { return d.path }

// Address returns "host:port", or just the host when no port is set.
func (d *Descriptor) Address() string {
	if d.port == 0 {
		return d.host
	}
	return fmt.Sprintf("%s:%d", d.host, d.port)
}

// Parameter looks up a parameter by exact, case-sensitive key. An absent key
// and an empty-string value are both reported as not found; selection treats
// the two identically.
func (d *Descriptor) Parameter(key string) (string, bool) {
	v, ok := d.params[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// ParameterOr returns the parameter value, or def when absent or empty.
func (d *Descriptor) ParameterOr(key, def string) string {
	if v, ok := d.Parameter(key); ok {
		return v
	}
	return def
}

// Parameters returns a copy of the parameter map.
func (d *Descriptor) Parameters() map[string]string {
	return copyParams(d.params)
}

// WithParameter returns a new Descriptor with key set to value.
func (d *Descriptor) WithParameter(key, value string) *Descriptor {
	return d.WithParameters(map[string]string{key: value})
}

// WithParameters returns a new Descriptor with all given parameters set,
// overwriting existing keys.
func (d *Descriptor) WithParameters(params map[string]string) *Descriptor {
	merged := copyParams(d.params)
	for k, v := range params {
		merged[k] = v
	}
	return &Descriptor{
		scheme: d.scheme,
		host:   d.host,
		port:   d.port,
		path:   d.path,
		params: merged,
	}
}

// ParamsEqual reports whether the two descriptors carry identical parameter
// maps. Content comparison, not identity: two independently parsed
// descriptors with the same parameters are equal.
func (d *Descriptor) ParamsEqual(other *Descriptor) bool {
	if other == nil {
		return false
	}
	return paramsEqual(d.params, other.params)
}

// String renders the canonical form with sorted parameter keys.
func (d *Descriptor) String() string {
	var b strings.Builder
	b.WriteString(d.scheme)
	b.WriteString("://")
	b.WriteString(d.Address())
	if d.path != "" {
		b.WriteString("/")
		b.WriteString(d.path)
	}
	if len(d.params) > 0 {
		keys := make([]string, 0, len(d.params))
		for k := range d.params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sep := "?"
		for _, k := range keys {
			b.WriteString(sep)
			b.WriteString(url.QueryEscape(k))
			b.WriteString("=")
			b.WriteString(url.QueryEscape(d.params[k]))
			sep = "&"
		}
	}
	return b.String()
}

func copyParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

func paramsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}
