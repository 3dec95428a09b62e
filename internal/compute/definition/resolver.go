// Package definition locates Grasshopper definitions and describes how each
// logical definition is wired (file, image parameter, outputs, guard).
package definition

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrDefinitionNotFound is returned when no candidate holds the definition.
	ErrDefinitionNotFound = errors.New("definition: not found")
	// ErrDefinitionRejected is returned for names the resolver policy does
	// not allow.  It is decided before any file is touched.
	ErrDefinitionRejected = errors.New("definition: name not allowed")
)

// AnyHost in Policy.PointerHosts accepts pointers to every host.
const AnyHost = "*"

// Policy widens what a Resolver accepts beyond relative names inside its
// candidates.  The zero Policy allows neither absolute paths nor pointers.
type Policy struct {
	// AllowAbsolute lets absolute file paths through unchanged.  Only
	// operator tooling reading local files should set it.
	AllowAbsolute bool
	// PointerHosts lists the hosts whose http(s) URLs are passed to the
	// engine as pointers.  Matching is case-insensitive on the hostname.
	PointerHosts []string
}

func (p Policy) allowsPointer(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	for _, h := range p.PointerHosts {
		if h == AnyHost || strings.ToLower(h) == host {
			return true
		}
	}
	return false
}

// Location is a resolved definition.  Exactly one of Path and Pointer is set:
// Path for files read from disk, Pointer for URLs handed to the engine as-is.
type Location struct {
	Name    string
	Path    string
	Pointer string
}

// IsRemote reports whether the engine should fetch the definition itself.
func (l Location) IsRemote() bool { return l.Pointer != "" }

func (l Location) String() string {
	if l.IsRemote() {
		return l.Pointer
	}
	return l.Path
}

// Candidate proposes a location for a definition name.
type Candidate interface {
	// Lookup returns the candidate's path for name and whether it exists.
	Lookup(name string) (string, bool)
	String() string
}

// DirCandidate looks for definitions inside a directory.
type DirCandidate struct {
	Dir string
}

// Lookup joins name under the directory and stats it.  Names that would
// leave the directory never match.
func (c DirCandidate) Lookup(name string) (string, bool) {
	p := filepath.Join(c.Dir, name)
	if !filepath.IsLocal(name) {
		return p, false
	}
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return p, false
	}
	return p, true
}

func (c DirCandidate) String() string { return c.Dir }

// Resolver tries candidates in order; the first existing match wins.
type Resolver struct {
	candidates []Candidate
	policy     Policy
}

// NewResolver builds a resolver over candidates in priority order.
func NewResolver(candidates ...Candidate) *Resolver {
	cs := make([]Candidate, len(candidates))
	copy(cs, candidates)
	return &Resolver{candidates: cs}
}

// NewDefaultResolver prefers <appDir>/../grasshopper and falls back to appDir.
func NewDefaultResolver(appDir string) *Resolver {
	return NewResolver(
		DirCandidate{Dir: filepath.Join(appDir, "..", "grasshopper")},
		DirCandidate{Dir: appDir},
	)
}

// WithPolicy returns a copy of r that applies p.
func (r *Resolver) WithPolicy(p Policy) *Resolver {
	hosts := make([]string, len(p.PointerHosts))
	copy(hosts, p.PointerHosts)
	p.PointerHosts = hosts
	return &Resolver{candidates: r.Candidates(), policy: p}
}

// Candidates returns the candidates in the order they are tried.
func (r *Resolver) Candidates() []Candidate {
	out := make([]Candidate, len(r.candidates))
	copy(out, r.candidates)
	return out
}

// Resolve locates name.  Relative names must stay inside the candidate
// directories.  URLs become pointers and absolute paths are read as-is, each
// only when the policy allows it.
func (r *Resolver) Resolve(name string) (Location, error) {
	if name == "" {
		return Location{}, fmt.Errorf("%w: empty definition name", ErrDefinitionNotFound)
	}
	if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		u, err := url.Parse(name)
		if err != nil || u.Host == "" {
			return Location{}, fmt.Errorf("%w: malformed url %q", ErrDefinitionRejected, name)
		}
		if !r.policy.allowsPointer(u) {
			return Location{}, fmt.Errorf("%w: host %q is not an allowed pointer host", ErrDefinitionRejected, u.Hostname())
		}
		return Location{Name: name, Pointer: name}, nil
	}
	if filepath.IsAbs(name) {
		if !r.policy.AllowAbsolute {
			return Location{}, fmt.Errorf("%w: absolute path %q", ErrDefinitionRejected, name)
		}
		if _, err := os.Stat(name); err != nil {
			return Location{}, fmt.Errorf("%w: %s", ErrDefinitionNotFound, name)
		}
		return Location{Name: name, Path: name}, nil
	}

	if !filepath.IsLocal(name) {
		return Location{}, fmt.Errorf("%w: %q leaves the definition directories", ErrDefinitionRejected, name)
	}

	tried := make([]string, 0, len(r.candidates))
	for _, c := range r.candidates {
		p, ok := c.Lookup(name)
		if ok {
			return Location{Name: name, Path: p}, nil
		}
		tried = append(tried, p)
	}
	return Location{}, fmt.Errorf("%w: %s (tried %s)", ErrDefinitionNotFound, name, strings.Join(tried, ", "))
}

//Personal.AI order the ending
