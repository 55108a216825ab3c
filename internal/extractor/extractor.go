package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/config"
)

// revision is bumped whenever a pattern or scanning rule changes, so cached
// scan results from an older extractor are not reused.
const revision = "2"

// ErrFileTooLarge is returned for files above the configured size ceiling.
var ErrFileTooLarge = errors.New("file exceeds size ceiling")

// Options are the tunable heuristics of the line scanner.
type Options struct {
	// ParamWindow is how many lines after a declaration are searched for parameters
	ParamWindow int
	// Denylist holds trimmed-line prefixes never treated as instantiations
	Denylist []string
	// MaxFileBytes skips larger files (0 = no ceiling)
	MaxFileBytes int64
}

// DefaultOptions returns the stock heuristics.
func DefaultOptions() Options {
	return Options{
		ParamWindow:  config.DefaultParamWindow,
		Denylist:     config.DefaultDenylist(),
		MaxFileBytes: config.DefaultMaxFileBytes,
	}
}

// OptionsFromConfig builds scanner options from a loaded config.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		ParamWindow:  cfg.Extract.ParamWindow,
		Denylist:     cfg.Extract.InstantiationDenylist,
		MaxFileBytes: cfg.FileSizeCeiling(),
	}
	if opts.ParamWindow < 1 {
		opts.ParamWindow = config.DefaultParamWindow
	}
	return opts
}

// Version fingerprints everything that changes scan output for the same bytes.
func (o Options) Version() string {
	h := sha256.New()
	io.WriteString(h, revision)
	io.WriteString(h, "\x00"+strconv.Itoa(o.ParamWindow))
	io.WriteString(h, "\x00"+strconv.FormatInt(o.MaxFileBytes, 10))
	for _, p := range o.Denylist {
		io.WriteString(h, "\x00"+p)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// FileFacts contains everything scanned out of a single source file
type FileFacts struct {
	File         string        `json:"file"`
	Dialect      string        `json:"dialect"`
	Declarations []Declaration `json:"declarations"`
	Sites        []Site        `json:"sites"`
}

// Declaration is one textual module declaration
type Declaration struct {
	Name       string   `json:"name"`
	Line       int      `json:"line"`
	Guard      string   `json:"guard"`
	Parameters []string `json:"parameters"`
}

// Site is a line shaped like an instantiation inside an enclosing module.
// It becomes an edge only if Type is a declared module name.
type Site struct {
	Enclosing string `json:"enclosing"`
	Type      string `json:"type"`
	Instance  string `json:"instance"`
	Line      int    `json:"line"`
}

// Extractor reads source files and runs the line scanners over them
type Extractor struct {
	opts Options
}

// New creates a new Extractor
func New(opts Options) *Extractor {
	if opts.ParamWindow < 1 {
		opts.ParamWindow = config.DefaultParamWindow
	}
	return &Extractor{opts: opts}
}

// Extract reads one file and scans it for declarations and instantiation sites.
// relPath and dialect are recorded verbatim.
func (e *Extractor) Extract(path, relPath, dialect string) (FileFacts, error) {
	lines, err := ReadLines(path, e.opts.MaxFileBytes)
	if err != nil {
		return FileFacts{File: relPath, Dialect: dialect}, err
	}
	return e.ExtractLines(relPath, dialect, lines), nil
}

// ExtractLines scans already-loaded lines.
func (e *Extractor) ExtractLines(relPath, dialect string, lines []string) FileFacts {
	return FileFacts{
		File:         relPath,
		Dialect:      dialect,
		Declarations: ScanDeclarations(lines, e.opts.ParamWindow),
		Sites:        ScanSites(lines, e.opts.Denylist),
	}
}

// ReadLines reads a whole file and splits it into lines. Invalid UTF-8 is
// dropped rather than reported. The file handle is closed before returning.
func ReadLines(path string, maxBytes int64) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	defer f.Close()

	if maxBytes > 0 {
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat file: %w", err)
		}
		if info.Size() > maxBytes {
			return nil, fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, info.Size(), maxBytes)
		}
	}

	var r io.Reader = f
	if maxBytes > 0 {
		// Guard against files growing between Stat and Read
		r = io.LimitReader(f, maxBytes+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	if maxBytes > 0 && int64(len(content)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, maxBytes)
	}
	return SplitLines(content), nil
}

// SplitLines decodes content lossily and splits it into lines. The line
// boundaries are \n, \r\n, \r, \v, \f, \x1c-\x1e, U+0085, U+2028 and
// U+2029, the same set Python's str.splitlines uses, so line numbers match
// inventories produced by the Python tooling. A trailing boundary does not
// produce an empty final line.
func SplitLines(content []byte) []string {
	text := strings.ToValidUTF8(string(content), "")
	var lines []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if !isLineBreak(r) {
			continue
		}
		lines = append(lines, text[start:i-size])
		if r == '\r' && i < len(text) && text[i] == '\n' {
			i++
		}
		start = i
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

// ScanDeclarations walks lines once, tracking the guard stack, and returns
// every module declaration with its guard expression and parameters.
func ScanDeclarations(lines []string, window int) []Declaration {
	if window < 1 {
		window = config.DefaultParamWindow
	}
	var decls []Declaration
	var guards guardStack

	for i, line := range lines {
		if d := matchDirective(line); d != nil {
			guards.apply(d[0], d[1])
			continue
		}

		m := matchModule(line)
		if m == nil {
			continue
		}

		decls = append(decls, Declaration{
			Name:       m[0],
			Line:       i + 1,
			Guard:      guards.expression(),
			Parameters: scanParameters(lines, i, window),
		})
	}
	return decls
}

// scanParameters collects parameter names from the declaration line at index
// start through the next window lines, stopping at the first endmodule line.
// Names are deduplicated keeping first occurrence.
func scanParameters(lines []string, start, window int) []string {
	end := start + window + 1
	if end > len(lines) {
		end = len(lines)
	}

	params := []string{}
	seen := make(map[string]bool)
	for _, probe := range lines[start:end] {
		if isEndModule(probe) {
			break
		}
		for _, name := range matchParameters(probe) {
			if seen[name] {
				continue
			}
			seen[name] = true
			params = append(params, name)
		}
	}
	return params
}

// ScanSites tracks the enclosing module and returns every line inside a
// module body shaped like an instantiation header. Guards are ignored.
func ScanSites(lines []string, denylist []string) []Site {
	var sites []Site
	current := ""

	for i, line := range lines {
		if m := matchModule(line); m != nil {
			current = m[0]
			continue
		}
		if isEndModule(line) {
			current = ""
			continue
		}
		if current == "" {
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "`") {
			continue
		}
		if hasDeniedPrefix(trimmed, denylist) {
			continue
		}

		inst := matchInstantiation(line)
		if inst == nil {
			continue
		}
		sites = append(sites, Site{
			Enclosing: current,
			Type:      inst[0],
			Instance:  inst[1],
			Line:      i + 1,
		})
	}
	return sites
}

// Universe is the frozen set of declared module names.
type Universe interface {
	Has(name string) bool
}

// NameSet is a Universe backed by a map.
type NameSet map[string]struct{}

// Has implements Universe.
func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Edge records that Parent instantiates Child.
type Edge struct {
	Child  string `json:"child"`
	Parent string `json:"parent"`
}

// ResolveInstantiations keeps the sites whose type is a declared module and
// returns them as edges, in site order, with duplicates removed.
func ResolveInstantiations(sites []Site, universe Universe) []Edge {
	var edges []Edge
	seen := make(map[Edge]bool)
	for _, s := range sites {
		if !universe.Has(s.Type) {
			continue
		}
		e := Edge{Child: s.Type, Parent: s.Enclosing}
		if seen[e] {
			continue
		}
		seen[e] = true
		edges = append(edges, e)
	}
	return edges
}
