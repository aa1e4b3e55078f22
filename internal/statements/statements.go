package statements

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

var (
	// ErrUnrecognizedFormat is returned when no registered parser identifies a statement.
	ErrUnrecognizedFormat = errors.New("unrecognized statement format")
	// ErrMalformedLine marks a transaction line that could not be decomposed.
	ErrMalformedLine = errors.New("malformed statement line")
	// ErrNoYear is returned when a text statement carries no year anywhere.
	ErrNoYear = errors.New("statement year not found")
)

// Parser converts extracted statement text into a Statement.
type Parser interface {
	Institution() string
	Identify(text, filename string) bool
	Parse(text string) (*Statement, error)
}

// Metadata is the statement header information a parser could recover.
type Metadata struct {
	AccountHolder  string
	AccountNumber  string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	OpeningBalance decimal.NullDecimal
	ClosingBalance decimal.NullDecimal
}

// LineError records a line that was skipped during parsing.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e LineError) Unwrap() error { return e.Err }

// Statement is one parsed statement file.
type Statement struct {
	Institution  string
	Transactions []model.Transaction
	Metadata     Metadata
	Errors       []LineError
}

func (s *Statement) lineError(line int, text string, format string, args ...any) {
	s.Errors = append(s.Errors, LineError{
		Line: line,
		Text: strings.TrimSpace(text),
		Err:  fmt.Errorf("%w: %s", ErrMalformedLine, fmt.Sprintf(format, args...)),
	})
}

// Registry holds parsers in identification order.
type Registry struct {
	parsers []Parser
	byName  map[string]Parser
}

// FileInfo describes a statement file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate institution.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Institution())
	if _, ok := r.byName[key]; ok {
		panic("duplicate parser institution: " + key)
	}
	r.byName[key] = p
	r.parsers = append(r.parsers, p)
}

// Get returns the parser for institution, or nil.
func (r *Registry) Get(institution string) Parser {
	return r.byName[strings.ToLower(institution)]
}

// Institutions lists registered parsers in identification order.
func (r *Registry) Institutions() []string {
	names := make([]string, len(r.parsers))
	for i, p := range r.parsers {
		names[i] = p.Institution()
	}
	return names
}

// Identify returns the first parser that recognizes the statement.
func (r *Registry) Identify(text, filename string) (Parser, error) {
	for _, p := range r.parsers {
		if p.Identify(text, filename) {
			return p, nil
		}
	}
	return nil, ErrUnrecognizedFormat
}

// Parse identifies the statement and parses it. Every transaction's Source is
// set to the file's base name.
func (r *Registry) Parse(text, filename string) (*Statement, error) {
	p, err := r.Identify(text, filename)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(filename), err)
	}
	st, err := p.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing %s as %s: %w", filepath.Base(filename), p.Institution(), err)
	}
	if filename != "" {
		for i := range st.Transactions {
			st.Transactions[i].Source = filepath.Base(filename)
		}
	}
	return st, nil
}

// DefaultRegistry returns a registry with all built-in parsers. Card parsers
// come before chequing parsers of the same bank.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ChaseParser{})
	r.Register(&AmexParser{})
	r.Register(&TDVisaParser{})
	r.Register(&RBCVisaParser{})
	r.Register(&TDChequingParser{})
	r.Register(&RBCChequingParser{})
	r.Register(&ScotiaChequingParser{})
	return r
}

// importDir is the subdirectory for statement files.
const importDir = "import"

// processedDir is the subdirectory for processed statement files.
const processedDir = "import/processed"

var importExts = []string{".csv", ".txt"}

// Scan returns statement files in <repoRoot>/import/.
func Scan(repoRoot string) ([]FileInfo, error) {
	dir := filepath.Join(repoRoot, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !hasImportExt(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

func hasImportExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range importExts {
		if ext == e {
			return true
		}
	}
	return false
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(repoRoot, fileName string) error {
	src := filepath.Join(repoRoot, importDir, fileName)
	dstDir := filepath.Join(repoRoot, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
