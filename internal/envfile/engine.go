package envfile

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mlopshq/stackctl/internal/logging"
)

// ErrTemplateNotFound is returned when generation is required but no
// template exists to generate from. The bootstrap workflow cannot continue.
var ErrTemplateNotFound = errors.New("env template not found")

// stalenessMarkers flag an already-generated file that still carries
// unresolved placeholders. Matching is case-sensitive on trimmed assignment
// values.
var stalenessMarkers = []string{
	"change_me",
	"CHANGEME",
}

// Engine runs the template → classify → reconcile → write pipeline.
// It is single-threaded; the write at the end is the only mutation, so a
// failure anywhere upstream leaves the output file untouched.
type Engine struct {
	logger *logging.Logger
	gen    Generator
	opts   Options
}

// New creates an engine using the crypto/rand generator.
func New(logger *logging.Logger, opts Options) *Engine {
	return NewWithGenerator(logger, NewGenerator(), opts)
}

// NewWithGenerator creates an engine with an explicit secret generator.
// Tests use this to substitute a deterministic source.
func NewWithGenerator(logger *logging.Logger, gen Generator, opts Options) *Engine {
	return &Engine{
		logger: logger,
		gen:    gen,
		opts:   opts.withDefaults(),
	}
}

// DefaultOutputPath derives the output path from a template path by
// trimming a trailing ".example" (".env.example" → ".env"). A template
// without the suffix maps to ".env" alongside it.
func DefaultOutputPath(templatePath string) string {
	if strings.HasSuffix(templatePath, ".example") {
		return strings.TrimSuffix(templatePath, ".example")
	}
	return ".env"
}

// ReadTemplate loads the template's lines, each retaining its trailing
// newline (a final unterminated line keeps none). A missing file is
// ErrTemplateNotFound.
func ReadTemplate(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, path)
		}
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	return splitLines(data), nil
}

// splitLines splits file contents keeping each line's "\n" terminator.
func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	var lines []string
	rest := string(data)
	for {
		idx := strings.Index(rest, "\n")
		if idx < 0 {
			if rest != "" {
				lines = append(lines, rest)
			}
			return lines
		}
		lines = append(lines, rest[:idx+1])
		rest = rest[idx+1:]
	}
}

// writeLines overwrites path with the computed lines. Full rewrite, no
// backup; the file holds secrets, so it is owner-only.
func writeLines(path string, lines []string) error {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Generate runs the full pipeline: read the template, substitute
// placeholders, reconcile admin credentials and write the output file.
// Any previously generated secrets in the output are discarded.
func (e *Engine) Generate(templatePath, outPath string) error {
	lines, err := ReadTemplate(templatePath)
	if err != nil {
		return err
	}

	e.logger.Info("Generating %s from %s", outPath, templatePath)

	processed := make([]string, 0, len(lines))
	for _, line := range lines {
		processed = append(processed, processLine(line, e.gen, e.opts))
	}
	processed = reconcileAdminCredentials(processed, e.gen, e.opts)

	if err := writeLines(outPath, processed); err != nil {
		return err
	}

	e.logger.Info("Generated secure values for all placeholder fields")
	return nil
}

// Stale reports whether an existing output file still contains placeholder
// markers, returning the distinct markers found.
func Stale(path string) (bool, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, nil, fmt.Errorf("read %s: %w", path, err)
	}

	seen := map[string]bool{}
	var found []string
	for _, line := range splitLines(data) {
		_, value, _, ok := splitAssignment(line)
		if !ok {
			continue
		}
		trimmed := strings.TrimSpace(value)
		for _, marker := range stalenessMarkers {
			if strings.Contains(trimmed, marker) {
				if !seen[marker] {
					seen[marker] = true
					found = append(found, marker)
				}
				break
			}
		}
	}
	return len(found) > 0, found, nil
}

// Ensure makes sure a fully provisioned output file exists.
//
// Missing output + present template → generate. Missing both →
// ErrTemplateNotFound. Existing output with placeholder markers → full
// regeneration. Existing clean output → no write at all.
func (e *Engine) Ensure(templatePath, outPath string) error {
	if _, err := os.Stat(outPath); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("stat %s: %w", outPath, err)
		}
		if _, terr := os.Stat(templatePath); terr != nil {
			if os.IsNotExist(terr) {
				return fmt.Errorf("%w: neither %s nor %s exists", ErrTemplateNotFound, outPath, templatePath)
			}
			return fmt.Errorf("stat %s: %w", templatePath, terr)
		}
		return e.Generate(templatePath, outPath)
	}

	stale, markers, err := Stale(outPath)
	if err != nil {
		return err
	}
	if !stale {
		e.logger.Debug("%s has no placeholder markers, leaving it untouched", outPath)
		return nil
	}

	e.logger.Warn("Found placeholder values in %s: %s", outPath, strings.Join(markers, ", "))
	e.logger.Info("Regenerating %s with secure values", outPath)
	return e.Generate(templatePath, outPath)
}

// UpdateValue rewrites a single assignment in an existing env file,
// appending it when absent. Every other line is preserved byte-for-byte.
// Used after credential rotation, not by the generation pipeline.
func UpdateValue(path, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	prefix := key + "="
	lines := splitLines(data)
	replaced := false
	for i, line := range lines {
		if strings.HasPrefix(line, prefix) {
			lines[i] = prefix + value + "\n"
			replaced = true
			break
		}
	}
	if !replaced {
		lines = appendLine(lines, prefix+value+"\n")
	}
	return writeLines(path, lines)
}

// Parse reads an env file into a key→value map. Comments, blank lines and
// non-assignment lines are skipped; values keep inner whitespace but lose
// the line terminator.
func Parse(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	vars := make(map[string]string)
	for _, line := range splitLines(data) {
		key, value, _, ok := splitAssignment(line)
		if !ok {
			continue
		}
		vars[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return vars, nil
}
