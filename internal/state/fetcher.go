package state

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/plexsphere/plexfw/internal/backend"
	"github.com/plexsphere/plexfw/internal/rule"
)

// FatalToolError reports dump output in which the tool announced that it
// could not initialize, in place of rule data. The affected table is read
// as empty.
type FatalToolError struct {
	Table  string
	Banner string
}

// Error returns the formatted error string.
func (e *FatalToolError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("state: dump: tool failed to initialize: %s", e.Banner)
	}
	return fmt.Sprintf("state: dump: tool failed to initialize table %s: %s", e.Table, e.Banner)
}

// fatalPattern matches the banners the tool prints instead of rule data.
// Only lines that are not part of the dump grammar are tested against it.
var fatalPattern = regexp.MustCompile(`^(FATAL:|\S*(ip6?tables|xtables)\S*( v[0-9.]+)?( \([a-z_]+\))?: (can't initialize (ip6?tables|xtables) table|.*Table does not exist))`)

// Result is the outcome of parsing a dump: the snapshot plus any warnings
// (*rule.ParseWarning and *FatalToolError) that were recovered from.
type Result struct {
	Snapshot Snapshot
	Warnings []error
}

// ParseDump reads iptables-save output. Table sections ("*filter") reset
// the per-table rule counter; chain declarations register empty chains;
// every "-A" line is parsed with its zero-based index within the table.
func ParseDump(r io.Reader) (Result, error) {
	res := Result{Snapshot: NewSnapshot()}
	var (
		table   string
		index   int
		skipped bool
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
		case strings.HasPrefix(line, "*"):
			table = strings.TrimPrefix(line, "*")
			index = 0
			skipped = false
		case line == "COMMIT":
			table = ""
		case isBanner(line):
			res.Warnings = append(res.Warnings, &FatalToolError{Table: table, Banner: line})
			if table != "" {
				res.Snapshot.dropTable(table)
				skipped = true
			}
		case skipped || table == "":
		case strings.HasPrefix(line, ":"):
			if fields := strings.Fields(strings.TrimPrefix(line, ":")); len(fields) > 0 {
				res.Snapshot.declare(table, fields[0])
			}
		default:
			parsed, warnings := rule.Parse(line, table, index)
			index++
			for _, w := range warnings {
				res.Warnings = append(res.Warnings, w)
			}
			if parsed.Chain == "" {
				continue
			}
			res.Snapshot.add(parsed)
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("state: dump: read: %w", err)
	}
	return res, nil
}

// Fetcher reads the live rule set of one backend.
type Fetcher struct {
	backend backend.Backend
	runner  backend.CommandRunner
	logger  *slog.Logger
}

// NewFetcher creates a Fetcher for b.
func NewFetcher(b backend.Backend, runner backend.CommandRunner, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		backend: b,
		runner:  runner,
		logger:  logger.With("component", "state", "backend", b.Name()),
	}
}

// Fetch runs the dump command once and parses its output. Output in which
// the tool reports that it could not initialize yields an empty snapshot
// and a warning rather than an error; any other non-zero exit is returned
// as *backend.ExternalCommandError.
func (f *Fetcher) Fetch() (Result, error) {
	name, args := f.backend.DumpCommand()
	out, err := f.runner.Run(name, args...)
	if err != nil {
		var cmdErr *backend.ExternalCommandError
		if errors.As(err, &cmdErr) && hasFatalBanner(cmdErr.Output) {
			out = []byte(cmdErr.Output)
		} else {
			return Result{}, fmt.Errorf("state: fetch: %w", err)
		}
	}

	res, err := ParseDump(bytes.NewReader(out))
	if err != nil {
		return Result{}, err
	}
	for _, w := range res.Warnings {
		f.logger.Warn("recovered from dump problem", "error", w)
	}
	f.logger.Debug("fetched rules",
		"chains", len(res.Snapshot.sets),
		"rules", res.Snapshot.Len(),
	)
	return res, nil
}

func hasFatalBanner(output string) bool {
	for _, line := range strings.Split(output, "\n") {
		if isBanner(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

// isBanner reports whether line is a tool banner. Rule and chain lines are
// never banners, whatever their comments or log prefixes say.
func isBanner(line string) bool {
	if strings.HasPrefix(line, "-A ") || strings.HasPrefix(line, ":") ||
		strings.HasPrefix(line, "*") || line == "COMMIT" {
		return false
	}
	return fatalPattern.MatchString(line)
}
