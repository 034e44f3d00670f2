package rules

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/leapstack-labs/autodash/pkg/core"
)

//go:embed defaults/*.yaml
var defaultRules embed.FS

// LoadError reports a rule file that could not be loaded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Loader reads rule files.
type Loader struct {
	Types  TypeInferrer
	Logger *slog.Logger
}

// LoadFS reads every .yaml/.yml file under dir, recursively. The rule name is
// the file name without extension.
func (l *Loader) LoadFS(fsys fs.FS, dir string) (*RuleSet, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var parsed []*core.Rule
	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := path.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			logger.Debug("skipping non-rule file", slog.String("path", p))
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return &LoadError{Path: p, Err: err}
		}
		name := strings.TrimSuffix(path.Base(p), ext)
		rule, err := Parse(name, data, l.Types)
		if err != nil {
			return &LoadError{Path: p, Err: err}
		}
		parsed = append(parsed, rule)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load rules from %s: %w", dir, err)
	}

	set, err := NewRuleSet(parsed...)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble rules from %s: %w", dir, err)
	}
	logger.Debug("loaded rules", slog.String("dir", dir), slog.Int("count", len(set.Rules())))
	return set, nil
}

// LoadDir reads rules from a directory on disk.
func LoadDir(dir string, types TypeInferrer) (*RuleSet, error) {
	l := &Loader{Types: types}
	return l.LoadFS(os.DirFS(dir), ".")
}

// Defaults returns the built-in rules.
func Defaults(types TypeInferrer) (*RuleSet, error) {
	l := &Loader{Types: types}
	return l.LoadFS(defaultRules, "defaults")
}
