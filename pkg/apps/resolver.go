package apps

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/grovetools/dock/errors"
	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"
)

// Delimiter separates the category from the label in a folder name.
const Delimiter = "-"

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	// Ignore holds dockerignore-style patterns matched against folder names.
	Ignore []string
	// FrameworkKeyword marks apps whose display name contains it
	// (case-insensitive) as framework apps. Empty disables the rule.
	FrameworkKeyword string
	Logger           *logrus.Entry
}

// Resolver turns a scan root into a CategoryIndex.
type Resolver struct {
	keyword string
	ignore  *patternmatcher.PatternMatcher
	logger  *logrus.Entry
}

// NewResolver compiles the ignore patterns and returns a Resolver.
func NewResolver(opts ResolverOptions) (*Resolver, error) {
	r := &Resolver{
		keyword: strings.ToLower(opts.FrameworkKeyword),
		logger:  opts.Logger,
	}
	if r.logger == nil {
		r.logger = logrus.NewEntry(logrus.StandardLogger())
	}

	if len(opts.Ignore) > 0 {
		pm, err := patternmatcher.New(opts.Ignore)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid ignore pattern")
		}
		r.ignore = pm
	}

	return r, nil
}

// Resolve scans the immediate children of root. Entries that are not
// directories, lack the delimiter or match an ignore pattern are skipped.
// A missing or non-directory root fails with NOT_A_DIRECTORY and no index.
func (r *Resolver) Resolve(root string) (CategoryIndex, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, errors.NotADirectory(root)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.NotADirectory(root)
	}

	entries, err := os.ReadDir(absRoot)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeNotADirectory, "Invalid folder path").
			WithDetail("path", root)
	}

	index := make(CategoryIndex)
	for _, entry := range entries {
		name := entry.Name()
		childPath := filepath.Join(absRoot, name)

		if !isDir(entry, childPath) {
			continue
		}

		category, label, ok := strings.Cut(name, Delimiter)
		if !ok {
			continue
		}

		if r.ignored(name) {
			r.logger.WithField("folder", name).Debug("Skipping ignored folder")
			continue
		}

		index[category] = append(index[category], r.describe(label, childPath))
	}

	r.logger.WithFields(logrus.Fields{
		"root":       absRoot,
		"categories": len(index),
		"apps":       index.Len(),
	}).Debug("Resolved app folders")

	return index, nil
}

// Describe builds the descriptor for a single app folder. Folders without
// the delimiter use their base name as the label.
func (r *Resolver) Describe(path string) AppDescriptor {
	base := filepath.Base(path)
	if _, label, ok := strings.Cut(base, Delimiter); ok {
		base = label
	}
	return r.describe(base, path)
}

// IsFramework reports whether a display name selects framework mode.
func (r *Resolver) IsFramework(displayName string) bool {
	return r.keyword != "" && strings.Contains(strings.ToLower(displayName), r.keyword)
}

func (r *Resolver) describe(label, path string) AppDescriptor {
	name := DisplayName(label)
	return AppDescriptor{
		Name:      name,
		Path:      path,
		Framework: r.IsFramework(name),
	}
}

func (r *Resolver) ignored(name string) bool {
	if r.ignore == nil {
		return false
	}
	matched, err := r.ignore.MatchesOrParentMatches(name)
	if err != nil {
		r.logger.WithError(err).WithField("folder", name).Warn("Ignore pattern evaluation failed")
		return false
	}
	return matched
}

// DisplayName replaces underscores in a raw label with spaces.
func DisplayName(label string) string {
	return strings.ReplaceAll(label, "_", " ")
}

// isDir follows symlinks so a linked app folder is still discovered.
func isDir(entry os.DirEntry, path string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
