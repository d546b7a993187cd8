package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Ignore decides which source files the generator skips. Patterns are
//
//	r:<regexp>   matched against the slash separated path
//	dir/         everything below dir
//	path         that exact file
//
// and an optional gitignore style file adds to them.
type Ignore struct {
	patterns []string
	regexps  []*regexp.Regexp
	file     *gitignore.GitIgnore
}

func NewIgnore(patterns []string, ignoreFile string) (*Ignore, error) {
	ig := &Ignore{}
	for _, pattern := range patterns {
		if strings.HasPrefix(pattern, "r:") {
			r, err := regexp.Compile(pattern[2:])
			if err != nil {
				return nil, fmt.Errorf("ignore pattern %q: %w", pattern, err)
			}
			ig.regexps = append(ig.regexps, r)
			continue
		}
		ig.patterns = append(ig.patterns, filepath.ToSlash(pattern))
	}

	if ignoreFile != "" {
		if _, err := os.Stat(ignoreFile); err == nil {
			file, err := gitignore.CompileIgnoreFile(ignoreFile)
			if err != nil {
				return nil, fmt.Errorf("ignore file %s: %w", ignoreFile, err)
			}
			ig.file = file
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("ignore file %s: %w", ignoreFile, err)
		}
	}
	return ig, nil
}

// Match expects a path relative to the directory the patterns were written for.
func (ig *Ignore) Match(path string) bool {
	path = filepath.ToSlash(path)
	for _, r := range ig.regexps {
		if r.MatchString(path) {
			return true
		}
	}
	for _, pattern := range ig.patterns {
		if pattern == path {
			return true
		}
		if strings.HasSuffix(pattern, "/") && strings.HasPrefix(path, pattern) {
			return true
		}
	}
	return ig.file != nil && ig.file.MatchesPath(path)
}
