package repo

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// IgnoreChecker determines if a path should be ignored, implementing a
// gitignore(5)-shaped subset: per-directory .gitignore files, shell-glob
// wildcards, globstar, directory-only patterns, and negation.
type IgnoreChecker struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	dir      string // containing directory, repo-relative, "" for root, no trailing slash
	pattern  string // pattern text with negation/anchoring/dirOnly markers stripped
	negated  bool
	dirOnly  bool
	anchored bool // pattern is anchored to dir (leading '/' or contains an internal '/')
	regex    *regexp.Regexp
}

// NewIgnoreChecker creates an IgnoreChecker for the given repository root. It
// always ignores .git/. Every .gitignore file found by walking the work tree
// is loaded, in top-down order so that deeper directories' patterns are
// appended after (and so take precedence over) shallower ones.
func NewIgnoreChecker(repoRoot string) *IgnoreChecker {
	ic := &IgnoreChecker{}

	ic.patterns = append(ic.patterns, ignorePattern{pattern: ".git", dirOnly: false})

	var gitignoreDirs []string
	_ = filepath.WalkDir(repoRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(repoRoot, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			rel = ""
		}
		if rel == ".git" || strings.HasPrefix(rel, ".git/") {
			return fs.SkipDir
		}
		if _, err := os.Stat(filepath.Join(p, ".gitignore")); err == nil {
			gitignoreDirs = append(gitignoreDirs, rel)
		}
		return nil
	})
	sort.Strings(gitignoreDirs) // shallower dirs sort first, consistent with depth for "" prefix

	for _, dir := range gitignoreDirs {
		f, err := os.Open(filepath.Join(repoRoot, filepath.FromSlash(dir), ".gitignore"))
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if p := parseLine(dir, scanner.Text()); p != nil {
				ic.patterns = append(ic.patterns, *p)
			}
		}
		f.Close()
	}

	return ic
}

// parseLine parses a single line from a .gitignore found in directory dir
// (repo-relative, "" for root). Returns nil if the line is empty or a
// comment.
func parseLine(dir, line string) *ignorePattern {
	line = strings.TrimRight(line, " \t")
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	p := &ignorePattern{dir: dir}

	if strings.HasPrefix(line, "!") {
		p.negated = true
		line = line[1:]
	}

	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimRight(line, "/")
	}

	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = line[1:]
	}
	if strings.Contains(line, "/") {
		p.anchored = true
	}

	p.pattern = line
	if strings.ContainsAny(line, "*?[") {
		if re, err := regexp.Compile(globToRegex(line)); err == nil {
			p.regex = re
		}
	}
	return p
}

// IsIgnored checks whether a relative path should be ignored. The path should
// use forward slashes and be relative to the repository root.
//
// Last matching pattern wins (to support negation), scanning patterns in
// discovery order (root file first, then nested files, in within-file line
// order) so that a more specific (deeper) .gitignore overrides a shallower
// one, and a later line in the same file overrides an earlier one.
func (ic *IgnoreChecker) IsIgnored(p string) bool {
	p = filepath.ToSlash(p)

	ignored := false
	for idx := range ic.patterns {
		if ic.patterns[idx].matches(p) {
			ignored = !ic.patterns[idx].negated
		}
	}
	return ignored
}

// matches reports whether this pattern matches the given repo-relative path.
func (p *ignorePattern) matches(fullPath string) bool {
	if p.pattern == ".git" && p.dir == "" {
		return fullPath == ".git" || strings.HasPrefix(fullPath, ".git/")
	}

	sub, ok := stripDirPrefix(fullPath, p.dir)
	if !ok {
		return false
	}

	if p.anchored {
		return p.match(sub)
	}

	// Unanchored: match the basename, or any ancestor path segment (so that
	// an ignored directory name also covers everything nested under it).
	for _, segment := range strings.Split(sub, "/") {
		if p.match(segment) {
			return true
		}
	}
	return false
}

func stripDirPrefix(fullPath, dir string) (string, bool) {
	if dir == "" {
		return fullPath, true
	}
	if fullPath == dir {
		return "", true
	}
	if strings.HasPrefix(fullPath, dir+"/") {
		return fullPath[len(dir)+1:], true
	}
	return "", false
}

func (p *ignorePattern) match(target string) bool {
	if p.regex != nil {
		return p.regex.MatchString(target)
	}
	matched, _ := filepath.Match(p.pattern, target)
	return matched
}

func globToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		if ch == '*' {
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					// Globstar directory segment: match zero or more path segments.
					b.WriteString("(?:.*/)?")
					i += 2
				} else {
					b.WriteString(".*")
					i++
				}
				continue
			}
			b.WriteString("[^/]*")
			continue
		}
		if ch == '?' {
			b.WriteString("[^/]")
			continue
		}
		if strings.ContainsRune(`.+()|[]{}^$\\`, rune(ch)) {
			b.WriteByte('\\')
		}
		b.WriteByte(ch)
	}
	b.WriteString("$")
	return b.String()
}
