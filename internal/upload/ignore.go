// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upload

import (
	"regexp"
	"strings"
	"sync"
)

// ignorePatterns lists glob patterns excluded from directory uploads:
// VCS internals, build output, dependency caches, lockfiles, media and
// editor litter. A `*` here matches across path separators, so
// patterns like `*/build/*` catch any depth.
var ignorePatterns = []string{
	"*/.terraform/*", ".terraform",
	"*/.terragrunt-cache/*", ".terragrunt-cache",
	"*.tfstate", "*.tfstate*",
	"*/.tfsec/*", ".tfsec",
	".vmc-makefile", "*/.centralized-makefile",
	"Pipfile", "*/Pipfile", "Pipfile.lock", "*/Pipfile.lock",
	".test-plans", "*/.test-plans", ".cache", "*/.cache",
	"*.pyc", "*/*.pyc", "*.pyo", "*/*.pyo", "*.zip", "*/*.zip",
	"__pycache__", "*/__pycache__", ".tox", "*/.tox",
	"*.egg-info", "*/*.egg-info", ".coverage", "*/.coverage",
	".pytest_cache", "*/.pytest_cache", "nosetests.xml", "*/nosetests.xml",
	"coverage.xml", "*/coverage.xml", "htmlcov/", "*/htmlcov/",
	"report.xml", "*/report.xml", "build/*", "*/build/*", "dist/*",
	"*/dist/*", "test-generated*.yml", "*/test-generated*.yml",
	".DS_Store", "._.DS_Store", ".librarian", ".idea", ".vscode",
	".history", "*swp", ".envrc", ".direnv", ".editorconfig",
	".external_modules", "modules/*", ".terraform.lock.hcl", "*.png",
	"*.jpg", "*.jpeg", "*.bmp", ".test-data", "*.plan", "*plan.out",
	"*plan.summary", "*/.git/hooks", "*/.git/info", "*/.git/logs",
	"*/.git/objects", "*/.git/refs", "*/.gitignore", "*/.git-credentials",
	"*/manifest.json", ".checkov.yaml", "*/saml/*",
}

var (
	ignoreOnce sync.Once
	ignoreRe   []*regexp.Regexp
)

// ShouldIgnore reports whether a path matches any ignore pattern.
func ShouldIgnore(path string) bool {
	ignoreOnce.Do(compileIgnorePatterns)
	for _, re := range ignoreRe {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// PERFORMANCE: Patterns compile once; directory walks call
// ShouldIgnore per entry.
func compileIgnorePatterns() {
	ignoreRe = make([]*regexp.Regexp, 0, len(ignorePatterns))
	for _, pattern := range ignorePatterns {
		ignoreRe = append(ignoreRe, regexp.MustCompile("^"+globToRegexp(pattern)+"$"))
	}
}

// globToRegexp translates a glob pattern to a regular expression where
// `*` matches any run of characters, separators included, and `?`
// matches a single character.
func globToRegexp(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}
