package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// MinVersion is the oldest git the provider works with: "git restore"
// and "branch --show-current" arrived in 2.23.
var MinVersion = Version{Major: 2, Minor: 23}

// ErrGitNotFound indicates git is not installed or not in PATH
var ErrGitNotFound = errors.New("git not found: please install git (https://git-scm.com)")

// Version is a git release number.
type Version struct {
	Major, Minor, Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Less reports whether v is older than o.
func (v Version) Less(o Version) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor < o.Minor
	}
	return v.Patch < o.Patch
}

var versionRe = regexp.MustCompile(`git version (\d+)\.(\d+)(?:\.(\d+))?`)

// ParseVersion extracts the version from "git version" output, e.g.
// "git version 2.39.3 (Apple Git-145)".
func ParseVersion(output string) (Version, error) {
	m := versionRe.FindStringSubmatch(output)
	if m == nil {
		return Version{}, fmt.Errorf("unrecognized git version output %q", strings.TrimSpace(output))
	}
	var v Version
	v.Major, _ = strconv.Atoi(m[1])
	v.Minor, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		v.Patch, _ = strconv.Atoi(m[3])
	}
	return v, nil
}

// CheckGit verifies that git is in PATH and at least MinVersion.
func CheckGit(ctx context.Context) error {
	if _, err := exec.LookPath("git"); err != nil {
		return ErrGitNotFound
	}
	output, err := outputGit(ctx, "", "version")
	if err != nil {
		return fmt.Errorf("failed to run git: %w", err)
	}
	v, err := ParseVersion(string(output))
	if err != nil {
		return err
	}
	if v.Less(MinVersion) {
		return fmt.Errorf("git %s is too old: gitagen needs git %d.%d or newer", v, MinVersion.Major, MinVersion.Minor)
	}
	return nil
}

// IsInsideRepoPath returns true if the given path is inside a git work tree
func IsInsideRepoPath(ctx context.Context, path string) bool {
	err := runGit(ctx, path, "rev-parse", "--is-inside-work-tree")
	return err == nil
}
