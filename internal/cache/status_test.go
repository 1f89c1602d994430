package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gitagen/gitagen/internal/git"
)

func TestDecodeStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		raw       string
		kind      StatusKind
		staged    []git.FileChange
		unstaged  []git.FileChange
		untracked []git.FileChange
	}{
		{
			name: "canonical",
			raw:  `{"branch":"main","staged":[{"path":"a","changeType":"added"}],"unstaged":[],"untracked":[{"path":"n","changeType":"untracked"}]}`,
			kind: StatusCanonical,
			staged: []git.FileChange{
				{Path: "a", ChangeType: git.ChangeAdded},
			},
			untracked: []git.FileChange{
				{Path: "n", ChangeType: git.ChangeUntracked},
			},
		},
		{
			name: "legacy bare strings",
			raw:  `{"staged":["a"],"unstaged":["b"],"untracked":["c"]}`,
			kind: StatusLegacy,
			staged: []git.FileChange{
				{Path: "a", ChangeType: git.ChangeModified},
			},
			unstaged: []git.FileChange{
				{Path: "b", ChangeType: git.ChangeModified},
			},
			untracked: []git.FileChange{
				{Path: "c", ChangeType: git.ChangeUntracked},
			},
		},
		{
			name: "legacy mixed shapes",
			raw:  `{"unstaged":["b",{"path":"d","changeType":"deleted"},{"path":"e"}]}`,
			kind: StatusLegacy,
			unstaged: []git.FileChange{
				{Path: "b", ChangeType: git.ChangeModified},
				{Path: "d", ChangeType: git.ChangeDeleted},
				{Path: "e", ChangeType: git.ChangeModified},
			},
		},
		{
			name: "missing and null buckets",
			raw:  `{"staged":null}`,
			kind: StatusCanonical,
		},
		{name: "top-level array", raw: `["a"]`, kind: StatusUnparseable},
		{name: "top-level string", raw: `"a"`, kind: StatusUnparseable},
		{name: "null", raw: `null`, kind: StatusUnparseable},
		{name: "invalid json", raw: `{"staged":`, kind: StatusUnparseable},
		{name: "bucket not an array", raw: `{"staged":"a"}`, kind: StatusUnparseable},
		{name: "element without path", raw: `{"staged":[{"changeType":"added"}]}`, kind: StatusUnparseable},
		{name: "numeric element", raw: `{"untracked":[1]}`, kind: StatusUnparseable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := DecodeStatus([]byte(tt.raw))
			assert.Equal(t, tt.kind, got.Kind, "kind %s", got.Kind)
			if tt.kind == StatusUnparseable {
				assert.False(t, got.OK())
				return
			}
			assert.True(t, got.OK())

			norm := func(fc []git.FileChange) []git.FileChange {
				if fc == nil {
					return []git.FileChange{}
				}
				return fc
			}
			assert.Equal(t, norm(tt.staged), got.Status.Staged)
			assert.Equal(t, norm(tt.unstaged), got.Status.Unstaged)
			assert.Equal(t, norm(tt.untracked), got.Status.Untracked)
		})
	}
}
