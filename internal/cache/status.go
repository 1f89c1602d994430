package cache

import (
	"bytes"
	"encoding/json"

	"github.com/gitagen/gitagen/internal/git"
)

// StatusKind tells how a cached status payload was decoded.
type StatusKind int

const (
	// StatusUnparseable payloads are treated as a miss.
	StatusUnparseable StatusKind = iota
	// StatusCanonical payloads hold {path, changeType} objects only.
	StatusCanonical
	// StatusLegacy payloads held bare path strings or objects without a
	// change type and were normalized.
	StatusLegacy
)

func (k StatusKind) String() string {
	switch k {
	case StatusCanonical:
		return "canonical"
	case StatusLegacy:
		return "legacy"
	}
	return "unparseable"
}

// StatusDecode is the result of DecodeStatus. Status is only meaningful
// when Kind is not StatusUnparseable.
type StatusDecode struct {
	Kind   StatusKind
	Status git.Status
}

// OK reports whether the payload can be served.
func (d StatusDecode) OK() bool {
	return d.Kind != StatusUnparseable
}

type statusBucket struct {
	name          string
	defaultChange string
	dest          func(*git.Status) *[]git.FileChange
}

var statusBuckets = []statusBucket{
	{"staged", git.ChangeModified, func(s *git.Status) *[]git.FileChange { return &s.Staged }},
	{"unstaged", git.ChangeModified, func(s *git.Status) *[]git.FileChange { return &s.Unstaged }},
	{"untracked", git.ChangeUntracked, func(s *git.Status) *[]git.FileChange { return &s.Untracked }},
}

// DecodeStatus decodes a cached status payload written by any version.
// Older versions stored bucket entries as bare path strings; those get the
// bucket's default change type.
func DecodeStatus(raw []byte) StatusDecode {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil || top == nil {
		return StatusDecode{Kind: StatusUnparseable}
	}

	st := git.Status{
		Staged:    []git.FileChange{},
		Unstaged:  []git.FileChange{},
		Untracked: []git.FileChange{},
	}
	if v, ok := top["branch"]; ok {
		_ = json.Unmarshal(v, &st.Branch)
	}
	if v, ok := top["upstream"]; ok {
		_ = json.Unmarshal(v, &st.Upstream)
	}

	kind := StatusCanonical
	for _, b := range statusBuckets {
		v, ok := top[b.name]
		if !ok || isNull(v) {
			continue
		}
		var elems []json.RawMessage
		if err := json.Unmarshal(v, &elems); err != nil {
			return StatusDecode{Kind: StatusUnparseable}
		}

		dest := b.dest(&st)
		for _, e := range elems {
			fc, legacy, ok := decodeChange(e, b.defaultChange)
			if !ok {
				return StatusDecode{Kind: StatusUnparseable}
			}
			if legacy {
				kind = StatusLegacy
			}
			*dest = append(*dest, fc)
		}
	}

	return StatusDecode{Kind: kind, Status: st}
}

func decodeChange(raw json.RawMessage, defaultChange string) (fc git.FileChange, legacy, ok bool) {
	var path string
	if err := json.Unmarshal(raw, &path); err == nil {
		if path == "" {
			return fc, false, false
		}
		return git.FileChange{Path: path, ChangeType: defaultChange}, true, true
	}

	var obj struct {
		Path       *string `json:"path"`
		ChangeType *string `json:"changeType"`
		OldPath    string  `json:"oldPath"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.Path == nil || *obj.Path == "" {
		return fc, false, false
	}
	fc = git.FileChange{Path: *obj.Path, OldPath: obj.OldPath}
	if obj.ChangeType == nil || *obj.ChangeType == "" {
		fc.ChangeType = defaultChange
		return fc, true, true
	}
	fc.ChangeType = *obj.ChangeType
	return fc, false, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
