package cask

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MarshalCommit serializes a CommitObj to a deterministic text format:
//
//	tree <csum>
//	meta <csum>
//	parent <csum>
//	time <unix>
//
//	<subject>
//
// The parent line is omitted for initial commits.
func MarshalCommit(c *CommitObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.RootTree)
	fmt.Fprintf(&buf, "meta %s\n", c.RootMeta)
	if c.Parent != "" {
		fmt.Fprintf(&buf, "parent %s\n", c.Parent)
	}
	fmt.Fprintf(&buf, "time %d\n", c.Time)
	buf.WriteByte('\n')
	buf.WriteString(c.Subject)
	return buf.Bytes()
}

// UnmarshalCommit parses a CommitObj from its serialized form.
func UnmarshalCommit(data []byte) (*CommitObj, error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return nil, fmt.Errorf("unmarshal commit: missing header/subject separator")
	}
	header := string(data[:idx])
	c := &CommitObj{Subject: string(data[idx+2:])}

	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("unmarshal commit: malformed header line %q", line)
		}
		switch key {
		case "tree":
			c.RootTree = Checksum(val)
		case "meta":
			c.RootMeta = Checksum(val)
		case "parent":
			c.Parent = Checksum(val)
		case "time":
			t, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: invalid time %q: %w", val, err)
			}
			c.Time = t
		default:
			return nil, fmt.Errorf("unmarshal commit: unknown header key %q", key)
		}
	}
	if !ValidChecksum(c.RootTree) || !ValidChecksum(c.RootMeta) {
		return nil, fmt.Errorf("unmarshal commit: missing tree or meta checksum")
	}
	if c.Parent != "" && !ValidChecksum(c.Parent) {
		return nil, fmt.Errorf("unmarshal commit: invalid parent checksum %q", c.Parent)
	}
	return c, nil
}

// MarshalTree serializes a TreeObj. Entries are sorted by Name for
// deterministic output. Each entry is one line, name last so names may
// contain spaces:
//
//	file <blob> <name>
//	dir <subtree> <meta> <name>
func MarshalTree(tr *TreeObj) []byte {
	entries := make([]TreeEntry, len(tr.Entries))
	copy(entries, tr.Entries)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	var buf bytes.Buffer
	for _, e := range entries {
		if e.IsDir {
			fmt.Fprintf(&buf, "dir %s %s %s\n", e.Subtree, e.Meta, e.Name)
		} else {
			fmt.Fprintf(&buf, "file %s %s\n", e.Blob, e.Name)
		}
	}
	return buf.Bytes()
}

// UnmarshalTree parses a TreeObj from its serialized form.
func UnmarshalTree(data []byte) (*TreeObj, error) {
	tr := &TreeObj{}
	if len(data) == 0 {
		return tr, nil
	}
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		kind, rest, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("unmarshal tree: malformed entry %q", line)
		}
		switch kind {
		case "file":
			blob, name, ok := strings.Cut(rest, " ")
			if !ok || name == "" {
				return nil, fmt.Errorf("unmarshal tree: malformed file entry %q", line)
			}
			if !ValidChecksum(Checksum(blob)) {
				return nil, fmt.Errorf("unmarshal tree: invalid blob checksum in %q", line)
			}
			tr.Entries = append(tr.Entries, TreeEntry{Name: name, Blob: Checksum(blob)})
		case "dir":
			fields := strings.SplitN(rest, " ", 3)
			if len(fields) != 3 || fields[2] == "" {
				return nil, fmt.Errorf("unmarshal tree: malformed dir entry %q", line)
			}
			sub, meta := Checksum(fields[0]), Checksum(fields[1])
			if !ValidChecksum(sub) || !ValidChecksum(meta) {
				return nil, fmt.Errorf("unmarshal tree: invalid checksum in %q", line)
			}
			tr.Entries = append(tr.Entries, TreeEntry{
				Name:    fields[2],
				IsDir:   true,
				Subtree: sub,
				Meta:    meta,
			})
		default:
			return nil, fmt.Errorf("unmarshal tree: unknown entry kind %q", kind)
		}
	}
	return tr, nil
}
