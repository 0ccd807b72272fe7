package cask

// Checksum is a 64-character hex-encoded SHA-256 digest identifying an
// object's content.
type Checksum string

// ObjectKind identifies the kind of object stored.
type ObjectKind string

const (
	KindCommit  ObjectKind = "commit"
	KindDirTree ObjectKind = "dirtree"
	KindDirMeta ObjectKind = "dirmeta"
	KindFile    ObjectKind = "file"
)

// ObjectID is the full identity of a stored object. Two objects with the
// same checksum but different kinds are distinct.
type ObjectID struct {
	Checksum Checksum
	Kind     ObjectKind
}

// Mode selects the on-disk naming and encoding convention for file blobs.
type Mode string

const (
	// ModeBare stores file blobs raw under the .file extension.
	ModeBare Mode = "bare"
	// ModeArchive stores file blobs zstd-compressed under .filez.
	ModeArchive Mode = "archive"
)

// CommitObj is one versioned snapshot: a root dirtree/dirmeta pair, an
// optional parent commit, and a subject line.
type CommitObj struct {
	RootTree Checksum
	RootMeta Checksum
	Parent   Checksum // empty for the initial commit
	Time     int64
	Subject  string
}

// TreeEntry is one entry in a dirtree. File entries reference a blob;
// directory entries reference a subtree and its dirmeta.
type TreeEntry struct {
	Name    string
	IsDir   bool
	Blob    Checksum // file entries only
	Subtree Checksum // dir entries only
	Meta    Checksum // dir entries only
}

// TreeObj holds a dirtree's entries, sorted by Name.
type TreeObj struct {
	Entries []TreeEntry
}

// Ref is a mutable named binding from a refspec to a commit checksum.
// Remote is empty for local (heads/) refs.
type Ref struct {
	Remote string
	Branch string
	Target Checksum
}

// Refspec renders the ref in "remote:branch" form, or bare "branch" for
// local refs.
func (r Ref) Refspec() string {
	if r.Remote == "" {
		return r.Branch
	}
	return r.Remote + ":" + r.Branch
}
