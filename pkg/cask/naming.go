package cask

import "strings"

// Object filename extensions. Commits, dirtrees, and dirmetas each have one
// fixed extension; file blobs use .file or .filez depending on the store
// mode.
const (
	extCommit   = ".commit"
	extDirTree  = ".dirtree"
	extDirMeta  = ".dirmeta"
	extFile     = ".file"
	extFileZ    = ".filez"
	fanoutChars = 2
)

// objectExt returns the filename extension for kind under mode.
func objectExt(kind ObjectKind, mode Mode) string {
	switch kind {
	case KindCommit:
		return extCommit
	case KindDirTree:
		return extDirTree
	case KindDirMeta:
		return extDirMeta
	case KindFile:
		if mode == ModeArchive {
			return extFileZ
		}
		return extFile
	}
	return ""
}

// ObjectRelPath returns the object's path relative to the store root under
// the given mode, e.g. "objects/ab/cdef...commit". Remote stores are served
// statically, so fetch clients use this with ModeArchive to form URLs.
func ObjectRelPath(id ObjectID, mode Mode) string {
	c := string(id.Checksum)
	return "objects/" + c[:fanoutChars] + "/" + c[fanoutChars:] + objectExt(id.Kind, mode)
}

// ParseObjectName maps an on-disk object filename (without its fan-out
// directory) back to an ObjectID under the given mode. The second return is
// false for names that are not objects of this mode, e.g. temp files or the
// other mode's blob extension.
func ParseObjectName(fanout, name string, mode Mode) (ObjectID, bool) {
	dot := strings.IndexByte(name, '.')
	if dot < 0 {
		return ObjectID{}, false
	}
	rest, ext := name[:dot], name[dot:]

	var kind ObjectKind
	switch ext {
	case extCommit:
		kind = KindCommit
	case extDirTree:
		kind = KindDirTree
	case extDirMeta:
		kind = KindDirMeta
	case extFile:
		if mode != ModeBare {
			return ObjectID{}, false
		}
		kind = KindFile
	case extFileZ:
		if mode != ModeArchive {
			return ObjectID{}, false
		}
		kind = KindFile
	default:
		return ObjectID{}, false
	}

	csum := Checksum(fanout + rest)
	if !ValidChecksum(csum) {
		return ObjectID{}, false
	}
	return ObjectID{Checksum: csum, Kind: kind}, true
}
