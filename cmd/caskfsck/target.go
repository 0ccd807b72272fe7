package main

import (
	"fmt"
	"path/filepath"
)

// target is the store selected for a run and where its coordination lock
// lives. A store given directly locks at its own root; a store resolved
// from a managed sysroot locks at the sysroot, since the sysroot owns it.
type target struct {
	storePath string
	lockPath  string
}

// resolveTarget maps the mutually exclusive --store / --sysroot flags to a
// target.
func resolveTarget(storeFlag, sysrootFlag string) (target, error) {
	switch {
	case storeFlag != "" && sysrootFlag != "":
		return target{}, fmt.Errorf("--store and --sysroot are mutually exclusive")
	case storeFlag != "":
		return target{
			storePath: storeFlag,
			lockPath:  filepath.Join(storeFlag, "lock"),
		}, nil
	case sysrootFlag != "":
		return target{
			storePath: filepath.Join(sysrootFlag, "repo"),
			lockPath:  filepath.Join(sysrootFlag, "lock"),
		}, nil
	default:
		return target{}, fmt.Errorf("one of --store or --sysroot is required")
	}
}
