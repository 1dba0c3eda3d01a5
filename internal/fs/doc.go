// Package fs abstracts the backing files of shared vectors so that tests can
// inject failures into allocation and snapshot paths.
//
//   - [File]: an open backing file; *os.File satisfies it.
//   - [FileSystem]: open, remove, stat and directory operations.
//   - [LocalFS]: the os package.
//   - [FaultyFS]: fault injection per file name pattern.
//
// Usage:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".vec", fs.Fault{FailOnTruncate: true})
//	// pass ffs to shmvec.WithFileSystem
//
// There is no context.Context here: every operation is a local syscall.
package fs
