// Package library persists saved stem sessions on the filesystem.
//
// Each session is a directory under the library root named by an opaque
// 32-hex identifier, holding one wav file per stem, a meta.json record, and a
// prebuilt bundle.zip. Sessions are append-only: there is no update or delete
// operation, and listing order is ascending by creation timestamp.
package library
