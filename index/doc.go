// Package index provides the capability abstraction the rest of the
// system talks to: add, search, delete, update, serialize, deserialize.
// HNSW is the sole concrete variant. A variant tag, the dimension and the
// distance metric are written into the file header and override the
// caller's Config on load; M, ef_construction, ef_search and the seed are
// not persisted and always come from the Config passed to Load or
// Deserialize.
package index
