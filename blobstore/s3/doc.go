// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	client := s3.NewFromConfig(awsCfg)
//	store := s3.NewStore(client, "my-bucket", "vectors/")
//
//	db, err := vecgo.Open(vecgo.Config{
//	    Dimension:   128,
//	    StoragePath: "index.zvdb",
//	}, vecgo.WithBlobStore(store))
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads for large segments, via NewStoreWithConfig
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
