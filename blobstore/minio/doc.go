// Package minio reads containers from, and exports attachments to, MinIO and
// other S3-compatible services through the native minio-go client.
//
//	store, err := minio.Connect("localhost:9000", "minioadmin", "minioadmin", false, "mail", "archive/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	blob, err := store.Open(ctx, "bob.ost")
//	f, err := pstgo.Open(ctx, pstgo.Remote(blob))
//
// Reads are ranged GETs. Create streams the object with an unknown length,
// Put uploads it in one request.
package minio
