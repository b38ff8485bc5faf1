// Package s3 reads containers from, and exports attachments to, Amazon S3.
//
//	store, err := s3.New(ctx, "mail-archive", func(o *s3.Options) {
//	    o.Prefix = "exports/"
//	    o.Region = "eu-central-1"
//	})
//	blob, err := store.Open(ctx, "2019/alice.pst")
//	f, err := pstgo.Open(ctx, pstgo.Remote(blob))
//
// Reads are ranged GETs; wrap the blob in a blobstore.CachingBlob (pstgo does
// this for Remote sources) so that page-sized reads are coalesced. Create
// streams through the multipart uploader, Put is a single PutObject.
package s3
