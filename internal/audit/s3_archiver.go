package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
)

const (
	archiveContentType = "application/x-ndjson"
	archiveDateLayout  = "2006/01/02"
	archiveExtension   = ".jsonl"

	errEncodeEventFmt = "failed to encode audit event %s: %w"
	errPutArchiveFmt  = "failed to put audit archive %s: %w"
)

// S3Archiver stores each batch as one JSON-lines object
type S3Archiver struct {
	svc    s3iface.S3API
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Archiver creates an archiver writing under prefix in bucket
func NewS3Archiver(svc s3iface.S3API, bucket, prefix string) *S3Archiver {
	return &S3Archiver{svc: svc, bucket: bucket, prefix: prefix, now: time.Now}
}

func (a *S3Archiver) Write(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf(errEncodeEventFmt, e.ID, err)
		}
	}

	key := a.objectKey()
	_, err := a.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(archiveContentType),
	})
	if err != nil {
		return fmt.Errorf(errPutArchiveFmt, key, err)
	}
	return nil
}

func (a *S3Archiver) objectKey() string {
	day := a.now().UTC().Format(archiveDateLayout)
	return path.Join(a.prefix, day, uuid.NewString()+archiveExtension)
}
