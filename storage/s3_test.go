package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"jobfeed/config"
)

func TestSnapshotKey(t *testing.T) {
	at := time.Date(2026, 5, 4, 14, 30, 5, 0, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, "snapshots/20260504T123005Z.ndjson", SnapshotKey(at))
}

func TestObjectURL(t *testing.T) {
	aws := config.S3Config{Bucket: "feeds", Region: "eu-central-1"}
	assert.Equal(t, "https://feeds.s3.eu-central-1.amazonaws.com/snapshots/x.ndjson", ObjectURL(aws, "snapshots/x.ndjson"))

	minio := config.S3Config{Bucket: "feeds", Endpoint: "http://localhost:9000/"}
	assert.Equal(t, "http://localhost:9000/feeds/snapshots/x.ndjson", ObjectURL(minio, "snapshots/x.ndjson"))
}
