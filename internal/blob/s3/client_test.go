package s3blob

import (
	"context"
	"testing"
)

func TestNormaliseEndpoint(t *testing.T) {
	tests := map[string]string{
		"minio.local:9000":        "https://minio.local:9000",
		"http://minio.local:9000": "http://minio.local:9000",
		"https://s3.example.com":  "https://s3.example.com",
		"e2.idrivee2.com":         "https://e2.idrivee2.com",
	}
	for in, want := range tests {
		if got := normaliseEndpoint(in); got != want {
			t.Errorf("normaliseEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewRequiresBucketAndRegion(t *testing.T) {
	if _, err := New(context.Background(), ClientConfig{Region: "us-east-1"}); err == nil {
		t.Fatal("expected error without bucket")
	}
	if _, err := New(context.Background(), ClientConfig{Bucket: "reports"}); err == nil {
		t.Fatal("expected error without region")
	}

	c, err := New(context.Background(), ClientConfig{
		Endpoint:       "minio.local:9000",
		Region:         "us-east-1",
		Bucket:         "reports",
		AccessKey:      "key",
		SecretKey:      "secret",
		ForcePathStyle: true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Bucket() != "reports" {
		t.Fatalf("Bucket = %q", c.Bucket())
	}
}
