package objstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/matzehuels/folio/pkg/cache"
)

func TestKeyFromRef(t *testing.T) {
	tests := []struct {
		base, ref string
		want      string
		ok        bool
	}{
		{"https://pub.r2.dev", "https://pub.r2.dev/services/rec1/manuscript.v1.json", "services/rec1/manuscript.v1.json", true},
		{"https://pub.r2.dev/", "https://pub.r2.dev/a.json", "a.json", true},
		{"https://pub.r2.dev", "https://other.example/a.json", "", false},
		{"", "services/rec1/interior.pdf", "services/rec1/interior.pdf", true},
		{"", "/services/x", "services/x", true},
		{"https://pub.r2.dev", "https://pub.r2.dev/", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		got, ok := KeyFromRef(tt.base, tt.ref)
		if got != tt.want || ok != tt.ok {
			t.Errorf("KeyFromRef(%q, %q) = %q, %v; want %q, %v", tt.base, tt.ref, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPublicURL(t *testing.T) {
	if got := PublicURL("https://pub.r2.dev/", "services/a/interior.pdf"); got != "https://pub.r2.dev/services/a/interior.pdf" {
		t.Errorf("PublicURL() = %q", got)
	}
	if got := PublicURL("", "k"); got != "" {
		t.Errorf("PublicURL(empty) = %q", got)
	}
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocal(t.TempDir(), "https://cdn.example", cache.SHA256)
	if err != nil {
		t.Fatal(err)
	}

	obj, err := s.Put(ctx, "services/rec1/interior.pdf", []byte("hello"), ContentTypePDF)
	if err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if obj.URL != "https://cdn.example/services/rec1/interior.pdf" {
		t.Errorf("URL = %q", obj.URL)
	}
	if obj.Hash != "sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824" {
		t.Errorf("Hash = %q", obj.Hash)
	}
	if obj.Size != 5 {
		t.Errorf("Size = %d", obj.Size)
	}

	data, err := s.Get(ctx, "services/rec1/interior.pdf")
	if err != nil || string(data) != "hello" {
		t.Errorf("Get() = %q, %v", data, err)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
	if _, err := s.Put(ctx, "../escape", nil, ""); err == nil {
		t.Error("Put(../escape) should fail")
	}
}

func TestLocalStoreFileURL(t *testing.T) {
	s, err := NewLocal(t.TempDir(), "", "")
	if err != nil {
		t.Fatal(err)
	}
	u, err := s.URL(context.Background(), "a/b.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(u, "file://") || !strings.HasSuffix(u, "/a/b.pdf") {
		t.Errorf("URL() = %q", u)
	}
}

func TestPutJSONIsCanonical(t *testing.T) {
	ctx := context.Background()
	s, _ := NewLocal(t.TempDir(), "", cache.BLAKE3)

	a, err := PutJSON(ctx, s, "a.json", map[string]any{"b": 1, "a": []int{1, 2}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := PutJSON(ctx, s, "b.json", map[string]any{"a": []int{1, 2}, "b": 1})
	if err != nil {
		t.Fatal(err)
	}
	if a.Hash != b.Hash {
		t.Errorf("equal values hashed differently: %s vs %s", a.Hash, b.Hash)
	}
	if !strings.HasPrefix(a.Hash, "blake3:") {
		t.Errorf("Hash = %q, want blake3 prefix", a.Hash)
	}
	data, _ := s.Get(ctx, "a.json")
	if string(data) != `{"a":[1,2],"b":1}` {
		t.Errorf("stored = %s", data)
	}
}

func TestS3URL(t *testing.T) {
	ctx := context.Background()

	pub, err := NewR2("acct", "key", "secret", "bucket", "https://pub-x.r2.dev")
	if err != nil {
		t.Fatal(err)
	}
	u, err := pub.URL(ctx, "services/rec1/interior.pdf")
	if err != nil || u != "https://pub-x.r2.dev/services/rec1/interior.pdf" {
		t.Errorf("public URL() = %q, %v", u, err)
	}

	private, err := NewS3(S3Options{
		Endpoint:        R2Endpoint("acct"),
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "bucket",
		Region:          "auto",
	})
	if err != nil {
		t.Fatal(err)
	}
	u, err = private.URL(ctx, "services/rec1/interior.pdf")
	if err != nil {
		t.Fatalf("presigned URL() error: %v", err)
	}
	if !strings.HasPrefix(u, "https://") || !strings.Contains(u, "services/rec1/interior.pdf?") {
		t.Errorf("presigned URL() = %q", u)
	}
	if !strings.Contains(u, "X-Amz-Signature=") {
		t.Errorf("presigned URL() missing signature: %q", u)
	}
}

func TestNewS3RequiresBucket(t *testing.T) {
	if _, err := NewS3(S3Options{Endpoint: "localhost:9000"}); err == nil {
		t.Error("NewS3() without bucket should fail")
	}
	if _, err := NewR2("", "k", "s", "b", ""); err == nil {
		t.Error("NewR2() without account should fail")
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"local", Options{Backend: BackendLocal, Dir: t.TempDir()}, false},
		{"local without dir", Options{Backend: BackendLocal}, true},
		{"r2 default backend", Options{AccountID: "acct", Bucket: "books"}, false},
		{"r2 without account", Options{Backend: BackendR2, Bucket: "books"}, true},
		{"s3", Options{Backend: BackendS3, Endpoint: "localhost:9000", Bucket: "books", Insecure: true}, false},
		{"s3 without endpoint", Options{Backend: BackendS3, Bucket: "books"}, true},
		{"bad hash", Options{Backend: BackendLocal, Dir: t.TempDir(), HashAlgorithm: "md5"}, true},
		{"unknown", Options{Backend: "ftp"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("Open() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
