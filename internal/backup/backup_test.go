package backup

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu       sync.Mutex
	objects  map[string][]byte
	modified map[string]time.Time
	putErr   error
	getErr   error
	delErr   error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{
		objects:  make(map[string][]byte),
		modified: make(map[string]time.Time),
	}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	m.modified[*input.Key] = time.Now().UTC()
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &s3NotFound{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader(string(data))),
	}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if m.delErr != nil {
		return nil, m.delErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	delete(m.modified, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3Client) ListObjectsV2(_ context.Context, input *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := &s3.ListObjectsV2Output{}
	for key := range m.objects {
		if input.Prefix != nil && !strings.HasPrefix(key, *input.Prefix) {
			continue
		}
		k := key
		lm := m.modified[key]
		out.Contents = append(out.Contents, types.Object{Key: &k, LastModified: &lm})
	}
	truncated := false
	out.IsTruncated = &truncated
	return out, nil
}

type s3NotFound struct{}

func (e *s3NotFound) Error() string { return "NoSuchKey" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validConfig() Config {
	return Config{
		S3:         S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
		Passphrase: "hunter2",
	}
}

func TestManagerStateLifecycle(t *testing.T) {
	// Without S3 config -> disabled
	m := NewManager(Config{}, nil, nil, testLogger())
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m.Status().State, StateDisabled)
	}
	if m.Enabled() {
		t.Error("expected disabled manager")
	}

	// With S3 config and passphrase -> idle
	m2 := NewManager(validConfig(), nil, nil, testLogger())
	if m2.Status().State != StateIdle {
		t.Errorf("state = %q, want %q", m2.Status().State, StateIdle)
	}
	if !m2.Enabled() {
		t.Error("expected enabled manager")
	}

	// Missing passphrase keeps the manager disabled
	cfg := validConfig()
	cfg.Passphrase = ""
	m3 := NewManager(cfg, nil, nil, testLogger())
	if m3.Status().State != StateDisabled {
		t.Errorf("state without passphrase = %q, want %q", m3.Status().State, StateDisabled)
	}
}

func TestManagerStatusCallback(t *testing.T) {
	var received []Status
	var mu sync.Mutex
	cb := func(s Status) {
		mu.Lock()
		received = append(received, s)
		mu.Unlock()
	}

	m := NewManager(validConfig(), nil, cb, testLogger())

	m.setStatus(Status{State: StateRunning, InProgress: true})
	m.setStatus(Status{State: StateIdle})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("received %d callbacks, want 2", len(received))
	}
	if received[0].State != StateRunning {
		t.Errorf("first callback state = %q, want %q", received[0].State, StateRunning)
	}
	if received[1].State != StateIdle {
		t.Errorf("second callback state = %q, want %q", received[1].State, StateIdle)
	}
}

func TestManagerStopSafety(t *testing.T) {
	m := NewManager(validConfig(), nil, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	m.Stop()

	// Double stop should not panic
	m.Stop()
}

func TestManagerDisabledNoStart(t *testing.T) {
	m := NewManager(Config{}, nil, nil, testLogger())

	ctx := context.Background()
	m.Start(ctx) // should be a no-op for disabled state

	// Stop should not block
	m.Stop()
}

func TestRunNowRequiresConfig(t *testing.T) {
	m := NewManager(Config{}, nil, nil, testLogger())
	if _, err := m.RunNow(context.Background()); err == nil {
		t.Fatal("expected error from unconfigured manager")
	}
}

func TestCleanupDeletesOnlyExpiredObjects(t *testing.T) {
	mock := newMockS3()
	mock.objects["messmate/backup-old.db.enc"] = []byte("old")
	mock.modified["messmate/backup-old.db.enc"] = time.Now().UTC().AddDate(0, 0, -60)
	mock.objects["messmate/backup-new.db.enc"] = []byte("new")
	mock.modified["messmate/backup-new.db.enc"] = time.Now().UTC()

	cfg := validConfig()
	cfg.RetentionDays = 30
	m := NewManager(cfg, nil, nil, testLogger())
	m.client = mock

	if err := m.Cleanup(context.Background()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	mock.mu.Lock()
	defer mock.mu.Unlock()
	if _, ok := mock.objects["messmate/backup-old.db.enc"]; ok {
		t.Error("expired backup should have been deleted")
	}
	if _, ok := mock.objects["messmate/backup-new.db.enc"]; !ok {
		t.Error("recent backup should have been kept")
	}
}
