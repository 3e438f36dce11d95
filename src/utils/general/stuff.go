package general

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

const uuid5Namespace = "3b1f7f4e-9a52-4c7e-8d0b-6a2e51c4d9f1"

// GetCurrentDir returns the parent of the caller's directory.
func GetCurrentDir() string {
	_, filename, _, _ := runtime.Caller(1)
	return filepath.Dir(filepath.Dir(filename))
}

func GenerateUUID5StringFromByteArray(p []byte) string {
	namespaceUUID, err := uuid.Parse(uuid5Namespace)
	if err != nil {
		slog.Warn(fmt.Sprintf("Error parsing namespace UUID: %+v", err))
	}
	return uuid.NewSHA1(namespaceUUID, p).String()
}

// NewRunId is stable for a seeded run and unique otherwise.
func NewRunId(seed int64, startedAt time.Time) string {
	if seed != 0 {
		return GenerateUUID5StringFromByteArray([]byte(fmt.Sprintf("seed:%d", seed)))
	}
	return GenerateUUID5StringFromByteArray([]byte(startedAt.Format(time.RFC3339Nano)))
}

// CopyFileToBucket uploads a local file to gs://bucketName/objectPath.
func CopyFileToBucket(ctx context.Context, localPath, bucketName, objectPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	writer := client.Bucket(bucketName).Object(objectPath).NewWriter(ctx)
	if _, err := io.Copy(writer, f); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

func GetSystemUsage() map[string]string {
	report := make(map[string]string)
	report["num_cpu"] = fmt.Sprintf("%d", runtime.NumCPU())
	report["num_goroutine"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	memoryUsage := runtime.MemStats{}
	runtime.ReadMemStats(&memoryUsage)
	report["memory_usage"] = fmt.Sprintf("%d", memoryUsage.Alloc)
	report["memory_total"] = fmt.Sprintf("%d", memoryUsage.TotalAlloc)
	report["memory_heap_inuse"] = fmt.Sprintf("%d", memoryUsage.HeapInuse)

	return report
}
