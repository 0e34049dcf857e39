package sumfile_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vnykmshr/sumfile/pkg/sumfile"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile(%q) error = %v", path, err)
	}
}

func appendFile(t *testing.T, path string, data []byte) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("OpenFile(%q) error = %v", path, err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		t.Fatalf("Write(%q) error = %v", path, err)
	}
}

func TestBasicFlow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.idx")
	writeFile(t, path, []byte("hello, checksummed world"))

	tbl, err := sumfile.Open(path, &sumfile.Options{ChunkSizeLog: 4})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer tbl.Close()

	// No sidecar yet, so nothing is covered.
	if err := tbl.CheckRange(0, 5); err == nil {
		t.Error("CheckRange() before Update = nil, want error")
	}

	if err := tbl.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := tbl.CheckRange(0, 24); err != nil {
		t.Errorf("CheckRange() error = %v, want nil", err)
	}

	if tbl.ChunkSizeLog() != 4 {
		t.Errorf("ChunkSizeLog() = %d, want 4", tbl.ChunkSizeLog())
	}
	if tbl.ChunkSize() != 16 {
		t.Errorf("ChunkSize() = %d, want 16", tbl.ChunkSize())
	}
	if tbl.CoveredLength() != 24 {
		t.Errorf("CoveredLength() = %d, want 24", tbl.CoveredLength())
	}
	if tbl.ChecksumCount() != 2 {
		t.Errorf("ChecksumCount() = %d, want 2", tbl.ChecksumCount())
	}
	if tbl.Path() != path {
		t.Errorf("Path() = %q, want %q", tbl.Path(), path)
	}
	if want := path + ".sum"; tbl.SumPath() != want {
		t.Errorf("SumPath() = %q, want %q", tbl.SumPath(), want)
	}
	if _, err := os.Stat(tbl.SumPath()); err != nil {
		t.Errorf("sidecar not written: %v", err)
	}
}

func TestAppendAndUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.idx")
	writeFile(t, path, []byte("0123456789"))

	tbl, err := sumfile.Open(path, &sumfile.Options{ChunkSizeLog: 2})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer tbl.Close()

	if err := tbl.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	appendFile(t, path, []byte("0123456789"))
	if err := tbl.CheckRange(10, 10); err == nil {
		t.Error("CheckRange() for new bytes before Update = nil, want error")
	}
	if err := tbl.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := tbl.CheckRange(0, 20); err != nil {
		t.Errorf("CheckRange() error = %v, want nil", err)
	}
	if tbl.FileLength() != 20 {
		t.Errorf("FileLength() = %d, want 20", tbl.FileLength())
	}
}

func TestUpdateChunkSizeLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.idx")
	writeFile(t, path, []byte("0123456789"))

	tbl, err := sumfile.Open(path, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer tbl.Close()

	if err := tbl.UpdateChunkSizeLog(1); err != nil {
		t.Fatalf("UpdateChunkSizeLog(1) error = %v", err)
	}
	if tbl.ChecksumCount() != 5 {
		t.Errorf("ChecksumCount() = %d, want 5", tbl.ChecksumCount())
	}

	if err := tbl.UpdateChunkSizeLog(3); err != nil {
		t.Fatalf("UpdateChunkSizeLog(3) error = %v", err)
	}
	if tbl.ChecksumCount() != 2 {
		t.Errorf("ChecksumCount() = %d, want 2", tbl.ChecksumCount())
	}

	err = tbl.UpdateChunkSizeLog(sumfile.MaxChunkSizeLog + 1)
	if !errors.Is(err, sumfile.ErrChunkSizeTooLarge) {
		t.Errorf("UpdateChunkSizeLog() error = %v, want ErrChunkSizeTooLarge", err)
	}
}

func TestChecksumErrorDetails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.idx")
	writeFile(t, path, []byte("0123456789"))

	tbl, err := sumfile.Open(path, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer tbl.Close()

	checkErr := tbl.CheckRange(3, 4)
	var cerr *sumfile.ChecksumError
	if !errors.As(checkErr, &cerr) {
		t.Fatalf("error = %T, want *ChecksumError", checkErr)
	}
	if cerr.Start != 3 || cerr.End != 7 {
		t.Errorf("span = %d..%d, want 3..7", cerr.Start, cerr.End)
	}
}

func TestClearAndRebuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.idx")
	writeFile(t, path, []byte("0123456789"))

	tbl, err := sumfile.Open(path, &sumfile.Options{ChunkSizeLog: 2})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer tbl.Close()

	if err := tbl.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	tbl.Clear()
	if tbl.CoveredLength() != 0 {
		t.Errorf("CoveredLength() = %d after Clear, want 0", tbl.CoveredLength())
	}
	if err := tbl.CheckRange(0, 1); err == nil {
		t.Error("CheckRange() after Clear = nil, want error")
	}
	if err := tbl.Update(); err != nil {
		t.Fatalf("Update() after Clear error = %v", err)
	}
	if err := tbl.CheckRange(0, 10); err != nil {
		t.Errorf("CheckRange() error = %v, want nil", err)
	}
}

func TestCloneConcurrentReaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.idx")
	writeFile(t, path, bytes.Repeat([]byte("0123456789"), 100))

	tbl, err := sumfile.Open(path, &sumfile.Options{ChunkSizeLog: 6})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer tbl.Close()
	if err := tbl.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		clone, err := tbl.Clone()
		if err != nil {
			t.Fatalf("Clone() error = %v", err)
		}
		go func(c *sumfile.Table) {
			defer c.Close()
			done <- c.CheckRange(0, 1000)
		}(clone)
	}
	for i := 0; i < 4; i++ {
		if err := <-done; err != nil {
			t.Errorf("clone CheckRange() error = %v", err)
		}
	}
}

func TestCloseSemantics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.idx")
	writeFile(t, path, []byte("0123456789"))

	tbl, err := sumfile.Open(path, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := tbl.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := tbl.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := tbl.Update(); !errors.Is(err, sumfile.ErrClosed) {
		t.Errorf("Update() after Close error = %v, want ErrClosed", err)
	}
}

func TestTruncationDetected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.idx")
	writeFile(t, path, []byte("0123456789"))

	tbl, err := sumfile.Open(path, &sumfile.Options{ChunkSizeLog: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer tbl.Close()
	if err := tbl.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if err := os.Truncate(path, 5); err != nil {
		t.Fatalf("Truncate() error = %v", err)
	}
	if err := tbl.Update(); !errors.Is(err, sumfile.ErrTruncated) {
		t.Errorf("Update() error = %v, want ErrTruncated", err)
	}
}

func TestLoggingAndMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.idx")
	writeFile(t, path, []byte("0123456789"))

	var logBuf bytes.Buffer
	collector := sumfile.NewMetricsCollector("data.idx")
	tbl, err := sumfile.Open(path, &sumfile.Options{
		ChunkSizeLog:     2,
		Logger:           sumfile.NewZerologLogger(&logBuf, sumfile.LogDebug),
		MetricsCollector: collector,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer tbl.Close()

	if err := tbl.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := tbl.CheckRange(0, 10); err != nil {
		t.Fatalf("CheckRange() error = %v", err)
	}

	if logBuf.Len() == 0 {
		t.Error("no log output at debug level")
	}

	snap := sumfile.GetMetricsSnapshot(collector)
	if snap == nil {
		t.Fatal("GetMetricsSnapshot() = nil")
	}
	if snap.Updates != 1 {
		t.Errorf("Updates = %d, want 1", snap.Updates)
	}
	if snap.RangeChecks == 0 {
		t.Error("RangeChecks = 0, want > 0")
	}
	if snap.CoveredLength != 10 {
		t.Errorf("CoveredLength = %d, want 10", snap.CoveredLength)
	}

	// A nil-capable path: snapshotting a recorder that is not a Collector.
	if got := sumfile.GetMetricsSnapshot(nil); got != nil {
		t.Errorf("GetMetricsSnapshot(nil) = %v, want nil", got)
	}
}

func TestStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.idx")
	writeFile(t, path, []byte("0123456789"))

	// Without an explicit collector, Stats reads the internal one.
	tbl, err := sumfile.Open(path, &sumfile.Options{ChunkSizeLog: 2})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer tbl.Close()

	if err := tbl.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := tbl.CheckRange(0, 10); err != nil {
		t.Fatalf("CheckRange() error = %v", err)
	}

	snap := tbl.Stats()
	if snap == nil {
		t.Fatal("Stats() = nil")
	}
	if snap.Updates != 1 {
		t.Errorf("Updates = %d, want 1", snap.Updates)
	}
	if snap.ChunksHashed != 3 {
		t.Errorf("ChunksHashed = %d, want 3", snap.ChunksHashed)
	}

	// Clones share the collector, so their activity aggregates.
	clone, err := tbl.Clone()
	if err != nil {
		t.Fatalf("Clone() error = %v", err)
	}
	defer clone.Close()
	if err := clone.CheckRange(0, 10); err != nil {
		t.Fatalf("clone CheckRange() error = %v", err)
	}
	if got := tbl.Stats().RangeChecks; got != 2 {
		t.Errorf("RangeChecks = %d, want 2", got)
	}
}

func TestBadSidecar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.idx")
	writeFile(t, path, []byte("0123456789"))
	writeFile(t, path+".sum", []byte{1, 2, 3})

	_, err := sumfile.Open(path, nil)
	if !errors.Is(err, sumfile.ErrBadSidecar) {
		t.Errorf("Open() error = %v, want ErrBadSidecar", err)
	}
}

func TestSumPathHelper(t *testing.T) {
	if got := sumfile.SumPath("data.idx"); got != "data.idx.sum" {
		t.Errorf("SumPath() = %q, want %q", got, "data.idx.sum")
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := sumfile.DefaultOptions()
	if opts.ChunkSizeLog != sumfile.DefaultChunkSizeLog {
		t.Errorf("ChunkSizeLog = %d, want %d", opts.ChunkSizeLog, sumfile.DefaultChunkSizeLog)
	}
	if opts.Fsync {
		t.Error("Fsync = true, want false")
	}
}
