package cache

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/skyline93/fsmeta/internal/fsmeta"
)

func testSnapshot(table string) *Snapshot {
	return &Snapshot{
		Table: table,
		Time:  time.Now().Truncate(time.Second),
		Hosts: []fsmeta.Host{
			{Address: fsmeta.HostAddress{Host: "10.0.0.1", Port: 9866}, DisplayName: "node-1"},
			{Address: fsmeta.HostAddress{Host: "10.0.0.2", Port: 9866}, DisplayName: "node-2"},
		},
		Dirs: map[string][]*fsmeta.FileDescriptor{
			"/warehouse/p1": {
				{
					FileName: "a.dat", FileLength: 4096, ModificationTime: 100,
					Blocks: []*fsmeta.FileBlock{{
						Offset: 0, Length: 4096,
						Replicas: []fsmeta.BlockReplica{
							{HostIdx: 0, IsCached: true, DiskID: 2},
							{HostIdx: 1, DiskID: fsmeta.UnknownDiskID},
						},
					}},
				},
			},
		},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := testSnapshot("db.tbl")
	id, err := c.SaveSnapshot(want)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(id) != 64 {
		t.Fatalf("unexpected content id %q", id)
	}

	got, err := c.LoadSnapshot("db.tbl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Table != want.Table || !reflect.DeepEqual(got.Hosts, want.Hosts) {
		t.Fatalf("snapshot differs after round trip: %+v", got)
	}
	if !reflect.DeepEqual(got.Dirs, want.Dirs) {
		t.Fatalf("descriptors differ after round trip: %+v", got.Dirs)
	}
}

func TestSnapshotRoundTripColdCache(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := testSnapshot("db.tbl")
	if _, err := c.SaveSnapshot(want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Fresh cache instance: forces the disk path with checksum check.
	c2, err := New(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := c2.LoadSnapshot("db.tbl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got.Dirs, want.Dirs) {
		t.Fatalf("descriptors differ after disk round trip: %+v", got.Dirs)
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.LoadSnapshot("nope"); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestLatestSnapshotFileTieBreak(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dir := c.tableDir("db.tbl")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"bbbb", "aaaa", "cccc"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0600); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// Same mtime on all three, within any filesystem's granularity.
	when := time.Now().Add(-time.Minute)
	for _, name := range []string{"bbbb", "aaaa", "cccc"} {
		if err := os.Chtimes(filepath.Join(dir, name), when, when); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	for i := 0; i < 3; i++ {
		got, err := c.latestSnapshotFile("db.tbl")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if filepath.Base(got) != "cccc" {
			t.Fatalf("run %d picked %v, want the name tie-break winner", i, got)
		}
	}
}

func TestSnapshotPrior(t *testing.T) {
	sn := testSnapshot("db.tbl")
	prior := sn.Prior()
	fd := prior["/warehouse/p1"]["a.dat"]
	if fd == nil || fd.FileLength != 4096 {
		t.Fatalf("prior map wrong: %+v", prior)
	}

	var none *Snapshot
	if none.Prior() != nil {
		t.Fatal("nil snapshot should yield nil prior state")
	}
}
