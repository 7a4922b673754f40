package disk_test

import (
	"os"
	"path/filepath"
	"testing"

	"bptreedb/pkg/entry"
	"bptreedb/pkg/node"
	"bptreedb/pkg/pageid"
	"bptreedb/pkg/pagestore/disk"
)

func tempSnapshotPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "snapshot.db")
}

func TestNewWithoutExistingFileSeedsEmptyRoot(t *testing.T) {
	s, err := disk.New(tempSnapshotPath(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l, ok := s.Get(pageid.RootPageID).(*node.LeafNode)
	if !ok {
		t.Fatalf("root is a %T, want *node.LeafNode", s.Get(pageid.RootPageID))
	}
	if !l.IsRoot() || len(l.Cells) != 0 {
		t.Errorf("fresh root should be an empty, root-marked leaf; got %+v", l)
	}
}

func TestSaveThenLoadRoundTripsPages(t *testing.T) {
	path := tempSnapshotPath(t)
	s, err := disk.New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	leafID := s.Alloc()
	leaf := node.NewLeaf()
	leaf.Cells = []entry.Entry{entry.New(1, []byte("one")), entry.New(2, []byte("two"))}
	s.Put(leafID, leaf)

	internalID := s.Alloc()
	internal := node.NewInternal()
	internal.Cells = []node.InternalCell{{Child: leafID, Separator: 2}}
	internal.RightChild = leafID
	s.Put(internalID, internal)

	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := disk.New(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}

	gotLeaf, ok := reopened.Get(leafID).(*node.LeafNode)
	if !ok {
		t.Fatalf("got %T, want *node.LeafNode", reopened.Get(leafID))
	}
	if len(gotLeaf.Cells) != 2 || gotLeaf.Cells[0].Key != 1 || string(gotLeaf.Cells[1].Value) != "two" {
		t.Errorf("leaf did not round-trip: %+v", gotLeaf)
	}

	gotInternal, ok := reopened.Get(internalID).(*node.InternalNode)
	if !ok {
		t.Fatalf("got %T, want *node.InternalNode", reopened.Get(internalID))
	}
	if gotInternal.RightChild != leafID || len(gotInternal.Cells) != 1 {
		t.Errorf("internal node did not round-trip: %+v", gotInternal)
	}
}

func TestLoadRejectsCorruptedSnapshot(t *testing.T) {
	path := tempSnapshotPath(t)
	s, err := disk.New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	for i := range raw {
		raw[i] ^= 0xFF
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := disk.New(path); err == nil {
		t.Fatalf("expected a corrupt snapshot to be rejected, got nil error")
	}
}

func TestSaveBacksUpPreviousSnapshot(t *testing.T) {
	path := tempSnapshotPath(t)
	s, err := disk.New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if _, err := os.Stat(path + ".bak"); err != nil {
		t.Errorf("expected a backup file at %s.bak: %v", path, err)
	}
}
