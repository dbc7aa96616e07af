package archive

import (
	"path/filepath"
	"testing"
)

func paths(t *testing.T) (string, string) {
	dir := t.TempDir()
	return filepath.Join(dir, "test.arh"), filepath.Join(dir, "test.ard")
}

func namesOf(entries []DirEntry) map[string]EntryKind {
	m := make(map[string]EntryKind, len(entries))
	for _, e := range entries {
		m[e.Name] = e.Kind
	}
	return m
}

// TestScenarios walks through the spec's literal S1-S5 scenarios against a
// single archive, in order, each depending on the previous step's state.
func TestScenarios(t *testing.T) {
	arhPath, ardPath := paths(t)
	a, err := Open(arhPath, ardPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// S1
	if err := a.Write("/a/b.txt", []byte("hello"), false); err != nil {
		t.Fatalf("S1 Write: %v", err)
	}
	m, err := a.Stat("/a/b.txt")
	if err != nil {
		t.Fatalf("S1 Stat: %v", err)
	}
	if m.ID != 0 {
		t.Fatalf("S1: id = %d, want 0", m.ID)
	}
	assertList(t, a, "/", map[string]EntryKind{"a": EntryDir})
	assertList(t, a, "/a", map[string]EntryKind{"b.txt": EntryFile})
	body, err := a.Read("/a/b.txt")
	if err != nil || string(body) != "hello" {
		t.Fatalf("S1 Read = (%q, %v), want (%q, nil)", body, err, "hello")
	}

	// S2
	if err := a.Write("/a/c.txt", []byte("world"), false); err != nil {
		t.Fatalf("S2 Write: %v", err)
	}
	mc, err := a.Stat("/a/c.txt")
	if err != nil || mc.ID != 1 {
		t.Fatalf("S2: c.txt id = %d err = %v, want 1, nil", mc.ID, err)
	}
	assertList(t, a, "/a", map[string]EntryKind{"b.txt": EntryFile, "c.txt": EntryFile})

	// S3
	if err := a.Unlink("/a/b.txt"); err != nil {
		t.Fatalf("S3 Unlink: %v", err)
	}
	if _, err := a.Stat("/a/b.txt"); !Is(err, KindNotFound) {
		t.Fatalf("S3: Stat after Unlink = %v, want NotFound", err)
	}

	// S4 (2 KiB of 0xAA; block log2 = 9 -> 4 blocks). Per S3, id 0 is
	// sitting in the recycle bin, so this insert must reclaim it.
	big := make([]byte, 2048)
	for i := range big {
		big[i] = 0xAA
	}
	if err := a.Write("/a/d/e.bin", big, false); err != nil {
		t.Fatalf("S4 Write: %v", err)
	}
	me, err := a.Stat("/a/d/e.bin")
	if err != nil || me.ID != 0 {
		t.Fatalf("S4: id = %d err = %v, want 0, nil", me.ID, err)
	}
	gotBig, err := a.Read("/a/d/e.bin")
	if err != nil {
		t.Fatalf("S4 Read: %v", err)
	}
	if len(gotBig) != len(big) {
		t.Fatalf("S4 Read length = %d, want %d", len(gotBig), len(big))
	}

	// S5: commit and reopen, prior queries still hold.
	if err := a.Commit(); err != nil {
		t.Fatalf("S5 Commit: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("S5 Close: %v", err)
	}

	reopened, err := Open(arhPath, ardPath)
	if err != nil {
		t.Fatalf("S5 reopen: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.Stat("/a/b.txt"); !Is(err, KindNotFound) {
		t.Fatalf("S5: reopened Stat(/a/b.txt) = %v, want NotFound", err)
	}
	gotBig2, err := reopened.Read("/a/d/e.bin")
	if err != nil || len(gotBig2) != len(big) {
		t.Fatalf("S5: reopened Read(/a/d/e.bin) = (%d bytes, %v), want (%d, nil)", len(gotBig2), err, len(big))
	}
	for i := range gotBig2 {
		if gotBig2[i] != 0xAA {
			t.Fatalf("S5: reopened data corrupted at byte %d", i)
		}
	}
	assertList(t, reopened, "/a", map[string]EntryKind{"c.txt": EntryFile, "d": EntryDir})
}

// TestWriteWithoutARDIsUnsupported covers S6.
func TestWriteWithoutARDIsUnsupported(t *testing.T) {
	arhPath, _ := paths(t)
	a, err := Open(arhPath, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if err := a.Write("/x.txt", []byte("data"), false); !Is(err, KindUnsupported) {
		t.Fatalf("Write without an ARD = %v, want Unsupported", err)
	}
}

func TestLookupTotality(t *testing.T) {
	arhPath, ardPath := paths(t)
	a, err := Open(arhPath, ardPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	known := []string{"/a/b.txt", "/a/c/d.bin", "/e.dat"}
	for _, p := range known {
		if err := a.Write(p, []byte("x"), false); err != nil {
			t.Fatalf("Write(%q): %v", p, err)
		}
	}
	for _, p := range known {
		m, err := a.Stat(p)
		if err != nil {
			t.Fatalf("Stat(%q): %v", p, err)
		}
		if m.ID >= uint32(len(known)) {
			t.Errorf("Stat(%q).ID = %d looks out of range", p, m.ID)
		}
	}
	for _, p := range []string{"/nope", "/a/b.tx", "/a/c/d.binx", "/a"} {
		if _, err := a.Stat(p); !Is(err, KindNotFound) {
			t.Errorf("Stat(%q) = %v, want NotFound", p, err)
		}
	}
}

func TestInsertRemoveIdempotence(t *testing.T) {
	arhPath, ardPath := paths(t)
	a, err := Open(arhPath, ardPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	baseline := []string{"/keep/a.txt", "/keep/b.txt"}
	for _, p := range baseline {
		if err := a.Write(p, []byte("keepme"), false); err != nil {
			t.Fatalf("Write(%q): %v", p, err)
		}
	}

	if err := a.Write("/tmp/file.txt", []byte("transient"), false); err != nil {
		t.Fatalf("Write(tmp): %v", err)
	}
	tmpMeta, err := a.Stat("/tmp/file.txt")
	if err != nil {
		t.Fatalf("Stat(tmp): %v", err)
	}

	if err := a.Unlink("/tmp/file.txt"); err != nil {
		t.Fatalf("Unlink(tmp): %v", err)
	}

	if _, err := a.Stat("/tmp/file.txt"); !Is(err, KindNotFound) {
		t.Fatalf("Stat(tmp) after Unlink = %v, want NotFound", err)
	}
	for _, p := range baseline {
		if _, err := a.Stat(p); err != nil {
			t.Errorf("Stat(%q) disturbed by unrelated insert/remove: %v", p, err)
		}
	}

	// The freed id must come back out on the very next insert.
	if err := a.Write("/tmp/again.txt", []byte("y"), false); err != nil {
		t.Fatalf("Write(again): %v", err)
	}
	again, err := a.Stat("/tmp/again.txt")
	if err != nil {
		t.Fatalf("Stat(again): %v", err)
	}
	if again.ID != tmpMeta.ID {
		t.Fatalf("recycled id = %d, want the freed id %d", again.ID, tmpMeta.ID)
	}
}

func TestRenamePreservesID(t *testing.T) {
	arhPath, ardPath := paths(t)
	a, err := Open(arhPath, ardPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if err := a.Write("/old.txt", []byte("body"), false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	before, _ := a.Stat("/old.txt")

	if err := a.Rename("/old.txt", "/new.txt"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if _, err := a.Stat("/old.txt"); !Is(err, KindNotFound) {
		t.Fatalf("Stat(old) after Rename = %v, want NotFound", err)
	}
	after, err := a.Stat("/new.txt")
	if err != nil {
		t.Fatalf("Stat(new): %v", err)
	}
	if after.ID != before.ID {
		t.Fatalf("Rename changed the file id: %d -> %d", before.ID, after.ID)
	}

	if err := a.Rename("/missing.txt", "/also-missing.txt"); !Is(err, KindNotFound) {
		t.Fatalf("Rename of a missing path = %v, want NotFound", err)
	}
}

// TestRenameOntoExistingDestinationReplaces covers §4.7's "replace"
// choice for rename onto a pre-existing path: the destination's old id
// is displaced (its blocks freed, its id recycled) and the source's id
// takes over the destination path, exactly like Write's in-place update.
func TestRenameOntoExistingDestinationReplaces(t *testing.T) {
	arhPath, ardPath := paths(t)
	a, err := Open(arhPath, ardPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if err := a.Write("/src.txt", []byte("source body"), false); err != nil {
		t.Fatalf("Write(src): %v", err)
	}
	srcMeta, _ := a.Stat("/src.txt")

	if err := a.Write("/dst.txt", []byte("displaced body"), false); err != nil {
		t.Fatalf("Write(dst): %v", err)
	}
	dstMeta, _ := a.Stat("/dst.txt")

	if err := a.Rename("/src.txt", "/dst.txt"); err != nil {
		t.Fatalf("Rename onto existing destination: %v", err)
	}

	if _, err := a.Stat("/src.txt"); !Is(err, KindNotFound) {
		t.Fatalf("Stat(src) after Rename = %v, want NotFound", err)
	}
	after, err := a.Stat("/dst.txt")
	if err != nil {
		t.Fatalf("Stat(dst) after Rename: %v", err)
	}
	if after.ID != srcMeta.ID {
		t.Fatalf("Rename onto existing destination kept id %d, want the source's id %d", after.ID, srcMeta.ID)
	}
	body, err := a.Read("/dst.txt")
	if err != nil || string(body) != "source body" {
		t.Fatalf("Read(dst) after Rename = (%q, %v), want (%q, nil)", body, err, "source body")
	}

	// The displaced destination's id must come back out of the recycle
	// bin on the very next insert, and its blocks must be reusable.
	if err := a.Write("/again.txt", []byte("z"), false); err != nil {
		t.Fatalf("Write(again): %v", err)
	}
	again, err := a.Stat("/again.txt")
	if err != nil {
		t.Fatalf("Stat(again): %v", err)
	}
	if dstMeta.ID == srcMeta.ID {
		t.Fatalf("test setup produced identical ids for src and dst")
	}
	if again.ID != dstMeta.ID {
		t.Fatalf("recycled id = %d, want the displaced destination's id %d", again.ID, dstMeta.ID)
	}
}

// TestRenameToSamePathIsANoOp covers the oldKey == newKey edge case,
// which must not be treated as a self-collision.
func TestRenameToSamePathIsANoOp(t *testing.T) {
	arhPath, ardPath := paths(t)
	a, err := Open(arhPath, ardPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if err := a.Write("/same.txt", []byte("body"), false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	before, _ := a.Stat("/same.txt")

	if err := a.Rename("/same.txt", "/same.txt"); err != nil {
		t.Fatalf("Rename to itself: %v", err)
	}
	after, err := a.Stat("/same.txt")
	if err != nil || after.ID != before.ID {
		t.Fatalf("Stat after self-rename = (%+v, %v), want (%+v, nil)", after, err, before)
	}
}

func TestWriteExistingPathReplacesInPlace(t *testing.T) {
	arhPath, ardPath := paths(t)
	a, err := Open(arhPath, ardPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if err := a.Write("/f.txt", []byte("one"), false); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	first, _ := a.Stat("/f.txt")

	if err := a.Write("/f.txt", []byte("two!!"), false); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	second, err := a.Stat("/f.txt")
	if err != nil {
		t.Fatalf("Stat after replace: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("replacing Write changed the file id: %d -> %d", first.ID, second.ID)
	}
	body, err := a.Read("/f.txt")
	if err != nil || string(body) != "two!!" {
		t.Fatalf("Read after replace = (%q, %v), want (%q, nil)", body, err, "two!!")
	}
}

func TestUnlinkMissingPathFails(t *testing.T) {
	arhPath, ardPath := paths(t)
	a, err := Open(arhPath, ardPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if err := a.Unlink("/nope.txt"); !Is(err, KindNotFound) {
		t.Fatalf("Unlink of missing path = %v, want NotFound", err)
	}
}

func TestReadMissingARDFails(t *testing.T) {
	dir := t.TempDir()
	arhPath := filepath.Join(dir, "x.arh")
	ardPath := filepath.Join(dir, "x.ard")

	a, err := Open(arhPath, ardPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := a.Write("/x.txt", []byte("x"), false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := a.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen against an ARD path where no file exists.
	reopened, err := Open(arhPath, filepath.Join(dir, "missing.ard"))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.Read("/x.txt"); !Is(err, KindIO) {
		t.Fatalf("Read with absent ARD = %v, want IO error", err)
	}
}

func assertList(t *testing.T, a *Archive, dir string, want map[string]EntryKind) {
	t.Helper()
	entries, err := a.List(dir)
	if err != nil {
		t.Fatalf("List(%q): %v", dir, err)
	}
	got := namesOf(entries)
	if len(got) != len(want) {
		t.Fatalf("List(%q) = %v, want %v", dir, got, want)
	}
	for name, kind := range want {
		if got[name] != kind {
			t.Errorf("List(%q)[%q] kind = %v, want %v", dir, name, got[name], kind)
		}
	}
}
