package upload

import "testing"

// TestStateDBSyncCycle verifies a source is only reported synced for the
// hash it was marked with.
func TestStateDBSyncCycle(t *testing.T) {
	st, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	if last, err := st.Last("sheet:abc"); err != nil || last != nil {
		t.Fatalf("Last before sync = %+v, %v; want nil, nil", last, err)
	}

	if err := st.MarkSynced("sheet:abc", 12, "h1"); err != nil {
		t.Fatal(err)
	}
	if ok, err := st.IsSynced("sheet:abc", "h1"); err != nil || !ok {
		t.Errorf("IsSynced(h1) = %v, %v; want true", ok, err)
	}
	if ok, _ := st.IsSynced("sheet:abc", "h2"); ok {
		t.Error("IsSynced(h2) = true, want false")
	}
	if ok, _ := st.IsSynced("sheet:other", "h1"); ok {
		t.Error("IsSynced(other source) = true, want false")
	}

	if err := st.MarkSynced("sheet:abc", 13, "h2"); err != nil {
		t.Fatal(err)
	}
	last, err := st.Last("sheet:abc")
	if err != nil {
		t.Fatal(err)
	}
	if last.Rows != 13 || last.Hash != "h2" || last.SyncedAt.IsZero() {
		t.Errorf("Last = %+v, want 13 rows hash h2", last)
	}
}

// TestHashRows verifies the hash depends on cell boundaries and content.
func TestHashRows(t *testing.T) {
	a := HashRows([][]string{{"ab", "c"}})
	b := HashRows([][]string{{"a", "bc"}})
	if a == b {
		t.Error("different cell splits hashed equal")
	}
	if HashRows([][]string{{"x"}, {"y"}}) == HashRows([][]string{{"x", "y"}}) {
		t.Error("different row splits hashed equal")
	}
	if a != HashRows([][]string{{"ab", "c"}}) {
		t.Error("hash is not deterministic")
	}
}
