package layout

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRemapFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "remap.csv")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp remap: %v", err)
	}
	return path
}

func TestNewIdentityRemap(t *testing.T) {
	r := NewIdentityRemap(4)
	if !r.Identity {
		t.Fatal("want Identity true")
	}
	if len(r.Pairs) != 4 {
		t.Fatalf("want 4 pairs, got %d", len(r.Pairs))
	}
	for i, p := range r.Pairs {
		if p.LayoutChannel != i || p.DeviceChannel != i {
			t.Fatalf("pair %d not identity: %+v", i, p)
		}
	}
}

func TestLoadRemapCSVBasic(t *testing.T) {
	path := writeRemapFile(t, "layout,device\n0,2\n1,0\n2,1\n")
	r, err := LoadRemapCSV(path, 3, 3)
	if err != nil {
		t.Fatalf("LoadRemapCSV: %v", err)
	}
	if r.Identity {
		t.Fatal("want non-identity remap")
	}
	if len(r.Pairs) != 3 {
		t.Fatalf("want 3 pairs, got %d", len(r.Pairs))
	}
}

func TestLoadRemapCSVIdentityDetected(t *testing.T) {
	path := writeRemapFile(t, "layout,device\n0,0\n1,1\n")
	r, err := LoadRemapCSV(path, 2, 2)
	if err != nil {
		t.Fatalf("LoadRemapCSV: %v", err)
	}
	if !r.Identity {
		t.Fatal("want identity bijection detected")
	}
}

func TestLoadRemapCSVDropsBadRows(t *testing.T) {
	path := writeRemapFile(t, "layout,device\n# comment\n\n0,0\nbad,row\n99,99\n1,1\n")
	r, err := LoadRemapCSV(path, 2, 2)
	if err != nil {
		t.Fatalf("LoadRemapCSV: %v", err)
	}
	if len(r.Pairs) != 2 {
		t.Fatalf("want 2 surviving pairs, got %d", len(r.Pairs))
	}
}

func TestLoadRemapCSVAllRowsBad(t *testing.T) {
	path := writeRemapFile(t, "layout,device\nbad,row\n")
	if _, err := LoadRemapCSV(path, 2, 2); err == nil {
		t.Fatal("want error when no row survives")
	}
}

func TestLoadRemapCSVCaseInsensitiveHeader(t *testing.T) {
	path := writeRemapFile(t, "LAYOUT,DEVICE\n0,1\n1,0\n")
	r, err := LoadRemapCSV(path, 2, 2)
	if err != nil {
		t.Fatalf("LoadRemapCSV: %v", err)
	}
	if len(r.Pairs) != 2 {
		t.Fatalf("want 2 pairs, got %d", len(r.Pairs))
	}
}
