package cpetafs

import (
	"testing"

	"github.com/bobg/petastore/store/mem"
)

func TestRoundTrip(t *testing.T) {
	Finitialize(mem.New())
	defer Ffinalize()

	h := Fopen("a.txt", "w")
	if h == 0 {
		t.Fatal("fopen failed")
	}
	buf := []byte("hello")
	if n := Fwrite(h, buf); n != int64(len(buf)) {
		t.Fatalf("Fwrite = %d, want %d", n, len(buf))
	}
	if rc := Fclose(h); rc != 0 {
		t.Fatalf("Fclose = %d, want 0", rc)
	}

	h2 := Fopen("a.txt", "r")
	if h2 == 0 {
		t.Fatal("fopen for read failed")
	}
	out := make([]byte, 16)
	n := Fread(h2, out)
	if n != int64(len(buf)) {
		t.Fatalf("Fread = %d, want %d", n, len(buf))
	}
	if string(out[:n]) != "hello" {
		t.Fatalf("got %q, want %q", out[:n], "hello")
	}
	if rc := Fclose(h2); rc != 0 {
		t.Fatalf("Fclose = %d, want 0", rc)
	}
}

func TestFopenMissingReturnsZero(t *testing.T) {
	Finitialize(mem.New())
	defer Ffinalize()

	if h := Fopen("nope.txt", "r"); h != 0 {
		t.Fatalf("Fopen of missing file = %d, want 0", h)
	}
}

func TestFremove(t *testing.T) {
	Finitialize(mem.New())
	defer Ffinalize()

	h := Fopen("b.txt", "w")
	Fwrite(h, []byte("x"))
	Fclose(h)

	if rc := Fremove("b.txt"); rc != 0 {
		t.Fatalf("Fremove = %d, want 0", rc)
	}
	if h := Fopen("b.txt", "r"); h != 0 {
		t.Fatalf("Fopen after remove = %d, want 0", h)
	}
}
