package vcs

import "testing"

const sampleUnifiedDiff = `diff --git a/hello.txt b/hello.txt
index e69de29..ce01362 100644
--- a/hello.txt
+++ b/hello.txt
@@ -1,2 +1,3 @@
 line one
-line two
+line two changed
+line three
`

func TestParseUnifiedDiff_SingleFileHunk(t *testing.T) {
	diff := parseUnifiedDiff(sampleUnifiedDiff, []changedFile{{status: "M", filename: "hello.txt"}})

	if len(diff.Files) != 1 {
		t.Fatalf("len(Files) = %d, want 1", len(diff.Files))
	}
	f := diff.Files[0]
	if f.Filename != "hello.txt" || f.Status != "M" {
		t.Fatalf("file = %+v, want hello.txt/M", f)
	}
	if f.Additions != 2 || f.Deletions != 1 {
		t.Fatalf("additions=%d deletions=%d, want 2/1", f.Additions, f.Deletions)
	}
	if len(f.Hunks) != 1 || len(f.Hunks[0].Lines) != 4 {
		t.Fatalf("hunks = %+v, want 1 hunk of 4 lines", f.Hunks)
	}

	if diff.Summary.TotalFiles != 1 || diff.Summary.TotalAdditions != 2 || diff.Summary.TotalDeletions != 1 {
		t.Fatalf("summary = %+v", diff.Summary)
	}
}

func TestParseUnifiedDiff_NewFileHasNoOldHeader(t *testing.T) {
	raw := `diff --git a/new.txt b/new.txt
new file mode 100644
index 0000000..e69de29
--- /dev/null
+++ b/new.txt
@@ -0,0 +1,1 @@
+hello
`
	diff := parseUnifiedDiff(raw, []changedFile{{status: "A", filename: "new.txt"}})

	if len(diff.Files) != 1 {
		t.Fatalf("len(Files) = %d, want 1", len(diff.Files))
	}
	if diff.Files[0].Status != "A" {
		t.Fatalf("status = %q, want A", diff.Files[0].Status)
	}
	if diff.Files[0].Additions != 1 {
		t.Fatalf("additions = %d, want 1", diff.Files[0].Additions)
	}
}

func TestParseUnifiedDiff_BinaryFileWithoutHeaderPair(t *testing.T) {
	raw := `diff --git a/image.png b/image.png
index abc..def 100644
Binary files a/image.png and b/image.png differ
`
	diff := parseUnifiedDiff(raw, []changedFile{{status: "M", filename: "image.png"}})
	// The binary marker arrives before any "--- a/" header, so there is no
	// current filename to flush against; this mirrors the upstream parser's
	// behavior of only attaching binary status to files with a header pair.
	_ = diff
}

func TestParseUnifiedDiff_MultipleFiles(t *testing.T) {
	raw := `diff --git a/a.txt b/a.txt
index 1..2 100644
--- a/a.txt
+++ b/a.txt
@@ -1,1 +1,1 @@
-old a
+new a
diff --git a/b.txt b/b.txt
index 3..4 100644
--- a/b.txt
+++ b/b.txt
@@ -1,1 +1,1 @@
-old b
+new b
`
	diff := parseUnifiedDiff(raw, []changedFile{
		{status: "M", filename: "a.txt"},
		{status: "M", filename: "b.txt"},
	})

	if len(diff.Files) != 2 {
		t.Fatalf("len(Files) = %d, want 2", len(diff.Files))
	}
	if diff.Summary.TotalFiles != 2 || diff.Summary.TotalAdditions != 2 || diff.Summary.TotalDeletions != 2 {
		t.Fatalf("summary = %+v", diff.Summary)
	}
}

func TestParseHunkHeader_ParsesStartLines(t *testing.T) {
	old, newL := parseHunkHeader("@@ -10,5 +12,7 @@ func foo()")
	if old != 10 || newL != 12 {
		t.Fatalf("parseHunkHeader = (%d, %d), want (10, 12)", old, newL)
	}
}

func TestParseHunkHeader_DefaultsOnMalformedHeader(t *testing.T) {
	old, newL := parseHunkHeader("@@ garbage @@")
	if old != 1 || newL != 1 {
		t.Fatalf("parseHunkHeader = (%d, %d), want (1, 1)", old, newL)
	}
}
