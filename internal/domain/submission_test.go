package domain

import "testing"

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fileName string
		mime     string
		want     Category
	}{
		{fileName: "demo.MP4", want: CategoryVideo},
		{fileName: "index.html", want: CategoryWebpage},
		{fileName: "app.tsx", want: CategoryJavaScript},
		{fileName: "theme.scss", want: CategoryStylesheet},
		{fileName: "rows.csv", want: CategoryData},
		{fileName: "README.md", want: CategoryText},
		{fileName: "report.pdf", want: CategoryDocument},
		{fileName: "bundle.tar.gz", want: CategoryArchive},
		{fileName: "logo.svg", want: CategoryImage},
		{fileName: "clip", mime: "video/quicktime", want: CategoryVideo},
		{fileName: "page", mime: "text/html; charset=utf-8", want: CategoryWebpage},
		{fileName: "notes", mime: "text/plain", want: CategoryText},
		{fileName: "blob.bin", mime: "application/octet-stream", want: CategoryUnknown},
		{fileName: "noext", want: CategoryUnknown},
		// The extension wins over a conflicting hint.
		{fileName: "index.html", mime: "video/mp4", want: CategoryWebpage},
	}
	for _, tc := range tests {
		if got := Classify(tc.fileName, tc.mime); got != tc.want {
			t.Fatalf("Classify(%q, %q) = %s, want %s", tc.fileName, tc.mime, got, tc.want)
		}
	}
}

func TestIsTextBearing(t *testing.T) {
	t.Parallel()

	text := map[Category]bool{
		CategoryWebpage: true, CategoryJavaScript: true, CategoryStylesheet: true,
		CategoryData: true, CategoryText: true,
	}
	for _, category := range AllCategories {
		if IsTextBearing(category) != text[category] {
			t.Fatalf("IsTextBearing(%s) = %v", category, !text[category])
		}
	}
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	if got, ok := ParseCategory(" Webpage "); !ok || got != CategoryWebpage {
		t.Fatalf("expected webpage, got %q ok=%v", got, ok)
	}
	if _, ok := ParseCategory("spreadsheet"); ok {
		t.Fatalf("expected unknown category name to be rejected")
	}
}

func TestSubmissionText(t *testing.T) {
	t.Parallel()

	if (Submission{}).Text() != nil {
		t.Fatalf("expected nil text for a metadata-only submission")
	}
	sub := Submission{HasText: true, TextContent: ""}
	if got := sub.Text(); got == nil || *got != "" {
		t.Fatalf("expected empty but present text")
	}
}
