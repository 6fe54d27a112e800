package eventbus

import "testing"

func TestSubjectNamespacesByPipeline(t *testing.T) {
	if got, want := Subject("p-1"), "querent.events.p-1"; got != want {
		t.Fatalf("Subject = %q, want %q", got, want)
	}
	if got, want := Subject("p-2"), "querent.events.p-2"; got == want {
		t.Fatal("expected distinct pipelines to get distinct subjects")
	}
}
