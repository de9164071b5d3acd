package source

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pensieve-cli/pensieve/internal/log"
)

// fakeRunner returns canned output per invocation and records the scripts
// it was asked to run.
type fakeRunner struct {
	outputs []string
	err     error
	calls   []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	f.calls = append(f.calls, strings.Join(append([]string{name}, args...), " "))
	if f.err != nil {
		return "", f.err
	}
	if len(f.outputs) == 0 {
		return "", nil
	}
	out := f.outputs[0]
	f.outputs = f.outputs[1:]
	return out, nil
}

func TestNotesListMetadata(t *testing.T) {
	out := strings.Join([]string{
		"x-coredata://1<<<SEP>>>Tea Notes<<<SEP>>>Hobbies<<<SEP>>>Monday, 3 June 2026 at 10:15:00",
		"x-coredata://2<<<SEP>>>Who am I?<<<SEP>>>Notes<<<SEP>>>Tuesday, 4 June 2026 at 11:00:00",
		"", // trailing separator produces an empty record
	}, "<<<NOTE>>>")

	runner := &fakeRunner{outputs: []string{out}}
	notes := NewNotes(runner, log.NewNop())

	metas, err := notes.ListMetadata(context.Background())
	if err != nil {
		t.Fatalf("ListMetadata() = %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("got %d metas, want 2", len(metas))
	}

	want := Metadata{
		ID:         "x-coredata://1",
		Title:      "Tea Notes",
		Folder:     "Hobbies",
		ModifiedAt: "Monday, 3 June 2026 at 10:15:00",
	}
	if metas[0] != want {
		t.Errorf("metas[0] = %+v, want %+v", metas[0], want)
	}
	if metas[1].Title != "Who am I?" {
		t.Errorf("metas[1].Title = %q", metas[1].Title)
	}
}

func TestNotesListMetadataError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("osascript: Notes got an error")}
	notes := NewNotes(runner, log.NewNop())

	if _, err := notes.ListMetadata(context.Background()); err == nil {
		t.Fatal("ListMetadata() = nil, want error")
	}
}

func TestNotesFetchByID(t *testing.T) {
	out := "x-coredata://1<<<SEP>>>Tea Notes<<<SEP>>>Monday, 3 June 2026 at 10:15:00<<<SEP>>>" +
		"<div>Sencha brewing</div><div><br></div><div>Water at 70&amp;deg;</div><<<NOTE>>>"

	runner := &fakeRunner{outputs: []string{out}}
	notes := NewNotes(runner, log.NewNop())

	docs, err := notes.FetchByID(context.Background(), []string{"x-coredata://1"})
	if err != nil {
		t.Fatalf("FetchByID() = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d docs, want 1", len(docs))
	}

	doc := docs[0]
	if doc.ID != "x-coredata://1" || doc.Title != "Tea Notes" {
		t.Errorf("doc = %+v", doc)
	}
	if strings.Contains(doc.Body, "<div>") {
		t.Errorf("body still contains HTML: %q", doc.Body)
	}
	if !strings.Contains(doc.Body, "Sencha brewing") {
		t.Errorf("body lost content: %q", doc.Body)
	}

	// The generated script quotes the requested ID.
	if len(runner.calls) != 1 || !strings.Contains(runner.calls[0], `"x-coredata://1"`) {
		t.Errorf("script call = %v", runner.calls)
	}
}

func TestNotesFetchByIDBatches(t *testing.T) {
	// 30 IDs split into a batch of 25 and a batch of 5.
	var ids []string
	for i := range 30 {
		ids = append(ids, strings.Repeat("x", 3)+string(rune('a'+i)))
	}

	runner := &fakeRunner{outputs: []string{"", ""}}
	notes := NewNotes(runner, log.NewNop())
	// Unpaced for the test; the default limiter waits a second per batch.
	notes.limiter.SetLimit(1e9)

	if _, err := notes.FetchByID(context.Background(), ids); err != nil {
		t.Fatalf("FetchByID() = %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("got %d script invocations, want 2", len(runner.calls))
	}
	if !strings.Contains(runner.calls[0], ids[24]) || strings.Contains(runner.calls[0], ids[25]) {
		t.Error("first batch should contain IDs 0-24 only")
	}
	if !strings.Contains(runner.calls[1], ids[25]) {
		t.Error("second batch should contain the remaining IDs")
	}
}

func TestNotesFetchAllAppliesLimitAndFolder(t *testing.T) {
	listOut := "id1<<<SEP>>>First<<<SEP>>>Work<<<SEP>>>date1<<<NOTE>>>" +
		"id2<<<SEP>>>Second<<<SEP>>>Home<<<SEP>>>date2<<<NOTE>>>"
	fetchOut := "id1<<<SEP>>>First<<<SEP>>>date1<<<SEP>>>body one<<<NOTE>>>"

	runner := &fakeRunner{outputs: []string{listOut, fetchOut}}
	notes := NewNotes(runner, log.NewNop())
	notes.limiter.SetLimit(1e9)

	docs, err := notes.FetchAll(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchAll() = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d docs, want 1", len(docs))
	}
	if docs[0].Folder != "Work" {
		t.Errorf("Folder = %q, want %q", docs[0].Folder, "Work")
	}
}

func TestEscapeAppleScript(t *testing.T) {
	got := escapeAppleScript(`a"b\c`)
	if got != `a\"b\\c` {
		t.Errorf("escapeAppleScript() = %q", got)
	}
}

func TestHTMLToText(t *testing.T) {
	in := "<div>Line one</div><div><br></div><div>Line &lt;two&gt; &amp; three</div>"
	got := htmlToText(in)
	if !strings.Contains(got, "Line one") {
		t.Errorf("missing first line: %q", got)
	}
	if !strings.Contains(got, "Line <two> & three") {
		t.Errorf("entities not unescaped: %q", got)
	}
	if strings.Contains(got, "<div>") {
		t.Errorf("tags not stripped: %q", got)
	}
}
