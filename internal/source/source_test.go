package source

import (
	"errors"
	"reflect"
	"testing"

	"github.com/bryanchriswhite/PTZView/internal/config"
)

func testSources() []config.Source {
	return []config.Source{
		{Computer: "STUDIO", Name: "CAM-2", URL: "rtsp://studio/2"},
		{Computer: "STUDIO", Name: "CAM-1", URL: "rtsp://studio/1", PTZAddress: "10.0.0.5:5678"},
		{Computer: "BOOTH", Name: "CAM-1", URL: "rtsp://booth/1"},
		{Computer: "BOOTH", Name: "SLIDES", URL: "videotestsrc is-live=true"},
	}
}

func TestCatalogLookup(t *testing.T) {
	c := NewCatalog(testSources())

	tests := []struct {
		name    string
		lookup  string
		wantURL string
		wantErr bool
	}{
		{"full name", "STUDIO (CAM-1)", "rtsp://studio/1", false},
		{"full name with spaces", "  BOOTH (CAM-1) ", "rtsp://booth/1", false},
		{"unique bare name", "SLIDES", "videotestsrc is-live=true", false},
		{"ambiguous bare name", "CAM-1", "", true},
		{"unknown", "NOPE", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := c.Lookup(tt.lookup)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Lookup(%q) error = %v, wantErr %v", tt.lookup, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrUnknownSource) {
					t.Errorf("error %v does not wrap ErrUnknownSource", err)
				}
				return
			}
			if src.URL != tt.wantURL {
				t.Errorf("Lookup(%q).URL = %q, want %q", tt.lookup, src.URL, tt.wantURL)
			}
		})
	}
}

func TestCatalogGroups(t *testing.T) {
	c := NewCatalog(testSources())

	want := []Group{
		{Computer: "BOOTH", Sources: []string{"BOOTH (CAM-1)", "BOOTH (SLIDES)"}},
		{Computer: "STUDIO", Sources: []string{"STUDIO (CAM-1)", "STUDIO (CAM-2)"}},
	}
	if got := c.Groups(); !reflect.DeepEqual(got, want) {
		t.Errorf("Groups() = %+v, want %+v", got, want)
	}

	c.Replace(nil)
	if got := c.Groups(); len(got) != 0 {
		t.Errorf("Groups() after Replace(nil) = %+v", got)
	}
}

func TestPipelineString(t *testing.T) {
	got := PipelineString("rtsp://cam.local/stream")
	want := `uridecodebin uri="rtsp://cam.local/stream" ! videoconvert ! video/x-raw,format=UYVY ! appsink name=sink emit-signals=false max-buffers=1 drop=true sync=false`
	if got != want {
		t.Errorf("PipelineString(uri) =\n%s\nwant\n%s", got, want)
	}

	got = PipelineString("videotestsrc is-live=true")
	want = `videotestsrc is-live=true ! videoconvert ! video/x-raw,format=UYVY ! appsink name=sink emit-signals=false max-buffers=1 drop=true sync=false`
	if got != want {
		t.Errorf("PipelineString(element) =\n%s\nwant\n%s", got, want)
	}
}

func TestUYVYStride(t *testing.T) {
	for w, want := range map[int]int{1920: 3840, 1: 4, 3: 8, 641: 1284} {
		if got := uyvyStride(w); got != want {
			t.Errorf("uyvyStride(%d) = %d, want %d", w, got, want)
		}
	}
}
