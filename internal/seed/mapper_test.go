package seed

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	set := MustEmbedded()

	if set.Len() != 7 {
		t.Fatalf("embedded defaults = %d links, want 7", set.Len())
	}

	n := 0
	links := set.Links(func() string {
		n++
		return strconv.Itoa(n)
	})

	first := links[0]
	if first.Title != "GitHub" || first.URL != "https://github.com" || first.Category != "Geliştirme" || first.Icon != "github" {
		t.Errorf("first default = %+v", first)
	}
	last := links[len(links)-1]
	if last.Title != "Geo Downloader" || last.Category != "Araçlar" {
		t.Errorf("last default = %+v", last)
	}

	seen := map[string]bool{}
	for i, l := range links {
		if l.ClickCount != 0 {
			t.Errorf("links[%d].ClickCount = %d, want 0", i, l.ClickCount)
		}
		if l.SortOrder != (i+1)*100 {
			t.Errorf("links[%d].SortOrder = %d, want %d", i, l.SortOrder, (i+1)*100)
		}
		if seen[l.ID] {
			t.Errorf("duplicate id %s", l.ID)
		}
		seen[l.ID] = true
	}
}

func TestLoadOverrideFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{
			name: "valid",
			content: `---
- Dev:
    - Go:
        url: https://go.dev
    - Chi:
        url: https://go-chi.io
        icon: code
`,
			want: 2,
		},
		{
			name: "invalid url",
			content: `---
- Dev:
    - Broken:
        url: ftp://example.com
`,
			wantErr: true,
		},
		{
			name:    "empty",
			content: "---\n[]\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "defaults.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("failed to write defaults: %v", err)
			}

			set, err := Load(path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Load() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if set.Len() != tt.want {
				t.Errorf("Load() = %d links, want %d", set.Len(), tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() error = nil, want error")
	}
	if errors.Is(err, ErrNoLinks) {
		t.Errorf("Load() error = %v, want read error", err)
	}
}
