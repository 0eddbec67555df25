package rss

import (
	"strings"
	"testing"

	"github.com/MrSnakeDoc/bookmarkrss/internal/domain"
)

func TestDefaultClients(t *testing.T) {
	table := DefaultClients()

	want := []string{"host", "elk", "elkcanary", "phanpy", "phanpydev", "trunks", "ivory"}
	got := table.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if table.Lookup("none") != nil {
		t.Error("Lookup(none) should be nil")
	}
}

func TestClientLink(t *testing.T) {
	table := DefaultClients()
	bm := domain.Bookmark{
		ID:      "1099",
		URL:     "https://remote.example/@bob/42",
		Account: &domain.Account{Username: "bob", Acct: "bob@remote.example"},
	}

	tests := []struct {
		client string
		want   string
	}{
		{"host", "https://m.example/@bob@remote.example/1099"},
		{"elk", "https://elk.zone/m.example/@bob@remote.example/1099"},
		{"elkcanary", "https://main.elk.zone/m.example/@bob@remote.example/1099"},
		{"phanpy", "https://phanpy.social/#/m.example/s/1099"},
		{"phanpydev", "https://dev.phanpy.social/#/m.example/s/1099"},
		{"trunks", "https://trunks.social/status/m.example/1099"},
		{"ivory", "ivory://acct/openURL?url=https%3A%2F%2Fremote.example%2F%40bob%2F42"},
	}
	for _, tt := range tests {
		t.Run(tt.client, func(t *testing.T) {
			c := table.Lookup(tt.client)
			if c == nil {
				t.Fatalf("Lookup(%q) = nil", tt.client)
			}
			if got := c.Link("m.example", bm); got != tt.want {
				t.Errorf("Link() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientLinkMissingFields(t *testing.T) {
	table := DefaultClients()
	noID := domain.Bookmark{URL: "https://m.example/1", Account: &domain.Account{Acct: "a"}}
	noAccount := domain.Bookmark{ID: "1", URL: "https://m.example/1"}

	if got := table.Lookup("phanpy").Link("m.example", noID); got != "" {
		t.Errorf("phanpy without id = %q, want empty", got)
	}
	if got := table.Lookup("elk").Link("m.example", noAccount); got != "" {
		t.Errorf("elk without account = %q, want empty", got)
	}
	if got := table.Lookup("ivory").Link("m.example", noAccount); got == "" {
		t.Error("ivory only needs the url")
	}
}

func TestClientLinkEscapesPathSegments(t *testing.T) {
	c := &Client{Name: "x", Label: "X", Template: "https://{host}/@{acct}/{id}"}
	bm := domain.Bookmark{ID: `1"><script>`, URL: "u", Account: &domain.Account{Acct: "a/b"}}

	got := c.Link("m.example", bm)
	if strings.ContainsAny(got, `"<>`) {
		t.Errorf("Link() = %q leaks markup characters", got)
	}
	if !strings.Contains(got, "a%2Fb") {
		t.Errorf("Link() = %q, want escaped slash in acct", got)
	}
}

func TestLoadClientsErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not a list", "name: x"},
		{"missing template", "- name: x\n  label: X\n"},
		{"missing name", "- template: https://x\n"},
		{"duplicate", "- name: x\n  template: a\n- name: x\n  template: b\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadClients([]byte(tt.yaml)); err == nil {
				t.Error("LoadClients() error = nil, want error")
			}
		})
	}
}

func TestLoadClientsDefaultsLabel(t *testing.T) {
	table, err := LoadClients([]byte("- name: custom\n  template: https://c.example/{id}\n"))
	if err != nil {
		t.Fatalf("LoadClients() error = %v", err)
	}
	if got := table.Lookup("custom").Label; got != "custom" {
		t.Errorf("Label = %q, want custom", got)
	}
}

func TestRenderWithClient(t *testing.T) {
	bookmarks := []domain.Bookmark{{
		ID:        "7",
		URL:       "https://m.example/@a/7",
		CreatedAt: "2023-01-01T00:00:00Z",
		Content:   "body",
		Account:   &domain.Account{Username: "a", Acct: "a"},
	}}

	out, err := Render("m.example", bookmarks, Options{Client: DefaultClients().Lookup("elk")})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := `<p><a href="https://m.example/@a/7">Original Mastodon Post</a></p>` +
		`<p><a href="https://elk.zone/m.example/@a/7">Open in Elk</a></p>body`
	if !strings.Contains(out, want) {
		t.Errorf("content is missing the open-in link:\n%s", out)
	}
}
