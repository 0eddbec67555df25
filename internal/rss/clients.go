package rss

import (
	_ "embed"
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/bookmarkrss/internal/domain"
)

//go:embed clients.yaml
var defaultClientsYAML []byte

// Client is a third-party app a bookmark can be opened in.
type Client struct {
	Name     string `yaml:"name"`
	Label    string `yaml:"label"`
	Template string `yaml:"template"`
}

// ClientTable indexes clients by name.
type ClientTable struct {
	byName map[string]*Client
	order  []string
}

// LoadClients parses a YAML list of clients.
func LoadClients(data []byte) (*ClientTable, error) {
	var list []Client
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse clients yaml: %w", err)
	}

	t := &ClientTable{byName: make(map[string]*Client, len(list))}
	for i := range list {
		c := &list[i]
		if c.Name == "" || c.Template == "" {
			return nil, fmt.Errorf("client %d: name and template are required", i)
		}
		if _, dup := t.byName[c.Name]; dup {
			return nil, fmt.Errorf("client %q declared twice", c.Name)
		}
		if c.Label == "" {
			c.Label = c.Name
		}
		t.byName[c.Name] = c
		t.order = append(t.order, c.Name)
	}
	return t, nil
}

// DefaultClients returns the built-in table. It panics if the embedded file is
// invalid, which can only happen at build time.
func DefaultClients() *ClientTable {
	t, err := LoadClients(defaultClientsYAML)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the client called name, or nil.
func (t *ClientTable) Lookup(name string) *Client {
	if t == nil {
		return nil
	}
	return t.byName[name]
}

// Names lists client names in declaration order.
func (t *ClientTable) Names() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.order...)
}

// Link builds the client link for b, or "" when b lacks a field the template
// needs. Path segments taken from upstream data are escaped.
func (c *Client) Link(host string, b domain.Bookmark) string {
	var acct string
	if b.Account != nil {
		acct = b.Account.Acct
	}

	needs := func(placeholder, value string) bool {
		return strings.Contains(c.Template, placeholder) && value == ""
	}
	if needs("{acct}", acct) || needs("{id}", b.ID) || needs("{url}", b.URL) || needs("{host}", host) {
		return ""
	}

	return strings.NewReplacer(
		"{host}", host,
		"{acct}", url.PathEscape(acct),
		"{id}", url.PathEscape(b.ID),
		"{url}", url.QueryEscape(b.URL),
	).Replace(c.Template)
}
