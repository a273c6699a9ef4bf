package tenant

import (
	"encoding/json"
	"fmt"
	"os"
)

// Directory is the read-only tenant catalog. It is built once at boot and
// shared by every other module; all lookups are safe for concurrent use
// because nothing mutates after NewDirectory returns.
type Directory struct {
	tenants  map[string]Config
	byNumber map[string]string // dialed number -> tenant id
	order    []string
}

// NewDirectory validates the configs and builds lookup indexes.
func NewDirectory(cfgs []Config) (*Directory, error) {
	d := &Directory{
		tenants:  make(map[string]Config, len(cfgs)),
		byNumber: make(map[string]string, len(cfgs)),
	}
	for _, c := range cfgs {
		if c.ID == "" {
			return nil, fmt.Errorf("tenant: id is required")
		}
		if _, dup := d.tenants[c.ID]; dup {
			return nil, fmt.Errorf("tenant %q: duplicate id", c.ID)
		}
		if len(c.Extensions) == 0 {
			return nil, fmt.Errorf("tenant %q: at least one extension is required", c.ID)
		}
		seen := make(map[string]struct{}, len(c.Extensions))
		for _, e := range c.Extensions {
			if e.Code == "" {
				return nil, fmt.Errorf("tenant %q: extension code is required", c.ID)
			}
			if _, dup := seen[e.Code]; dup {
				return nil, fmt.Errorf("tenant %q: duplicate extension %q", c.ID, e.Code)
			}
			seen[e.Code] = struct{}{}
		}
		if c.DefaultExtension == "" {
			return nil, fmt.Errorf("tenant %q: default_extension is required", c.ID)
		}
		if _, ok := c.Extension(c.DefaultExtension); !ok {
			return nil, fmt.Errorf("tenant %q: default_extension %q is not in the extension set", c.ID, c.DefaultExtension)
		}
		for digit, code := range c.Menu {
			if _, ok := c.Extension(code); !ok {
				return nil, fmt.Errorf("tenant %q: menu digit %q maps to unknown extension %q", c.ID, digit, code)
			}
		}
		if c.Number != "" {
			if other, dup := d.byNumber[c.Number]; dup {
				return nil, fmt.Errorf("tenant %q: number %s already owned by %q", c.ID, c.Number, other)
			}
			d.byNumber[c.Number] = c.ID
		}
		d.tenants[c.ID] = c
		d.order = append(d.order, c.ID)
	}
	return d, nil
}

// Load reads tenant configs from a JSON file.
func Load(path string) ([]Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tenant: read %s: %w", path, err)
	}
	var cfgs []Config
	if err := json.Unmarshal(raw, &cfgs); err != nil {
		return nil, fmt.Errorf("tenant: parse %s: %w", path, err)
	}
	return cfgs, nil
}

// Get returns the tenant config for an id.
func (d *Directory) Get(id string) (Config, bool) {
	c, ok := d.tenants[id]
	return c, ok
}

// ByNumber resolves the tenant owning a dialed public number.
func (d *Directory) ByNumber(number string) (Config, bool) {
	id, ok := d.byNumber[number]
	if !ok {
		return Config{}, false
	}
	return d.tenants[id], true
}

// Extension looks up an extension within a tenant.
func (d *Directory) Extension(tenantID, code string) (Extension, bool) {
	c, ok := d.tenants[tenantID]
	if !ok {
		return Extension{}, false
	}
	return c.Extension(code)
}

// IDs returns tenant ids in load order.
func (d *Directory) IDs() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Seed returns the built-in development fixture. Production deployments
// load tenants from TENANTS_FILE instead.
func Seed() []Config {
	return []Config{
		{
			ID:       "connectiv",
			Name:     "Connectiv",
			Number:   "+15550100",
			Greeting: "Thank you for calling Connectiv.",
			Extensions: []Extension{
				{Code: "101", Name: "Sales", Department: "sales", Available: true},
				{Code: "102", Name: "Support", Department: "support", Available: true},
				{Code: "103", Name: "Accounts", Department: "finance", Available: true},
				{Code: "104", Name: "Manager", Department: "management", Available: true},
			},
			Menu: map[string]string{
				"1": "101",
				"2": "102",
				"3": "103",
				"4": "104",
			},
			DefaultExtension: "101",
		},
	}
}
