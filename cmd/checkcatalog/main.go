// Command checkcatalog performs integrity checks on a deployment catalog and,
// optionally, a generated readings fixture: coordinate ranges, duplicate
// locations, stakeholder contact presence, threshold tier ordering, and
// fixture/catalog consistency.
//
// Usage:
//
//	go run ./cmd/checkcatalog -catalog catalog.example.yaml -fixture testdata/readings.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/coastal-threat-service/internal/config"
	"github.com/couchcryptid/coastal-threat-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	catalogPath := flag.String("catalog", "", "catalog YAML path (empty uses the built-in catalog)")
	fixturePath := flag.String("fixture", "", "optional readings fixture to cross-check against the catalog")
	flag.Parse()

	catalog, err := config.LoadCatalog(*catalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: catalog does not load: %v\n", err)
		os.Exit(1)
	}

	phases := []*phase{
		checkLocations(catalog),
		checkStakeholders(catalog),
		checkThresholds(catalog),
	}
	if *fixturePath != "" {
		phases = append(phases, checkFixture(catalog, *fixturePath))
	}

	failed := false
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS %s\n", p.name)
			continue
		}
		failed = true
		fmt.Printf("FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	regions := catalog.Regions()
	fmt.Printf("\n%d locations across %d regions, %d stakeholder groups\n",
		len(catalog.Locations), len(regions), len(catalog.Stakeholders))

	if failed {
		os.Exit(1)
	}
}

func checkLocations(catalog config.Catalog) *phase {
	p := &phase{name: "locations"}

	seen := make(map[string]bool)
	for _, loc := range catalog.Locations {
		if seen[loc.Name] {
			p.errorf("duplicate location %q", loc.Name)
		}
		seen[loc.Name] = true

		if loc.Lat < -90 || loc.Lat > 90 {
			p.errorf("%s: latitude %.4f out of range", loc.Name, loc.Lat)
		}
		if loc.Lon < -180 || loc.Lon > 180 {
			p.errorf("%s: longitude %.4f out of range", loc.Name, loc.Lon)
		}
		if loc.State == "" {
			p.errorf("%s: missing state", loc.Name)
		}
		if loc.Coast == "" {
			p.errorf("%s: missing coast, region grouping will be empty", loc.Name)
		}
	}
	return p
}

func checkStakeholders(catalog config.Catalog) *phase {
	p := &phase{name: "stakeholders"}

	for _, group := range catalog.Stakeholders {
		if group.Phone == "" && group.Email == "" {
			p.errorf("%s: no phone or email, group is unreachable", group.Name)
		}
		if group.Phone != "" && !strings.HasPrefix(group.Phone, "+") {
			p.errorf("%s: phone %q is not in international format", group.Name, group.Phone)
		}
		if group.Email != "" && !strings.Contains(group.Email, "@") {
			p.errorf("%s: email %q is not an address", group.Name, group.Email)
		}
		if len(group.Actions) == 0 {
			p.errorf("%s: no standing actions configured", group.Name)
		}
	}
	return p
}

// checkThresholds verifies that higher tiers require worse conditions, so
// classification stays monotonic.
func checkThresholds(catalog config.Catalog) *phase {
	p := &phase{name: "thresholds"}
	tiers := catalog.Tiers()

	checkOrder := func(name string, critical, high, medium float64, ascending bool) {
		ordered := critical >= high && high >= medium
		if !ascending {
			ordered = critical <= high && high <= medium
		}
		if !ordered {
			p.errorf("%s thresholds are not ordered across tiers: critical=%.1f high=%.1f medium=%.1f",
				name, critical, high, medium)
		}
	}
	checkOrder("tide", tiers.Critical.Tide, tiers.High.Tide, tiers.Medium.Tide, true)
	checkOrder("wind", tiers.Critical.Wind, tiers.High.Wind, tiers.Medium.Wind, true)
	checkOrder("pressure", tiers.Critical.Pressure, tiers.High.Pressure, tiers.Medium.Pressure, false)
	return p
}

func checkFixture(catalog config.Catalog, path string) *phase {
	p := &phase{name: "fixture"}

	data, err := os.ReadFile(path)
	if err != nil {
		p.errorf("read fixture: %v", err)
		return p
	}

	var batches [][]domain.Reading
	if err := json.Unmarshal(data, &batches); err != nil {
		p.errorf("decode fixture: %v", err)
		return p
	}

	known := make(map[string]bool, len(catalog.Locations))
	for _, loc := range catalog.Locations {
		known[loc.Name] = true
	}

	total := 0
	for i, batch := range batches {
		for _, r := range batch {
			total++
			if !known[r.Location.Name] {
				p.errorf("cycle %d: reading for unknown location %q", i, r.Location.Name)
			}
			if r.Timestamp.IsZero() {
				p.errorf("cycle %d: reading for %s has no timestamp", i, r.Location.Name)
			}
		}
	}
	if total == 0 {
		p.errorf("fixture contains no readings")
	}
	return p
}
