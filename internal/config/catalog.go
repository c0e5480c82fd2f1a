package config

import (
	"fmt"
	"os"

	"github.com/couchcryptid/coastal-threat-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// Catalog is the immutable reference data loaded once at startup: monitored
// locations, stakeholder groups, emergency contacts, and threshold tiers.
// Components receive it by value and never mutate it.
type Catalog struct {
	Locations    []domain.Location         `yaml:"locations"`
	Stakeholders []domain.StakeholderGroup `yaml:"stakeholders"`
	Contacts     domain.ContactList        `yaml:"contacts"`
	Thresholds   thresholdsYAML            `yaml:"thresholds"`
}

type thresholdsYAML struct {
	Critical tierYAML `yaml:"critical"`
	High     tierYAML `yaml:"high"`
	Medium   tierYAML `yaml:"medium"`
}

type tierYAML struct {
	Tide     float64 `yaml:"tide"`
	Wind     float64 `yaml:"wind"`
	Pressure float64 `yaml:"pressure"`
}

// LoadCatalog reads the catalog file, or returns the built-in default
// catalog when path is empty.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Locations) == 0 {
		return Catalog{}, fmt.Errorf("catalog %s defines no locations", path)
	}
	for i, loc := range c.Locations {
		if loc.Name == "" {
			return Catalog{}, fmt.Errorf("catalog location %d has no name", i)
		}
		switch loc.Priority {
		case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh, domain.PriorityCritical:
		case "":
			c.Locations[i].Priority = domain.PriorityMedium
		default:
			return Catalog{}, fmt.Errorf("catalog location %s has invalid priority %q", loc.Name, loc.Priority)
		}
	}
	return c, nil
}

// Tiers returns the catalog's threshold tiers, falling back to the defaults
// for any tier left unset.
func (c Catalog) Tiers() domain.TierThresholds {
	tiers := domain.DefaultTiers()
	if t := c.Thresholds.Critical; t != (tierYAML{}) {
		tiers.Critical = domain.Thresholds{Tide: t.Tide, Wind: t.Wind, Pressure: t.Pressure}
	}
	if t := c.Thresholds.High; t != (tierYAML{}) {
		tiers.High = domain.Thresholds{Tide: t.Tide, Wind: t.Wind, Pressure: t.Pressure}
	}
	if t := c.Thresholds.Medium; t != (tierYAML{}) {
		tiers.Medium = domain.Thresholds{Tide: t.Tide, Wind: t.Wind, Pressure: t.Pressure}
	}
	return tiers
}

// Regions groups the catalog's location names by coast for the dashboard
// initial snapshot and the query surface.
func (c Catalog) Regions() map[string][]string {
	regions := make(map[string][]string)
	for _, loc := range c.Locations {
		coast := loc.Coast
		if coast == "" {
			coast = "Unassigned"
		}
		regions[coast] = append(regions[coast], loc.Name)
	}
	return regions
}

// DefaultCatalog returns the built-in catalog covering the major monitored
// coastal sites and the standard stakeholder groups.
func DefaultCatalog() Catalog {
	return Catalog{
		Locations: []domain.Location{
			{Name: "Mumbai", Lat: 19.0760, Lon: 72.8777, State: "Maharashtra", Coast: "West", Priority: domain.PriorityCritical},
			{Name: "Kandla", Lat: 23.0225, Lon: 70.2169, State: "Gujarat", Coast: "West", Priority: domain.PriorityHigh},
			{Name: "Veraval", Lat: 20.9077, Lon: 70.3581, State: "Gujarat", Coast: "West", Priority: domain.PriorityHigh},
			{Name: "Ratnagiri", Lat: 16.9944, Lon: 73.3000, State: "Maharashtra", Coast: "West", Priority: domain.PriorityMedium},
			{Name: "Kochi", Lat: 9.9312, Lon: 76.2673, State: "Kerala", Coast: "West", Priority: domain.PriorityHigh},
			{Name: "Chennai", Lat: 13.0827, Lon: 80.2707, State: "Tamil Nadu", Coast: "East", Priority: domain.PriorityCritical},
			{Name: "Visakhapatnam", Lat: 17.6868, Lon: 83.2185, State: "Andhra Pradesh", Coast: "East", Priority: domain.PriorityHigh},
			{Name: "Paradip", Lat: 20.3165, Lon: 86.6085, State: "Odisha", Coast: "East", Priority: domain.PriorityHigh},
			{Name: "Kolkata", Lat: 22.5726, Lon: 88.3639, State: "West Bengal", Coast: "East", Priority: domain.PriorityCritical},
			{Name: "Port Blair", Lat: 11.6234, Lon: 92.7265, State: "Andaman", Coast: "Islands", Priority: domain.PriorityMedium},
			{Name: "Kavaratti", Lat: 10.5669, Lon: 72.6420, State: "Lakshadweep", Coast: "Islands", Priority: domain.PriorityMedium},
		},
		Stakeholders: []domain.StakeholderGroup{
			{
				Name: "Disaster Management", Phone: "+91-9999999991", Email: "disaster@ndma.gov.in",
				Actions: []string{
					"Deploy emergency response teams immediately",
					"Activate evacuation protocols for affected areas",
					"Coordinate with local authorities",
				},
			},
			{
				Name: "Coast Guard", Phone: "+91-9999999992", Email: "ops@coastguard.gov.in",
				Actions: []string{
					"Issue maritime safety warning",
					"Deploy rescue vessels to high-risk areas",
					"Monitor vessel traffic in affected zones",
				},
			},
			{
				Name: "Environmental NGOs", Phone: "+91-9999999993", Email: "alerts@cpreec.org",
				Actions: []string{
					"Document environmental impact",
					"Prepare cleanup and recovery operations",
					"Monitor wildlife and marine ecosystem",
				},
			},
			{
				Name: "Fishing Communities", Phone: "+91-9999999994", Email: "fisher@community.org",
				Actions: []string{
					"Return vessels to shore immediately",
					"Secure fishing equipment and boats",
					"Move to higher ground if necessary",
				},
			},
			{
				Name: "Port Authorities", Phone: "+91-9999999995", Email: "port.ops@gov.in",
				Actions: []string{
					"Halt port operations if necessary",
					"Secure all vessels and equipment",
					"Issue navigation warnings",
				},
			},
		},
		Contacts: domain.ContactList{
			SMS:   []string{"+91-9999999999", "+91-8888888888", "+91-7777777777"},
			Email: []string{"ndma.emergency@gov.in", "coastguard.ops@indiannavy.gov.in", "disaster.mgmt@maharashtra.gov.in"},
		},
	}
}
