package notify

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/coastal-threat-service/internal/domain"
)

// smsBody renders the compact single-message form used for text channels.
func smsBody(alert domain.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "COASTAL ALERT [%s]: %s at %s, %s.",
		alert.Level, threatTitle(alert.ThreatType), alert.Location.Name, alert.Location.State)
	fmt.Fprintf(&b, " Severity %.0f%%.", alert.Severity*100)
	if len(alert.Recommendations) > 0 {
		fmt.Fprintf(&b, " Action: %s", alert.Recommendations[0])
	}
	return b.String()
}

func emailSubject(alert domain.Alert) string {
	return fmt.Sprintf("[%s] %s - %s", alert.Level, threatTitle(alert.ThreatType), alert.Location.Name)
}

// emailBody renders the full plain-text advisory.
func emailBody(alert domain.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Coastal Threat Alert %s\n\n", alert.ID)
	fmt.Fprintf(&b, "Location:          %s, %s\n", alert.Location.Name, alert.Location.State)
	fmt.Fprintf(&b, "Threat:            %s\n", threatTitle(alert.ThreatType))
	fmt.Fprintf(&b, "Level:             %s\n", alert.Level)
	fmt.Fprintf(&b, "Severity:          %.0f%%\n", alert.Severity*100)
	fmt.Fprintf(&b, "Confidence:        %.0f%%\n", alert.Confidence*100)
	fmt.Fprintf(&b, "Response priority: %s\n", alert.ResponsePriority)
	fmt.Fprintf(&b, "Estimated impact:  %s\n", alert.EstimatedImpact)
	fmt.Fprintf(&b, "Observed at:       %s\n\n", alert.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))

	fmt.Fprintf(&b, "Measurements:\n")
	fmt.Fprintf(&b, "  Tide level:      %.2f m\n", alert.Snapshot.TideLevel)
	fmt.Fprintf(&b, "  Wind speed:      %.1f km/h\n", alert.Snapshot.WindSpeed)
	fmt.Fprintf(&b, "  Pressure:        %.1f hPa\n", alert.Snapshot.Pressure)
	fmt.Fprintf(&b, "  Pollution index: %.2f\n\n", alert.Snapshot.PollutionIndex)

	if len(alert.Recommendations) > 0 {
		fmt.Fprintf(&b, "Recommended actions:\n")
		for _, rec := range alert.Recommendations {
			fmt.Fprintf(&b, "  - %s\n", rec)
		}
	}
	return b.String()
}

// threatTitle turns a snake_case threat type into a readable heading.
func threatTitle(threatType string) string {
	words := strings.Split(threatType, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func formatFailureCount(failed, total int) string {
	return fmt.Sprintf("%d of %d sends failed", failed, total)
}
