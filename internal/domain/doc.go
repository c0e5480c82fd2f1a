// Package domain models coastal monitoring readings and their threat
// assessment.
//
// # Data Source
//
// Readings arrive from tide gauges, meteorological stations, water-quality
// probes, and a satellite analysis feed, bundled per location on a fixed
// cadence. The in-process simulator produces the same shape when no live
// feed is attached, so the pipeline runs identically in both modes.
//
// # Measurement Conventions
//
// Tide level:
//
//	Metres above datum. Typical range 0–3.2m; storm surge pushes 3.5–6m,
//	tsunami signals beyond that. Tidal range is the deviation from the 2.0m
//	mean.
//
// Wind and pressure:
//
//	Wind speed in km/h, barometric pressure in hPa (standard atmosphere
//	1013). Falling pressure below ~1000 hPa accompanies approaching storm
//	systems.
//
// Water quality:
//
//	pH (seawater ~7.8–8.3), dissolved oxygen in mg/L (healthy above 6,
//	hypoxic below 5), pollution index in [0,1].
//
// Satellite threats:
//
//	Externally scored anomaly entries (algal_bloom, oil_spill,
//	illegal_dumping, coastal_erosion, plastic_accumulation, sedimentation)
//	with severity and confidence in [0,1]. Entries above severity 0.7 are
//	folded into assessments as contributing factors.
//
// Missing values:
//
//	NaN or infinite metric values are substituted with no-threat floors and
//	surfaced as data-quality factors. A broken sensor never raises a threat
//	and never fails evaluation.
//
// # Threat Classification
//
// Two independent signals are computed per reading and both are surfaced:
//
//   - A discrete tier (NONE, MEDIUM, HIGH, CRITICAL) from ordered threshold
//     tiers checked CRITICAL→MEDIUM, where any single metric crossing its
//     bound selects the tier.
//   - A continuous severity score in [0,1] accumulated from weighted rule
//     contributions.
//
// The two may disagree (a tier crossing with a low additive score, or the
// reverse); consumers pick the signal appropriate to their gate. The
// instant-alert path keys off the tier, notification suppression off the
// score.
//
// # ID Generation
//
// Alert IDs are deterministic SHA-256 hashes of type|location|timestamp.
// Replaying an assessment produces the same ID, which keeps the persistence
// append idempotent (ON CONFLICT DO NOTHING) without coordination. See
// [NewAlert].
package domain
