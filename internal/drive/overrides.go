package drive

import (
	"fmt"
)

// Override carries externally configured adjustments for a single drive.
// Only tunable fields may be set; identity fields on core drives are
// protected and rejected individually rather than failing the whole batch.
type Override struct {
	Threshold          *float64           `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	RatePerHour        *float64           `yaml:"rate_per_hour,omitempty" json:"rate_per_hour,omitempty"`
	Prompt             *string            `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	MinIntervalSeconds *int               `yaml:"min_interval_seconds,omitempty" json:"min_interval_seconds,omitempty"`
	Thresholds         map[string]float64 `yaml:"thresholds,omitempty" json:"thresholds,omitempty"`

	// Identity fields. Accepted in the file so misconfiguration surfaces as
	// a warning instead of a silent YAML strict-mode failure, but never
	// applied to core drives.
	Category  *string `yaml:"category,omitempty" json:"category,omitempty"`
	CreatedBy *string `yaml:"created_by,omitempty" json:"created_by,omitempty"`
}

// ApplyOverrides applies a batch of per-drive overrides to the drive map.
// Each override is validated independently: invalid entries are collected
// as warnings and skipped while valid entries in the same batch still apply.
func ApplyOverrides(drives map[string]*Drive, overrides map[string]Override) []string {
	var warnings []string

	for name, ov := range overrides {
		d, ok := drives[name]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("override for unknown drive %q ignored", name))
			continue
		}

		if ov.Category != nil || ov.CreatedBy != nil {
			if d.Category == CategoryCore {
				warnings = append(warnings, fmt.Sprintf("drive %q: identity fields are protected on core drives", name))
			} else {
				if ov.Category != nil {
					d.Category = Category(*ov.Category)
				}
				if ov.CreatedBy != nil {
					d.CreatedBy = *ov.CreatedBy
				}
			}
		}

		if ov.Threshold != nil {
			if *ov.Threshold <= 0 {
				warnings = append(warnings, fmt.Sprintf("drive %q: threshold must be positive, got %v", name, *ov.Threshold))
			} else {
				d.Threshold = *ov.Threshold
			}
		}

		if ov.RatePerHour != nil {
			if *ov.RatePerHour < 0 {
				warnings = append(warnings, fmt.Sprintf("drive %q: rate_per_hour must be non-negative, got %v", name, *ov.RatePerHour))
			} else {
				d.RatePerHour = *ov.RatePerHour
			}
		}

		if ov.Prompt != nil {
			d.Prompt = *ov.Prompt
		}

		if ov.MinIntervalSeconds != nil {
			if *ov.MinIntervalSeconds < 0 {
				warnings = append(warnings, fmt.Sprintf("drive %q: min_interval_seconds must be non-negative, got %d", name, *ov.MinIntervalSeconds))
			} else {
				d.MinIntervalSeconds = *ov.MinIntervalSeconds
			}
		}

		if ov.Thresholds != nil {
			cleaned := make(map[string]float64, len(ov.Thresholds))
			for label, value := range ov.Thresholds {
				if !validStatusLabel(label) {
					warnings = append(warnings, fmt.Sprintf("drive %q: unknown threshold label %q", name, label))
					continue
				}
				if value < 0 {
					warnings = append(warnings, fmt.Sprintf("drive %q: threshold %q must be non-negative, got %v", name, label, value))
					continue
				}
				cleaned[label] = value
			}
			if len(cleaned) > 0 {
				d.Thresholds = cleaned
			}
		}

		d.ClampPressure(0)
	}

	return warnings
}

func validStatusLabel(label string) bool {
	for _, s := range statusOrder {
		if string(s) == label {
			return true
		}
	}
	return false
}
