package services

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/irfndi/lifemetrics/internal/models"
)

// titleCase capitalizes each word. A Caser holds state, so one is built per call
// to stay safe across concurrent analyses.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// metricNames indexes display names by metric ID.
type metricNames map[string]string

func newMetricNames(metrics []models.Metric) metricNames {
	names := make(metricNames, len(metrics))
	for _, m := range metrics {
		if m.Name != "" {
			names[m.ID] = m.Name
		}
	}
	return names
}

// label is the title-cased display name, or "" for an unnamed metric.
func (n metricNames) label(metricID string) string {
	if name, ok := n[metricID]; ok {
		return titleCase(name)
	}
	return ""
}

