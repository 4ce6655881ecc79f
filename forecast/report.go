package forecast

import (
	"fmt"
	"strings"

	"summerberry-forecast/helpers"
	"summerberry-forecast/models"
)

// RenderReport formats a result as a plain-text summary for terminals and emails
func RenderReport(req models.RequestContext, res *models.PredictionResult) string {
	var sb strings.Builder

	sb.WriteString("HARVEST FORECAST REPORT\n")
	sb.WriteString(strings.Repeat("=", 40) + "\n")
	fmt.Fprintf(&sb, "Site:       %s\n", strings.ToUpper(req.Site))
	fmt.Fprintf(&sb, "Variety:    %s\n", strings.ToUpper(req.Variety))
	fmt.Fprintf(&sb, "Sector:     %s\n", req.Sector)
	fmt.Fprintf(&sb, "Plant type: %s\n", strings.ToUpper(req.PlantType))
	fmt.Fprintf(&sb, "Planted:    %s\n", req.PlantationDate)
	fmt.Fprintf(&sb, "Start date: %s\n\n", req.SelectedDate)

	sb.WriteString("Daily forecast\n")
	sb.WriteString(strings.Repeat("-", 40) + "\n")
	for _, p := range res.Predictions {
		fmt.Fprintf(&sb, "%-8s %-8s %20s\n", p.Day, p.Date, helpers.FormatKg(p.Value))
	}
	sb.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&sb, "%-17s %20s\n", "Total", helpers.FormatKg(res.Total))
	fmt.Fprintf(&sb, "%-17s %20s\n", "Daily average", helpers.FormatKg(res.Average))
	fmt.Fprintf(&sb, "%-17s %17s kg\n\n", "Std deviation", res.StdDev)

	if len(res.Factors) > 0 {
		sb.WriteString("Influencing factors\n")
		sb.WriteString(strings.Repeat("-", 40) + "\n")
		for i, f := range res.Factors {
			arrow := "+"
			if f.Correlation == models.CorrelationNegative {
				arrow = "-"
			}
			fmt.Fprintf(&sb, "%d. %-22s %3d%% (%s)\n", i+1, f.Name, f.Importance, arrow)
		}
	}

	return sb.String()
}
