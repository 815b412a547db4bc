package export

import (
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/location-builder/internal/location"
)

var printer = message.NewPrinter(language.English)

// WriteTable writes an aligned, human-readable county table to out.
func WriteTable(out io.Writer, counties []location.CountyAggregate) error {
	if len(counties) == 0 {
		_, err := fmt.Fprintln(out, "No counties match.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COUNTY\tST\tMILES\tCITIES\tPOPULATION\tAGE\tINCOME\tHOME VALUE\tOWN %\tTZ")
	_, _ = fmt.Fprintln(w, "------\t--\t-----\t------\t----------\t---\t------\t----------\t-----\t--")

	var totalPop float64
	for _, c := range counties {
		totalPop += c.TotalPopulation
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.1f\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.CountyName,
			c.StateID,
			c.DistanceMiles,
			c.CityCount,
			printer.Sprintf("%.0f", c.TotalPopulation),
			orDash(c.AvgAgeMedian, "%.1f"),
			orDash(c.AvgIncomeHouseholdMedian, "$%.0f"),
			orDash(c.AvgHomeValue, "$%.0f"),
			orDash(c.AvgHomeOwnership, "%.1f"),
			c.Timezone,
		)
	}
	_, _ = fmt.Fprintf(w, "\t\t\t\t\t\t\t\t\t\n")
	_, _ = fmt.Fprintf(w, "%s\t\t\t\t%s\t\t\t\t\t\n",
		printer.Sprintf("%d counties", len(counties)),
		printer.Sprintf("%.0f", totalPop),
	)
	return w.Flush()
}

// orDash formats v with the locale printer, or "-" when the value is missing.
func orDash(v float64, format string) string {
	if v == 0 {
		return "-"
	}
	return printer.Sprintf(format, v)
}
