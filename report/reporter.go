// Package report renders summary rows for the console and exports
// them to CSV and JSON files.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"enginsights/engine"
)

// ExportToJSON saves summary rows to an indented JSON file.
func ExportToJSON(rows []engine.SummaryRow, filename string) error {
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// ExportToCSV saves summary rows to a CSV file, one row per group.
func ExportToCSV(rows []engine.SummaryRow, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{
		"Group", "Total PRs", "Merged PRs",
		"Median Lead Time (hrs)", "Median Review Latency (hrs)",
		"Avg Code Churn", "Small PRs", "Medium PRs", "Large PRs",
	})

	for _, row := range rows {
		writer.Write([]string{
			row.Key,
			strconv.Itoa(row.TotalPRs),
			strconv.Itoa(row.TotalMergedPRs),
			fmtMedian(row.LeadTimeMedianHrs),
			fmtMedian(row.ReviewLatencyMedianHrs),
			fmt.Sprintf("%.2f", row.CodeChurnAvg),
			strconv.Itoa(row.PRsSmall),
			strconv.Itoa(row.PRsMedium),
			strconv.Itoa(row.PRsLarge),
		})
	}

	return nil
}

// PrintSummary displays a formatted summary to the console.
func PrintSummary(rows []engine.SummaryRow, groupLabel string) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("ENGINEERING EFFECTIVENESS SUMMARY")
	fmt.Println(strings.Repeat("=", 60))

	for _, row := range rows {
		if groupLabel != "" {
			fmt.Printf("\n%s: %s\n", groupLabel, row.Key)
		} else {
			fmt.Printf("\nScope: %s\n", row.Key)
		}
		fmt.Println(strings.Repeat("-", 60))
		fmt.Printf("Total PRs: %d (Merged: %d)\n", row.TotalPRs, row.TotalMergedPRs)
		fmt.Printf("Median Lead Time: %s hrs\n", fmtMedian(row.LeadTimeMedianHrs))
		fmt.Printf("Median Review Latency: %s hrs\n", fmtMedian(row.ReviewLatencyMedianHrs))
		fmt.Printf("Avg Code Churn: %.2f\n", row.CodeChurnAvg)
		fmt.Printf("PR Sizes: %d small | %d medium | %d large\n",
			row.PRsSmall, row.PRsMedium, row.PRsLarge)
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
}

func fmtMedian(value *float64) string {
	if value == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *value)
}
