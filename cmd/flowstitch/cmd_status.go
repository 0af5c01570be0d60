package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"flowstitch/internal/store"
)

var statusLimit int

// statusCmd shows store contents and recent jobs
var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show store contents and recent reconstruction jobs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  showStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "Number of recent jobs to list")
}

func showStatus(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if len(args) == 1 {
		job, err := st.GetJob(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Job:      %s\n", job.ID)
		fmt.Printf("Status:   %s\n", job.Status)
		fmt.Printf("Coverage: %s\n", job.CoverageSummary)
		fmt.Printf("Package:  %s\n", job.PackagePath)
		if job.Message != "" {
			fmt.Printf("Message:  %s\n", job.Message)
		}
		fmt.Printf("Updated:  %s\n", job.UpdatedAt.Format("2006-01-02 15:04:05"))
		return nil
	}

	fmt.Printf("Store: %s\n\n", st.Path())
	for _, table := range store.ContentTables {
		n, err := st.CountArtifacts(table)
		if err != nil {
			return err
		}
		fmt.Printf("  %-16s %d artifacts\n", table, n)
	}

	jobs, err := st.ListJobs(statusLimit)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("\nNo jobs recorded.")
		return nil
	}

	fmt.Printf("\nRecent jobs:\n")
	for _, j := range jobs {
		fmt.Printf("  %s  %-10s  %-20s  %s\n",
			j.ID[:8], j.Status, j.CoverageSummary, j.PackagePath)
	}
	return nil
}
