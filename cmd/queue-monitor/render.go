package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/cuongbtq/property-be/internal/mail"
	"github.com/cuongbtq/property-be/internal/queue/reporter"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	sectionStyle = lipgloss.NewStyle().Bold(true)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	statusColors = map[string]lipgloss.Color{
		reporter.StatusHealthy:  lipgloss.Color("10"),
		reporter.StatusBusy:     lipgloss.Color("208"),
		reporter.StatusWarning:  lipgloss.Color("11"),
		reporter.StatusCritical: lipgloss.Color("9"),
	}
)

// statusBadge renders a queue status as a coloured label
func statusBadge(status string) string {
	if status == "" {
		return "Unknown"
	}
	label := strings.ToUpper(status[:1]) + status[1:]
	color, ok := statusColors[status]
	if !ok {
		return label
	}
	return lipgloss.NewStyle().Bold(true).Foreground(color).Render("● " + label)
}

// failureType names the job kind of a failure for operators
func failureType(kind string) string {
	switch kind {
	case mail.KindPropertyCreated:
		return "Property Created Email"
	case mail.KindSendEmail:
		return "Email"
	case "":
		return "-"
	default:
		return kind
	}
}

func sortedQueueNames(stats map[string]*reporter.QueueStats) []string {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func renderHeader(w io.Writer, title string) {
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintln(w, strings.Repeat("=", lipgloss.Width(title)))
}

func renderSection(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, sectionStyle.Render(title))
}

// renderQueueTable prints one row per queue
func renderQueueTable(w io.Writer, stats map[string]*reporter.QueueStats) error {
	table := tablewriter.NewWriter(w)
	table.Header("Queue", "Status", "Pending", "Reserved", "Failed")

	for _, name := range sortedQueueNames(stats) {
		s := stats[name]
		if err := table.Append(name, statusBadge(s.Status), s.Pending, s.Reserved, s.Failed); err != nil {
			return err
		}
	}

	return table.Render()
}

// renderQueueDetails prints recent jobs, the oldest pending job and recent failures of one queue
func renderQueueDetails(w io.Writer, name string, s *reporter.QueueStats) error {
	renderSection(w, fmt.Sprintf("Detailed information for %s", name))

	if s.Details == nil {
		fmt.Fprintln(w, hintStyle.Render("No details available"))
		return nil
	}

	if len(s.RecentJobs) > 0 {
		fmt.Fprintln(w, "Recent jobs:")
		table := tablewriter.NewWriter(w)
		table.Header("ID", "Age", "Attempts")
		for _, job := range s.RecentJobs {
			if err := table.Append(job.ID, formatAge(time.Duration(job.AgeSeconds)*time.Second), job.Attempts); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	if s.OldestPending != nil {
		fmt.Fprintf(w, "Oldest pending job: ID %s, Age: %d minutes, Attempts: %d\n",
			s.OldestPending.ID, s.OldestPending.AgeSeconds/60, s.OldestPending.Attempts)
	}

	if s.PerformanceMetrics.JobsAnalyzed > 0 {
		fmt.Fprintf(w, "Average time to reserve: %.2fs over %d jobs\n",
			s.PerformanceMetrics.AvgTimeToReserveSeconds, s.PerformanceMetrics.JobsAnalyzed)
	}

	if len(s.RecentFailures) > 0 {
		fmt.Fprintln(w, "Recent failures:")
		table := tablewriter.NewWriter(w)
		table.Header("ID", "Failed", "Type", "Exception")
		for _, f := range s.RecentFailures {
			failed := fmt.Sprintf("%d minutes ago", f.AgeMinutes)
			if err := table.Append(f.ID, failed, failureType(f.Kind), f.ExceptionSummary); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	return nil
}

// renderOverview prints system totals, recommendations and how to run workers
func renderOverview(w io.Writer, health *reporter.Health) error {
	renderSection(w, "System overview")

	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")
	rows := [][]any{
		{"Overall status", statusBadge(health.OverallStatus)},
		{"Total jobs in system", health.Summary.TotalJobs},
		{"Total pending jobs", health.Summary.TotalPending},
		{"Total reserved jobs", health.Summary.TotalReserved},
		{"Total failed jobs", health.Summary.TotalFailed},
	}
	for _, row := range rows {
		if err := table.Append(row...); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	renderSection(w, "Recommendations")
	for _, rec := range health.Recommendations {
		fmt.Fprintf(w, "  - %s\n", rec)
	}

	renderSection(w, "Queue workers")
	fmt.Fprintln(w, hintStyle.Render("To start workers: worker-service -config configs/worker-service/config.yaml"))
	fmt.Fprintln(w, hintStyle.Render("To log every job: LOG_LEVEL=debug worker-service"))
	fmt.Fprintln(w, hintStyle.Render("To process specific queue: WORKER_QUEUES=emails worker-service"))

	return nil
}

func formatAge(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return d.Truncate(time.Second).String()
}
