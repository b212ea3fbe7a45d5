package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgecomet/catalog/internal/reports"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect report jobs",
	}
	cmd.AddCommand(reportStatusCmd())
	return cmd
}

func reportStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <job_id>",
		Short: "Show the status of a report job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			statuses := reports.NewStatusStore(s.redis, s.cfg.Reports.StatusTTL.ToDuration())
			st, err := statuses.Get(ctx, args[0])
			if err != nil {
				return err
			}

			if asJSON {
				out, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ID\t%s\n", st.ID)
			fmt.Fprintf(w, "TYPE\t%s\n", st.ReportType)
			fmt.Fprintf(w, "USER\t%s\n", st.UserID)
			fmt.Fprintf(w, "FORMAT\t%s\n", st.Format)
			fmt.Fprintf(w, "STATE\t%s\n", st.State)
			fmt.Fprintf(w, "BLOB\t%s\n", st.BlobKey)
			fmt.Fprintf(w, "ENQUEUED\t%s\n", st.EnqueuedAt.Format(time.RFC3339))
			if st.FinishedAt != nil {
				fmt.Fprintf(w, "FINISHED\t%s\n", st.FinishedAt.Format(time.RFC3339))
			}
			if st.SizeBytes > 0 {
				fmt.Fprintf(w, "SIZE\t%d\n", st.SizeBytes)
			}
			if st.Error != "" {
				fmt.Fprintf(w, "ERROR\t%s\n", st.Error)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the status as JSON")
	return cmd
}
