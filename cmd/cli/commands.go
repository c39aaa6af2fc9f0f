package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pulseboard/pulseboard/internal/models"
)

func apiRequest(method, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	url := viper.GetString("server") + path
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := viper.GetString("token"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func newLoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to the Pulseboard server",
		Run: func(cmd *cobra.Command, args []string) {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")

			var resp struct {
				Token string `json:"token"`
			}
			err := apiRequest(http.MethodPost, "/api/v1/auth/login",
				map[string]string{"email": email, "password": password}, &resp)
			if err != nil {
				fmt.Printf("Login failed: %v\n", err)
				return
			}

			viper.Set("token", resp.Token)
			if err := viper.WriteConfig(); err != nil {
				_ = viper.SafeWriteConfig()
			}
			fmt.Println("Login successful")
		},
	}
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password")
	return cmd
}

func newDashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboards",
		Short: "List dashboards",
		Run: func(cmd *cobra.Command, args []string) {
			var dashboards []models.Dashboard
			if err := apiRequest(http.MethodGet, "/api/v1/dashboards", nil, &dashboards); err != nil {
				fmt.Printf("Error getting dashboards: %v\n", err)
				return
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintln(w, "ID\tTITLE\tPUBLIC\tOWNER\t")
			for _, d := range dashboards {
				fmt.Fprintf(w, "%d\t%s\t%t\t%d\t\n", d.ID, d.Title, d.IsPublic, d.OwnerID)
			}
			w.Flush()
		},
	}
}

func newScheduleCommand() *cobra.Command {
	scheduleCmd := &cobra.Command{
		Use:   "schedules",
		Short: "Manage scheduled reports",
		Run: func(cmd *cobra.Command, args []string) {
			var schedules []models.Schedule
			if err := apiRequest(http.MethodGet, "/api/v1/schedules", nil, &schedules); err != nil {
				fmt.Printf("Error getting schedules: %v\n", err)
				return
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintln(w, "ID\tNAME\tCRON\tACTIVE\tLAST RUN\tNEXT RUN\t")
			for _, sch := range schedules {
				lastRun := "never"
				if sch.LastRun != nil {
					lastRun = sch.LastRun.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\t%s\t\n",
					sch.ID, sch.Name, sch.CronExpr, sch.IsActive, lastRun, sch.NextRun.Format(time.RFC3339))
			}
			w.Flush()
		},
	}

	runCmd := &cobra.Command{
		Use:   "run [id]",
		Short: "Run a schedule immediately",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			path := fmt.Sprintf("/api/v1/schedules/%s/run", args[0])
			if err := apiRequest(http.MethodPost, path, nil, nil); err != nil {
				fmt.Printf("Error running schedule: %v\n", err)
				return
			}
			fmt.Println("Report execution started")
		},
	}

	executionsCmd := &cobra.Command{
		Use:   "executions [id]",
		Short: "Show execution history for a schedule",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			path := fmt.Sprintf("/api/v1/schedules/%s/executions", args[0])
			var executions []models.ReportExecution
			if err := apiRequest(http.MethodGet, path, nil, &executions); err != nil {
				fmt.Printf("Error getting executions: %v\n", err)
				return
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintln(w, "RUN ID\tSTATUS\tSTARTED\tDURATION MS\tDELIVERED\tFAILED\t")
			for _, e := range executions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t\n",
					e.RunID, e.Status, e.StartedAt.Format(time.RFC3339), e.DurationMs, e.Delivered, e.Failed)
			}
			w.Flush()
		},
	}

	toggleCmd := &cobra.Command{
		Use:   "toggle [id]",
		Short: "Toggle a schedule active/inactive",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			path := fmt.Sprintf("/api/v1/schedules/%s/toggle", args[0])
			var toggled models.Schedule
			if err := apiRequest(http.MethodPut, path, nil, &toggled); err != nil {
				fmt.Printf("Error toggling schedule: %v\n", err)
				return
			}
			fmt.Printf("Schedule %d is now active=%t\n", toggled.ID, toggled.IsActive)
		},
	}

	scheduleCmd.AddCommand(runCmd, executionsCmd, toggleCmd)
	return scheduleCmd
}
