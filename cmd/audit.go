package cmd

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"viberate/internal/bootstrap"
	domainaudit "viberate/internal/domain/audit"
)

type auditEntryView struct {
	ID           uint64         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	ActorID      string         `json:"actor_id,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Success      bool           `json:"success"`
	ErrorMessage string         `json:"error_message,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Read the append-only audit log",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit entries, newest first",
	RunE: withSchema(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		var filter domainaudit.Filter
		filter.ActorID, _ = cmd.Flags().GetString("by")
		action, _ := cmd.Flags().GetString("action")
		filter.Action = domainaudit.Action(action)
		filter.ResourceType, _ = cmd.Flags().GetString("resource-type")
		filter.ResourceID, _ = cmd.Flags().GetString("resource-id")
		filter.Limit, _ = cmd.Flags().GetInt("limit")

		entries, err := app.Audit.List(cmd.Context(), filter)
		if err != nil {
			return err
		}
		out := make([]auditEntryView, 0, len(entries))
		rows := make([]table.Row, 0, len(entries))
		for _, e := range entries {
			actor := ""
			if e.ActorID != nil {
				actor = *e.ActorID
			}
			v := auditEntryView{
				ID:           e.ID,
				Timestamp:    e.Timestamp,
				ActorID:      actor,
				Action:       string(e.Action),
				ResourceType: e.ResourceType,
				ResourceID:   e.ResourceID,
				Success:      e.Success,
				ErrorMessage: e.ErrorMessage,
				IPAddress:    e.IPAddress,
				UserAgent:    e.UserAgent,
				Details:      e.Details,
			}
			out = append(out, v)
			rows = append(rows, table.Row{v.ID, v.Timestamp.Format(time.RFC3339), v.ActorID, v.Action, v.ResourceType + ":" + v.ResourceID, v.Success, v.ErrorMessage})
		}
		return render(cmd.OutOrStdout(), outputFormat, view{
			data:   out,
			header: table.Row{"ID", "Time", "Actor", "Action", "Resource", "OK", "Error"},
			rows:   rows,
		})
	}),
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd)
	auditListCmd.Flags().String("by", "", "Filter by actor account id")
	auditListCmd.Flags().String("action", "", "Filter by action, e.g. task.claim")
	auditListCmd.Flags().String("resource-type", "", "Filter by resource type")
	auditListCmd.Flags().String("resource-id", "", "Filter by resource id")
	auditListCmd.Flags().Int("limit", 100, "Maximum entries")
}
