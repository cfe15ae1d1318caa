package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eventdesk/eventdesk/cmd/cli/config"
	"github.com/eventdesk/eventdesk/cmd/cli/output"
	"github.com/spf13/cobra"
)

type event struct {
	ID            int       `json:"event_id"`
	Name          string    `json:"name"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Location      string    `json:"location"`
	MaxAttendees  int       `json:"max_attendees"`
	Status        string    `json:"status"`
	AttendeeCount int       `json:"attendee_count"`
}

// InitEvents registers event commands on the root command.
func InitEvents(rootCmd *cobra.Command) {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Manage events",
	}

	eventsCmd.AddCommand(
		listEventsCmd(),
		getEventCmd(),
		createEventCmd(),
		deleteEventCmd(),
	)

	rootCmd.AddCommand(eventsCmd)
}

func listEventsCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/events?page_size=100"
			if status != "" {
				path += "&status=" + status
			}

			var out struct {
				Events []event `json:"events"`
				Total  int     `json:"total"`
			}
			if err := apiRequest("GET", path, nil, &out); err != nil {
				return err
			}

			rows := make([][]interface{}, 0, len(out.Events))
			for _, e := range out.Events {
				rows = append(rows, []interface{}{
					e.ID, e.Name, e.Location, e.Status,
					e.StartTime.Format(time.RFC3339),
					fmt.Sprintf("%d/%d", e.AttendeeCount, e.MaxAttendees),
				})
			}
			output.RenderTable([]string{"ID", "Name", "Location", "Status", "Start", "Attendees"}, rows)
			fmt.Printf("Total: %d\n", out.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (scheduled, ongoing, completed, canceled)")
	return cmd
}

func getEventCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out json.RawMessage
			if err := apiRequest("GET", "/events/"+args[0], nil, &out); err != nil {
				return err
			}
			var pretty bytes.Buffer
			json.Indent(&pretty, out, "", "  ")
			fmt.Println(pretty.String())
			return nil
		},
	}
}

func createEventCmd() *cobra.Command {
	var name, description, location, start, end string
	var maxAttendees int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			startTime, err := time.Parse(time.RFC3339, start)
			if err != nil {
				return fmt.Errorf("invalid --start (want RFC 3339, e.g. 2026-09-01T18:00:00Z): %w", err)
			}
			endTime, err := time.Parse(time.RFC3339, end)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}

			payload := map[string]interface{}{
				"name":          name,
				"description":   description,
				"location":      location,
				"start_time":    startTime,
				"end_time":      endTime,
				"max_attendees": maxAttendees,
			}
			var created event
			if err := apiRequest("POST", "/events", payload, &created); err != nil {
				return err
			}
			fmt.Printf("Created event %d: %s\n", created.ID, created.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Event name")
	cmd.Flags().StringVar(&description, "description", "", "Event description")
	cmd.Flags().StringVar(&location, "location", "", "Event location")
	cmd.Flags().StringVar(&start, "start", "", "Start time (RFC 3339)")
	cmd.Flags().StringVar(&end, "end", "", "End time (RFC 3339)")
	cmd.Flags().IntVar(&maxAttendees, "max-attendees", 0, "Maximum number of attendees")
	return cmd
}

func deleteEventCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiRequest("DELETE", "/events/"+args[0], nil, nil); err != nil {
				return err
			}
			fmt.Println("Event deleted.")
			return nil
		},
	}
}

// apiRequest performs an authenticated JSON request against the API.
func apiRequest(method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, config.APIURL()+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, err := config.LoadToken(); err == nil {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("unauthorized: run `eventdesk login` first")
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(b))
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
