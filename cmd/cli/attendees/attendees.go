package attendees

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/eventdesk/eventdesk/cmd/cli/config"
	"github.com/eventdesk/eventdesk/cmd/cli/output"
	"github.com/spf13/cobra"
)

type attendee struct {
	ID            int    `json:"attendee_id"`
	EventID       int    `json:"event_id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	PhoneNumber   string `json:"phone_number"`
	CheckInStatus bool   `json:"check_in_status"`
}

// InitAttendees registers attendee commands on the root command.
func InitAttendees(rootCmd *cobra.Command) {
	attendeesCmd := &cobra.Command{
		Use:   "attendees",
		Short: "Manage event attendees",
	}

	attendeesCmd.AddCommand(
		listAttendeesCmd(),
		checkInCmd(),
		uploadCSVCmd(),
	)

	rootCmd.AddCommand(attendeesCmd)
}

func listAttendeesCmd() *cobra.Command {
	var checkedIn bool

	cmd := &cobra.Command{
		Use:   "list <event-id>",
		Short: "List attendees for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/attendees/event/" + args[0] + "?page_size=100"
			if cmd.Flags().Changed("checked-in") {
				path += fmt.Sprintf("&checked_in=%t", checkedIn)
			}

			var out struct {
				Attendees []attendee `json:"attendees"`
				Total     int        `json:"total"`
			}
			if err := apiRequest("GET", path, nil, &out); err != nil {
				return err
			}

			rows := make([][]interface{}, 0, len(out.Attendees))
			for _, a := range out.Attendees {
				checked := "no"
				if a.CheckInStatus {
					checked = "yes"
				}
				rows = append(rows, []interface{}{
					a.ID, a.FirstName + " " + a.LastName, a.Email, checked,
				})
			}
			output.RenderTable([]string{"ID", "Name", "Email", "Checked in"}, rows)
			fmt.Printf("Total: %d\n", out.Total)
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkedIn, "checked-in", false, "Filter by check-in state")
	return cmd
}

func checkInCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-in <attendee-id>",
		Short: "Check in an attendee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var a attendee
			if err := apiRequest("POST", "/attendees/"+args[0]+"/check-in", nil, &a); err != nil {
				return err
			}
			fmt.Printf("Checked in %s %s (%s).\n", a.FirstName, a.LastName, a.Email)
			return nil
		},
	}
}

func uploadCSVCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload-csv <event-id> <file>",
		Short: "Bulk-register attendees from a CSV file",
		Long:  "Upload a CSV file with first_name, last_name and email columns (phone_number optional) to register attendees for an event.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			var buf bytes.Buffer
			w := multipart.NewWriter(&buf)
			part, err := w.CreateFormFile("file", filepath.Base(args[1]))
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, f); err != nil {
				return err
			}
			if err := w.Close(); err != nil {
				return err
			}

			req, err := http.NewRequest("POST", config.APIURL()+"/attendees/event/"+args[0]+"/upload-csv", &buf)
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", w.FormDataContentType())
			if token, err := config.LoadToken(); err == nil {
				req.Header.Set("Authorization", "Bearer "+token)
			}

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 400 {
				b, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(b))
			}

			var report struct {
				TotalCreated int   `json:"total_created"`
				AttendeeIDs  []int `json:"attendee_ids"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
				return err
			}
			fmt.Printf("Registered %d attendees.\n", report.TotalCreated)
			return nil
		},
	}
}

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
