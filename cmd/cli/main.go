package main

import (
	"fmt"
	"os"

	"github.com/eventdesk/eventdesk/cmd/cli/attendees"
	"github.com/eventdesk/eventdesk/cmd/cli/auth"
	"github.com/eventdesk/eventdesk/cmd/cli/events"
	"github.com/eventdesk/eventdesk/cmd/cli/root"
)

func main() {
	rootCmd := root.GetRoot()
	auth.InitAuth(rootCmd)
	events.InitEvents(rootCmd)
	attendees.InitAttendees(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
