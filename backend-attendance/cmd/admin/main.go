package main

import (
	"os"

	"github.com/prohmpiriya/event-attendance/backend-attendance/cmd/admin/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
