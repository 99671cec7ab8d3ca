package main

import (
	"fmt"
	"os"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	daemonAddr = "http://127.0.0.1:7433"
	pidFile    = "craftpadd.pid"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "start":
		err = cmdStart()
	case "stop":
		err = cmdStop()
	case "status":
		err = cmdStatus()
	case "logs":
		err = cmdLogs()
	case "list":
		err = cmdList(os.Args[2:])
	case "export":
		err = cmdExport(os.Args[2:])
	case "preview":
		err = cmdPreview(os.Args[2:])
	case "mcp":
		err = cmdMCP()
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("craftpad %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Craftpad - Project Workspaces for Small Web Projects

Usage:
  craftpad <command> [arguments]

Daemon Commands:
  start           Start the Craftpad daemon
  stop            Stop the Craftpad daemon
  status          Show daemon status
  logs            View daemon logs

Project Commands:
  list <owner>           List projects for an owner
  export <id> <dir>      Export a project's files to a directory
  preview <id>           Print the composed preview document

Integration Commands:
  mcp             Start MCP server (for editor integration)

Other:
  help            Show this help message
  version         Show version information

Examples:
  craftpad start                  # Start daemon
  craftpad list alice             # List alice's projects
  craftpad export abc123 ./site   # Export project files
  craftpad preview abc123 > p.html`)
}
