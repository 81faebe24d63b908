package main

import (
	"fmt"
	"os"
	"pillarhunt-server/internal/version"
	"strings"
	"time"
)

const pkg = "pillarhunt-server/internal/version"

func main() {
	if len(os.Args) < 2 {
		printHelp()
		return
	}

	switch os.Args[1] {
	case "today":
		fmt.Println(time.Now().UTC().Format("2006-01-02"))
	case "id":
		date := time.Now().UTC().Format("2006-01-02")
		if len(os.Args) >= 3 {
			date = os.Args[2]
		}
		version.BuildDate = date
		id, err := version.CalculateBuildID()
		if err != nil {
			fmt.Printf("Invalid date: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(id)
	case "ldflags":
		// ldflags [commit] [branch] [ci]
		vals := []string{time.Now().UTC().Format("2006-01-02"), "", "", ""}
		copy(vals[1:], os.Args[2:])
		names := []string{"BuildDate", "BuildCommit", "BuildBranch", "BuildCI"}

		var flags []string
		for i, name := range names {
			if vals[i] == "" {
				continue
			}
			flags = append(flags, fmt.Sprintf("-X %s.%s=%s", pkg, name, vals[i]))
		}
		fmt.Println(strings.Join(flags, " "))
	default:
		printHelp()
	}
}

func printHelp() {
	fmt.Println(`Build info helper
Commands:
  today                          - build date in the format version.BuildDate expects
  id [YYYY-MM-DD]                - build id for a date (default today)
  ldflags [commit] [branch] [ci] - -X flags for go build -ldflags`)
}
