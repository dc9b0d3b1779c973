package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Record(ctx context.Context) error
	Upload(ctx context.Context, path string, durationSeconds int) error
	Text(ctx context.Context) error
	Status(ctx context.Context, jobID string) error
	History(ctx context.Context) error
	List(ctx context.Context) error
	Show(ctx context.Context, id int64) error
	Play(ctx context.Context, id int64) error
	SetToken(ctx context.Context) error
}

const helpText = "Available commands: record, upload <file> [seconds], text, status <jobId>, " +
	"history, list, show <id>, play <id>, token, exit"

// runREPL starts a simple read–eval–print loop for the MindWell CLI.
//
// It reads a line from lines, parses the first token as the command and
// dispatches to methods on a. The loop exits on EOF or when the user types
// "exit" or "quit". Commands share lines with the REPL so follow-up prompts
// read the next input line.
//
// Handler errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, lines *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("mw %s> ", statusFn()))

		line, err := lines.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			printlnFn(helpText)

		case "r", "record":
			cmdErr = a.Record(ctx)

		case "upload":
			if len(args) == 0 {
				printlnFn("Usage: upload <file> [seconds]")
				continue
			}
			seconds := 0
			if len(args) > 1 {
				if seconds, err = strconv.Atoi(args[1]); err != nil || seconds < 0 {
					printlnFn("Duration must be a whole number of seconds")
					continue
				}
			}
			cmdErr = a.Upload(ctx, args[0], seconds)

		case "text":
			cmdErr = a.Text(ctx)

		case "status":
			if len(args) == 0 {
				printlnFn("Usage: status <jobId>")
				continue
			}
			cmdErr = a.Status(ctx, args[0])

		case "history":
			cmdErr = a.History(ctx)

		case "l", "list":
			cmdErr = a.List(ctx)

		case "show", "play":
			if len(args) == 0 {
				printlnFn(fmt.Sprintf("Usage: %s <id>", cmd))
				continue
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				printlnFn("Check-in id must be a positive number")
				continue
			}
			if cmd == "show" {
				cmdErr = a.Show(ctx, id)
			} else {
				cmdErr = a.Play(ctx, id)
			}

		case "token":
			cmdErr = a.SetToken(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", describe(cmdErr))
		}
	}
}
