package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Smomic/ChatRoom/internal/client"
	"github.com/Smomic/ChatRoom/internal/config"
	"github.com/Smomic/ChatRoom/internal/tui"
)

func main() {
	cfg := config.Load()
	host := flag.String("host", cfg.Host, "server host")
	port := flag.String("port", cfg.Port, "server port")
	username := flag.String("username", cfg.Username, "chat username")
	logPath := flag.String("log", "", "debug log file (default: discard)")
	flag.Parse()

	// The terminal belongs to the UI, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open log file:", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger := slog.New(slog.NewJSONHandler(logOut, nil))

	ui, err := tui.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "start terminal ui:", err)
		os.Exit(1)
	}

	rec := client.NewReconciler(ui, logger)
	ui.OnSubmit(rec.SendMessage)
	ui.OnQuit(rec.Logout)

	if err := rec.Login(*host, *port, *username); err != nil {
		ui.Close()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := ui.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "terminal ui:", err)
		os.Exit(1)
	}
}
