package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	dataDir := flag.String("data", "", "override the data directory")
	serviceURL := flag.String("service", "", "override the generation service URL")
	debug := flag.Bool("debug", false, "log events to debug.log in the data directory")
	flag.Parse()

	config := loadConfig()
	if *dataDir != "" {
		config.DataDirectory = *dataDir
	}
	if *serviceURL != "" {
		config.ServiceURL = *serviceURL
	}
	if *debug {
		config.Debug = true
	}
	if config.ServiceURL == "" {
		fmt.Fprintln(os.Stderr, "no generation service configured; set service_url in ~/.loomrc or pass -service")
		os.Exit(1)
	}

	sessions, err := OpenSessionStore(config.SessionDBPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer sessions.Close()

	images, err := NewDiskImageStore(config.ImageDir())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// The terminal is the UI; the standard logger either goes to a file
	// or nowhere.
	if config.Debug {
		logFile, err := os.OpenFile(filepath.Join(config.DataDirectory, "debug.log"),
			os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			defer logFile.Close()
			log.SetOutput(logFile)
		}
	} else {
		log.SetOutput(io.Discard)
	}

	generator := NewHTTPGenerator(config.ServiceURL, config.APIKey())

	p := tea.NewProgram(
		newAppModel(config, sessions, images, generator),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
