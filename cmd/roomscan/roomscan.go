package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/akamensky/argparse"
	"github.com/coreos/go-systemd/daemon"
	"github.com/roomscan/roomscan/pkg/logs"
	"github.com/roomscan/roomscan/server"
	"github.com/roomscan/roomscan/server/config"
)

func main() {
	parser := argparse.NewParser("roomscan", "Blueprint room detection review server")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Config file path (optional, defaults apply without one)", Default: ""})
	port := parser.String("p", "port", &argparse.Options{Help: "Override listen port, eg :8080", Default: ""})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Port = *port
	}

	srv, err := server.NewServer(logger, cfg)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	srv.ListenForKillSignals()

	// Tell systemd that we're alive
	daemon.SdNotify(false, daemon.SdNotifyReady)

	if err := srv.ListenHTTP(cfg.Port); err != nil && err != http.ErrServerClosed {
		logger.Errorf("ListenHTTP returned: %v", err)
	}
}
