/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Login-guard is an example service that protects the login endpoint from password guessing:
// after too many attempts within a window, the email (or client IP address) is locked out for a while.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/acronis/go-throttle/log"
	"github.com/acronis/go-throttle/service"
)

func main() {
	cfgPath := flag.String("config", "config.yml", "path to the configuration file")
	flag.Parse()

	if err := runApp(*cfgPath); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runApp(cfgPath string) error {
	cfg, err := LoadAppConfig(cfgPath)
	if err != nil {
		return err
	}

	logger, closeLogger := log.NewLogger(cfg.Log)
	defer closeLogger()

	app, err := NewApp(cfg, logger, nil)
	if err != nil {
		return err
	}
	return service.New(logger, app).Start()
}
