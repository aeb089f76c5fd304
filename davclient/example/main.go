// Command example opens a calendar configuration session against a DAV proxy
// and renames the calendar. Settings come from the environment:
//
//	CALCONF_BASE_URL    proxy base URL, e.g. https://esn.example.com/dav/api
//	CALCONF_USERNAME    basic auth user
//	CALCONF_PASSWORD    basic auth password
//	CALCONF_HOME_ID     calendar home id
//	CALCONF_CALENDAR_ID calendar id within the home
//	CALCONF_NAME        new display name (optional)
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/cyp0633/libcalconf/davclient"
	"github.com/cyp0633/libcalconf/internal/httpclient"
)

type config struct {
	BaseURL    string `env:"CALCONF_BASE_URL,required"`
	Username   string `env:"CALCONF_USERNAME,required"`
	Password   string `env:"CALCONF_PASSWORD,required"`
	HomeID     string `env:"CALCONF_HOME_ID,required"`
	CalendarID string `env:"CALCONF_CALENDAR_ID,required"`
	Name       string `env:"CALCONF_NAME"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("bad configuration: %v", err)
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		log.Fatalf("bad base URL: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	transport := httpclient.NewAuthTransport(cfg.Username, cfg.Password, nil, logger)
	client, err := davclient.NewClient(&http.Client{Transport: transport}, *baseURL, logger)
	if err != nil {
		log.Fatalf("failed to build client: %v", err)
	}

	ctx := context.Background()
	directory := &davclient.RESTUserDirectory{Client: client}
	session, err := client.EditCalendarSession(ctx, cfg.HomeID, cfg.CalendarID, directory)
	if err != nil {
		log.Fatalf("failed to open session: %v", err)
	}

	fmt.Printf("calendar %q, public right %q\n", session.Calendar.Name, session.PublicSelection)
	for _, line := range session.Delegations {
		fmt.Printf("  %s <%s>: %s\n", line.User.DisplayName, line.User.Email, line.Right)
	}

	if cfg.Name != "" {
		session.Calendar.Name = cfg.Name
	}
	if err := session.Submit(ctx); err != nil {
		log.Fatalf("failed to save: %v", err)
	}
	fmt.Println("saved:", session.Saved())
}
