package main

import (
	"flag"
	"os"
)

var (
	flagBackendURL  string
	flagAPIKey      string
	flagAccessToken string
	flagUserID      string
	flagLogLevel    string
	flagDemo        bool
)

func parseFlags() {
	flag.StringVar(&flagBackendURL, "b", "", "backend project URL")
	flag.StringVar(&flagAPIKey, "k", "", "backend API key")
	flag.StringVar(&flagAccessToken, "t", "", "access token of the signed-in user")
	flag.StringVar(&flagUserID, "u", "", "id of the signed-in user")
	flag.StringVar(&flagLogLevel, "l", "info", "log level")
	flag.BoolVar(&flagDemo, "demo", false, "run against a seeded in-process backend")
	flag.Parse()

	if env := os.Getenv("BACKEND_URL"); env != "" {
		flagBackendURL = env
	}
	if env := os.Getenv("BACKEND_API_KEY"); env != "" {
		flagAPIKey = env
	}
	if env := os.Getenv("BACKEND_ACCESS_TOKEN"); env != "" {
		flagAccessToken = env
	}
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		flagLogLevel = env
	}
}
