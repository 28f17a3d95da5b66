// Package discord adapts the discordgo REST API to the narrow fetcher
// surface the crawler consumes. Everything here is plumbing: pagination
// endpoints, a client-side throttle and venue resolution. Rate-limit 429
// handling itself is discordgo's job.
package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Login opens an authenticated REST session. Bot tokens may be passed bare
// or already prefixed; user tokens go through verbatim.
func Login(token string, userToken bool) (*discordgo.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("no token provided")
	}
	if !userToken && !strings.HasPrefix(token, "Bot ") {
		token = "Bot " + token
	}
	s, err := discordgo.New(token)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	// The crawl is pull-only REST; no gateway connection is opened.
	return s, nil
}

// isNotFound reports whether err is a REST 404.
func isNotFound(err error) bool {
	restErr, ok := err.(*discordgo.RESTError)
	return ok && restErr.Response != nil && restErr.Response.StatusCode == 404
}
