package commands

import (
	"context"
	"fmt"
)

// LoginCmd performs a fresh login and persists the session.
type LoginCmd struct{}

func (l *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	client, settings, err := newClient(globals)
	if err != nil {
		return err
	}
	if err := client.Login(ctx); err != nil {
		return loginError(err)
	}

	s := client.Session()
	w := globals.out()
	fmt.Fprintf(w, "Logged in as %s\n", settings.Email)
	fmt.Fprintf(w, "Endpoint:     %s\n", s.BaseURL)
	fmt.Fprintf(w, "Account ID:   %s\n", s.AccountID)
	if settings.SessionFile != "" {
		fmt.Fprintf(w, "Session file: %s\n", settings.SessionFile)
	}
	return nil
}

// LogoutCmd removes the persisted session and identifiers.
type LogoutCmd struct{}

func (l *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	client, settings, err := newClient(globals)
	if err != nil {
		return err
	}
	if err := client.Logout(ctx); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	fmt.Fprintf(globals.out(), "Removed session for %s\n", settings.Email)
	return nil
}
