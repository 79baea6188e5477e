package main

import (
	"errors"
	"log/slog"
	"os"
)

var (
	errNoInbox         = errors.New("notifier needs INBOX_DSN or POSTGRES_DSN with STORE_DRIVER=postgres")
	errInlineTransport = errors.New("EVENT_TRANSPORT=inline delivers from the API process; nothing to consume")
)

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "err", err)
	os.Exit(1)
}
