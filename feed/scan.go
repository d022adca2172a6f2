// feed/scan.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/vice-aman/aman/log"
)

// maxMessageSize bounds a single line of the feed; arrivals messages
// for a busy airport carry full routes.
const maxMessageSize = 16 * 1024 * 1024

// Scan reads newline-delimited JSON messages from r and passes each one
// to handle. Blank lines are ignored. Malformed messages and messages of
// unknown type are logged and skipped. Scan returns when r is exhausted,
// when ctx is canceled, or when handle returns an error.
func Scan(ctx context.Context, r io.Reader, lg *log.Logger, handle func(Message) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxMessageSize)

	var line, skipped int
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}

		msg, err := Decode(b)
		if errors.Is(err, ErrUnknownMessageType) {
			lg.Debug("skipping feed message", slog.Int("line", line), slog.Any("error", err))
			skipped++
			continue
		} else if err != nil {
			lg.Warn("bad feed message", slog.Int("line", line), slog.Any("error", err))
			skipped++
			continue
		}

		if err := handle(msg); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}

	if skipped > 0 {
		lg.Infof("feed: skipped %d of %d lines", skipped, line)
	}
	return sc.Err()
}
