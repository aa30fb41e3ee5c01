package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hookbox/internal/webhook"
	"hookbox/pkg/cmdutil"
)

// DefaultCommandTimeout bounds a command job when no timeout is configured.
const DefaultCommandTimeout = 300 * time.Second

const outputTailBytes = 2048

// Command runs an external program per record. The raw payload is written to
// its stdin and the record identity is exported as HOOKBOX_* variables.
// Output kept for a failed run has every redact value masked.
type Command struct {
	parts   []string
	timeout time.Duration
	logger  *slog.Logger
	redact  []string
}

// NewCommand accepts the command as a shell-quoted string or a list. Empty
// redact values are ignored.
func NewCommand(command any, timeout time.Duration, logger *slog.Logger, redact ...string) (*Command, error) {
	parts, err := cmdutil.ParseCommandList(command)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	var secrets []string
	for _, v := range redact {
		if v != "" {
			secrets = append(secrets, v)
		}
	}
	return &Command{parts: parts, timeout: timeout, logger: logger, redact: secrets}, nil
}

func (c *Command) NewTask(rec *webhook.Record) webhook.Task {
	return webhook.TaskFor(CommandName, rec)
}

func (c *Command) Handle(ctx context.Context, rec *webhook.Record) error {
	opts := cmdutil.ExecOptions{
		Timeout: c.timeout,
		Stdin:   rec.Payload,
		Env: []string{
			"HOOKBOX_RECORD_ID=" + rec.ID,
			"HOOKBOX_CONFIG=" + rec.ConfigName,
			"HOOKBOX_ATTEMPT=" + fmt.Sprint(rec.Attempts),
		},
	}

	c.logger.Info("Running command job",
		"config", rec.ConfigName,
		"record", rec.ID,
		"command", cmdutil.FormatCommand(c.parts),
	)

	result, err := cmdutil.Run(ctx, opts, c.parts)
	if err != nil {
		output := ""
		if result != nil {
			output = cmdutil.Tail(cmdutil.SanitizeOutput(result.Output, c.redact), outputTailBytes)
		}
		if output != "" {
			return fmt.Errorf("%w: %s", err, output)
		}
		return err
	}

	c.logger.Info("Command job finished",
		"config", rec.ConfigName,
		"record", rec.ID,
		"duration", result.Duration.String(),
	)
	return nil
}
