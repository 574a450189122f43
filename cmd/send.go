package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/sheetmail/internal/gmail"
	"github.com/teemow/sheetmail/internal/google"
)

const (
	viaAPI  = "api"
	viaSMTP = "smtp"
)

type sendOptions struct {
	to       string
	from     string
	subject  string
	cc       string
	bcc      string
	body     string
	bodyFile string
	html     bool
	attach   []string
	dir      string
	maxMB    int
	via      string
	smtpAddr string
	dryRun   bool
}

// validate checks flag combinations that cobra cannot express.
func (o *sendOptions) validate() error {
	if strings.TrimSpace(o.to) == "" {
		return gmail.ErrMissingTo
	}
	if o.body != "" && o.bodyFile != "" {
		return errors.New("--body and --body-file are mutually exclusive")
	}
	if o.maxMB < 0 {
		return fmt.Errorf("--max-mb must not be negative, got %d", o.maxMB)
	}
	switch o.via {
	case viaAPI:
	case viaSMTP:
		if strings.TrimSpace(o.from) == "" && !o.dryRun {
			return errors.New("--from is required with --via smtp")
		}
	default:
		return fmt.Errorf("unknown --via %q (expected api or smtp)", o.via)
	}
	return nil
}

// attachments returns the --attach files followed by the files under --dir.
func (o *sendOptions) attachments() ([]string, error) {
	paths := append([]string{}, o.attach...)
	if o.dir == "" {
		return paths, nil
	}
	found, err := listAttachments(o.dir)
	if err != nil {
		return nil, err
	}
	return append(paths, found...), nil
}

func (o *sendOptions) readBody() (string, error) {
	if o.bodyFile == "" {
		return o.body, nil
	}
	data, err := os.ReadFile(o.bodyFile)
	if err != nil {
		return "", fmt.Errorf("failed to read body file: %w", err)
	}
	return string(data), nil
}

// listAttachments returns the regular files below dir in lexical order.
// Hidden files and directories are skipped.
func listAttachments(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments in %s: %w", dir, err)
	}
	return paths, nil
}

type sendOutput struct {
	ID          string           `json:"id,omitempty"`
	ThreadID    string           `json:"thread_id,omitempty"`
	Attachments gmail.PackResult `json:"attachments"`
}

func newSendCmd() *cobra.Command {
	opts := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an email with as many attachments as fit",
		Long: `Build a message and send it through Gmail.

Attachments are added in order (--attach files first, then the files under
--attach-dir in lexical order) until the next one would push the message
past --max-mb. Packing stops there: the remaining files are listed as not
attempted, even if a later one is small enough to fit.

With --dry-run the raw message is written to stdout instead of being sent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			return runSend(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.to, "to", "", "Recipient address(es), comma-separated")
	f.StringVar(&opts.from, "from", "", "Sender address (required with --via smtp)")
	f.StringVar(&opts.subject, "subject", "", "Message subject")
	f.StringVar(&opts.cc, "cc", "", "CC address(es), comma-separated")
	f.StringVar(&opts.bcc, "bcc", "", "BCC address(es), comma-separated")
	f.StringVar(&opts.body, "body", "", "Message body")
	f.StringVar(&opts.bodyFile, "body-file", "", "Read the message body from a file")
	f.BoolVar(&opts.html, "html", false, "Send the body as text/html")
	f.StringArrayVar(&opts.attach, "attach", nil, "File to attach (repeatable, in priority order)")
	f.StringVar(&opts.dir, "attach-dir", "", "Attach the files in this directory after the --attach files")
	f.IntVar(&opts.maxMB, "max-mb", defaultMaxMB(), "Total message size budget in MB. Can also use "+envMaxMB+" env var.")
	f.StringVar(&opts.via, "via", viaAPI, "Delivery method: api or smtp")
	f.StringVar(&opts.smtpAddr, "smtp-addr", gmail.DefaultSMTPAddr, "SMTP submission address for --via smtp")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Write the raw message to stdout instead of sending it")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runSend(ctx context.Context, opts *sendOptions, out io.Writer) error {
	body, err := opts.readBody()
	if err != nil {
		return err
	}
	paths, err := opts.attachments()
	if err != nil {
		return err
	}

	msg, err := gmail.BuildMessage(gmail.Headers{
		To:      opts.to,
		From:    opts.from,
		Subject: opts.subject,
		Cc:      opts.cc,
		Bcc:     opts.bcc,
	}, body, opts.html)
	if err != nil {
		return err
	}

	packer := &gmail.Packer{MaxMB: opts.maxMB}
	packed, err := packer.Pack(msg, paths)
	if err != nil {
		return err
	}
	for _, name := range packed.NotAttempted {
		slog.Warn("attachment not attempted", slog.String("attachment", name))
	}

	if opts.dryRun {
		_, err := out.Write(msg.Bytes())
		return err
	}

	sender, err := newSender(ctx, opts)
	if err != nil {
		return err
	}
	sent, err := sender.Send(ctx, msg)
	if err != nil {
		return err
	}

	res := sendOutput{ID: sent.Id, ThreadID: sent.ThreadId, Attachments: packed}
	return writeJSON(out, res)
}

func newSender(ctx context.Context, opts *sendOptions) (gmail.Sender, error) {
	if opts.via == viaSMTP {
		ts, err := tokenSource(ctx, google.SMTPScopes)
		if err != nil {
			return nil, err
		}
		from, err := mail.ParseAddress(opts.from)
		if err != nil {
			return nil, fmt.Errorf("invalid --from address: %w", err)
		}
		return &gmail.SMTPSender{
			Addr:        opts.smtpAddr,
			Username:    from.Address,
			TokenSource: ts,
		}, nil
	}

	ts, err := tokenSource(ctx, google.GmailScopes)
	if err != nil {
		return nil, err
	}
	httpClient := google.NewHTTPClient(ctx, ts, google.DefaultTransportConfig())
	return gmail.NewClient(ctx, google.ClientOptions(httpClient)...)
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
