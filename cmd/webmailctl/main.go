// Command webmailctl talks to the mail backend from a terminal. It uses the
// same rendering as the web gateway, which makes it handy for checking a
// backend deployment.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/postfixrelay/psfxmail/internal/backend"
	"github.com/postfixrelay/psfxmail/internal/mail"
	"github.com/postfixrelay/psfxmail/internal/webmail"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("webmailctl failed")
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:  "webmailctl",
		Usage: "inspect mailboxes through the mail backend",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "backend", Value: "http://localhost:5000", EnvVars: []string{"BACKEND_URL"}, Usage: "mail backend base URL"},
			&cli.StringFlag{Name: "email", EnvVars: []string{"MAIL_EMAIL"}, Usage: "mailbox address"},
			&cli.StringFlag{Name: "password", EnvVars: []string{"MAIL_PASSWORD"}, Usage: "mailbox password"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "backend request timeout"},
			&cli.BoolFlag{Name: "debug", Usage: "log backend requests"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return nil
		},
		Writer: out,
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "check credentials and print the role claim",
				Action: loginCmd,
			},
			{
				Name:   "counts",
				Usage:  "print total and unread counts per folder",
				Flags:  []cli.Flag{&cli.IntFlag{Name: "page-size", Value: 100}},
				Action: countsCmd,
			},
			{
				Name:  "list",
				Usage: "list one page of a folder",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "folder", Value: "inbox"},
					&cli.IntFlag{Name: "page", Value: 1},
					&cli.IntFlag{Name: "page-size", Value: 20},
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}},
					&cli.BoolFlag{Name: "json", Usage: "print rows as JSON"},
				},
				Action: listCmd,
			},
			{
				Name:      "actions",
				Usage:     "print the actions offered in a folder",
				ArgsUsage: "FOLDER",
				Action: func(c *cli.Context) error {
					folder := c.Args().First()
					for _, a := range mail.PermittedActions(folder) {
						fmt.Fprintln(c.App.Writer, a)
					}
					return nil
				},
			},
			{
				Name:      "avatar",
				Usage:     "print the avatar colors for a display name",
				ArgsUsage: "NAME",
				Action: func(c *cli.Context) error {
					av := mail.NewAvatar(c.Args().First())
					fmt.Fprintf(c.App.Writer, "%s %s %s\n", av.Initial, av.Background, av.Foreground)
					return nil
				},
			},
		},
	}
}

func credentials(c *cli.Context) (backend.Credentials, *backend.Client, error) {
	email, password := c.String("email"), c.String("password")
	if email == "" || password == "" {
		return backend.Credentials{}, nil, errors.New("--email and --password are required")
	}
	client := backend.NewClient(c.String("backend"), c.Duration("timeout"))
	res, err := client.Login(c.Context, email, password)
	if err != nil {
		return backend.Credentials{}, nil, fmt.Errorf("login: %w", err)
	}
	return backend.Credentials{Email: email, Password: password, Token: res.Token}, client, nil
}

func loginCmd(c *cli.Context) error {
	client := backend.NewClient(c.String("backend"), c.Duration("timeout"))
	res, err := client.Login(c.Context, c.String("email"), c.String("password"))
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "%s %s\n", res.Email, res.Role)
	return nil
}

func countsCmd(c *cli.Context) error {
	cr, client, err := credentials(c)
	if err != nil {
		return err
	}
	svc := webmail.NewService(client, nil, webmail.Options{})
	counts, err := svc.FolderCounts(c.Context, cr, c.Int("page-size"))
	if err != nil {
		return err
	}
	for _, f := range mail.Folders {
		fc := counts[f]
		fmt.Fprintf(c.App.Writer, "%-12s %4d %4d\n", f, fc.Total, fc.Unread)
	}
	return nil
}

func listCmd(c *cli.Context) error {
	folder, err := mail.ParseFolder(c.String("folder"))
	if err != nil {
		return err
	}
	cr, client, err := credentials(c)
	if err != nil {
		return err
	}

	svc := webmail.NewService(client, nil, webmail.Options{})
	res, err := svc.List(c.Context, webmail.Account{Credentials: cr, List: &mail.ListState{}}, folder,
		c.Int("page"), c.Int("page-size"), c.String("query"))
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	for _, p := range res.Messages {
		mark := " "
		if p.ShowUnread {
			mark = "*"
		}
		fmt.Fprintf(c.App.Writer, "%s %-8s %-10s %-24s %s\n", mark, p.UID, p.DisplayDate, p.DisplayName, p.Subject)
	}
	return nil
}
