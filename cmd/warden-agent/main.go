// Command warden-agent drives the signing side of a login from a
// terminal: it pairs with the relay, resumes stored sessions and
// assembles signature sets for a server-issued challenge.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/hivelink/warden/adapters/signer"
	"github.com/hivelink/warden/config"
	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/relay"
	"github.com/hivelink/warden/service"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	var configPath string

	app := &cli.App{
		Name:  "warden-agent",
		Usage: "produce blockchain login proofs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "conf",
				Aliases:     []string{"c"},
				EnvVars:     []string{"WARDEN_CONFIG"},
				Destination: &configPath,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "pair",
				Usage: "Run a fresh relay pairing for an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "account", Required: true},
					&cli.DurationFlag{Name: "timeout", Value: 2 * time.Minute},
				},
				Action: func(c *cli.Context) error {
					return runPair(c, &configPath)
				},
			},
			{
				Name:  "sign",
				Usage: "Sign a login challenge and print the signature set",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "account", Required: true},
					&cli.StringFlag{Name: "challenge", Required: true},
					&cli.StringFlag{Name: "type", Value: string(core.LoginTypeKey), Usage: "key, hiveauth or hivesigner"},
					&cli.StringFlag{Name: "secret", Usage: "WIF for key logins, unlock credential for custody logins"},
					&cli.StringSliceFlag{Name: "level", Value: cli.NewStringSlice(string(core.LevelPosting))},
					&cli.DurationFlag{Name: "timeout", Value: 2 * time.Minute},
				},
				Action: func(c *cli.Context) error {
					return runSign(c, &configPath)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatalln(err)
	}
}

func newRelayClient(cfg *config.Config) *relay.Client {
	return relay.NewClient(relay.Options{
		Host:          cfg.Relay.Host,
		AttachRetries: cfg.Relay.AttachRetries,
		AttachBackoff: cfg.Relay.AttachBackoff.Std(),
		OnPending: func(p relay.PairingPrompt) {
			fmt.Printf("approve on your device before %s:\n%s\n", p.ExpiresAt.Format(time.RFC3339), p.URI)
		},
	})
}

func runPair(c *cli.Context, configPath *string) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	client := newRelayClient(cfg)
	defer client.Close()

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	account := c.String("account")
	session, _, err := client.Authenticate(ctx, account, core.LoginMessage("pairing"))
	if err != nil {
		return err
	}

	fmt.Printf("paired %s, session valid until %s\n", account, session.Expire.Format(time.RFC3339))
	return nil
}

func runSign(c *cli.Context, configPath *string) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	client := newRelayClient(cfg)
	defer client.Close()

	backends := signer.BackendSet{
		Relay:           client,
		CustodyEndpoint: cfg.Custody.Endpoint,
	}
	login := service.NewLoginService(backends, nil)

	levels := make([]core.AuthorityLevel, 0, len(c.StringSlice("level")))
	for _, l := range c.StringSlice("level") {
		levels = append(levels, core.AuthorityLevel(l))
	}

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	result, err := login.Login(ctx, service.LoginRequest{
		LoginType: core.LoginType(c.String("type")),
		Username:  c.String("account"),
		Secret:    c.String("secret"),
		Challenge: c.String("challenge"),
		Levels:    levels,
	})
	if err != nil {
		return err
	}

	out := map[string]interface{}{"signatures": result.Signatures}
	if result.HivesignerToken != "" {
		out["hivesigner_token"] = result.HivesignerToken
	}
	return json.NewEncoder(os.Stdout).Encode(out)
}
