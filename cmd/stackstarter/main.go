package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "stackstarter",
		Usage: "crowdfunding campaigns on the Stacks blockchain",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "configs/config.yaml",
				Usage:   "path to the YAML config file",
				EnvVars: []string{"CONFIG_PATH"},
			},
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "after broadcasting, wait for the next block",
			},
		},
		Commands: []*cli.Command{
			newAccountCommand(),
			balanceCommand(),
			infoCommand(),
			waitBlocksCommand(),
			deployCommand(),
			createCampaignCommand(),
			updateCampaignCommand(),
			addTierCommand(),
			investCommand(),
			refundCommand(),
			collectCommand(),
			statusCommand(),
			campaignsCommand(),
			watchCommand(),
		},
	}
}
