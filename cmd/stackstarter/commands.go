package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"Stackstarter/internal/campaign"
	"Stackstarter/internal/collector"
	"Stackstarter/internal/config"
	"Stackstarter/internal/notifier"
	"Stackstarter/internal/recorder"
	"Stackstarter/internal/scheduler"
	"Stackstarter/internal/wallet"
)

// parseAmount reads micro-STX, or STX with an "stx" suffix ("1.5stx").
func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("amount is required")
	}
	lower := strings.ToLower(strings.TrimSpace(s))
	if strings.HasSuffix(lower, "stx") {
		return notifier.ParseSTX(strings.TrimSuffix(lower, "stx"))
	}
	n, ok := new(big.Int).SetString(lower, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}

func newAccountCommand() *cli.Command {
	return &cli.Command{
		Name:  "new-account",
		Usage: "generate a key pair for the configured network",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			network, err := cfg.Network()
			if err != nil {
				return err
			}
			acct, err := wallet.Generate(network)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "address:    %s\nsecret key: %s\n", acct.Address, acct.SecretKey())
			return nil
		},
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "show the STX balance of a principal (default: the configured account)",
		ArgsUsage: "[principal]",
		Action: withEnv(func(c *cli.Context, e *env) error {
			principal := c.Args().First()
			if principal == "" {
				if e.account == nil {
					return errors.New("no principal given and no account configured")
				}
				principal = e.account.Address
			}
			balance, err := e.orch.Balance(c.Context, principal)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s\t%s\n", principal, notifier.FormatSTX(balance))
			return nil
		}),
	}
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "show the node's chain tip",
		Action: withEnv(func(c *cli.Context, e *env) error {
			info, err := e.node.GetChainInfo(c.Context)
			if err != nil {
				return err
			}
			return printJSON(c, info)
		}),
	}
}

func waitBlocksCommand() *cli.Command {
	return &cli.Command{
		Name:      "wait-blocks",
		Usage:     "block until n more blocks are mined",
		ArgsUsage: "<n>",
		Action: withEnv(func(c *cli.Context, e *env) error {
			n, err := argUint(c, 0, "block count")
			if err != nil {
				return err
			}
			return e.orch.WaitForBlocks(c.Context, n, false)
		}),
	}
}

func deployCommand() *cli.Command {
	return &cli.Command{
		Name:  "deploy",
		Usage: "deploy the contract from the configured account and wait until it is visible",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Usage: "path to the contract source (default: contract.source)"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			if e.account == nil {
				return errors.New("account.secret_key is required")
			}
			path := c.String("source")
			if path == "" {
				path = e.cfg.Contract.Source
			}
			if path == "" {
				return errors.New("no contract source given")
			}
			source, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read contract source: %w", err)
			}
			txid, err := e.orch.DeployContract(c.Context, e.account, e.cfg.Contract.Name, string(source))
			if err != nil {
				return err
			}
			if err := e.recorder.RecordBroadcast(&recorder.BroadcastEvent{
				TxID: txid, Sender: e.account.Address, Function: "deploy",
			}); err != nil {
				log.Printf("[ERROR] record broadcast: %v", err)
			}
			fmt.Fprintf(c.App.Writer, "%s\t%s\n", e.account.ContractID(e.cfg.Contract.Name), txid)
			return nil
		}),
	}
}

func createCampaignCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-campaign",
		Usage: "start a campaign",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "description", Required: true},
			&cli.StringFlag{Name: "link", Required: true},
			&cli.StringFlag{Name: "goal", Required: true, Usage: "micro-STX, or STX with an stx suffix"},
			&cli.Uint64Flag{Name: "duration", Required: true, Usage: "blocks the campaign accepts investments"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			cl, err := e.campaignClient(true)
			if err != nil {
				return err
			}
			goal, err := parseAmount(c.String("goal"))
			if err != nil {
				return err
			}
			txid, err := cl.CreateCampaign(c.Context, campaign.NewCampaign{
				Name:        c.String("name"),
				Description: c.String("description"),
				Link:        c.String("link"),
				Goal:        goal,
				Duration:    c.Uint64("duration"),
			})
			if err != nil {
				return err
			}
			if err := e.broadcast(c, "create-campaign", 0, goal, txid); err != nil {
				return err
			}
			if e.wait {
				id, err := cl.GetTotalCampaigns(c.Context)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "campaign id: %s\n", id)
			}
			return nil
		}),
	}
}

func updateCampaignCommand() *cli.Command {
	return &cli.Command{
		Name:      "update-campaign",
		Usage:     "replace a campaign's description and link",
		ArgsUsage: "<campaign id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "description", Required: true},
			&cli.StringFlag{Name: "link", Required: true},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			id, err := argUint(c, 0, "campaign id")
			if err != nil {
				return err
			}
			cl, err := e.campaignClient(true)
			if err != nil {
				return err
			}
			txid, err := cl.UpdateCampaignInformation(c.Context, id, campaign.CampaignUpdate{
				Description: c.String("description"),
				Link:        c.String("link"),
			})
			if err != nil {
				return err
			}
			return e.broadcast(c, "update-campaign-information", id, nil, txid)
		}),
	}
}

func addTierCommand() *cli.Command {
	return &cli.Command{
		Name:      "add-tier",
		Usage:     "add a contribution tier to a campaign",
		ArgsUsage: "<campaign id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "description", Required: true},
			&cli.StringFlag{Name: "cost", Required: true, Usage: "micro-STX, or STX with an stx suffix"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			id, err := argUint(c, 0, "campaign id")
			if err != nil {
				return err
			}
			cost, err := parseAmount(c.String("cost"))
			if err != nil {
				return err
			}
			cl, err := e.campaignClient(true)
			if err != nil {
				return err
			}
			txid, err := cl.AddTier(c.Context, campaign.NewTier{
				CampaignID:  id,
				Name:        c.String("name"),
				Description: c.String("description"),
				Cost:        cost,
			})
			if err != nil {
				return err
			}
			return e.broadcast(c, "add-tier", id, cost, txid)
		}),
	}
}

func investCommand() *cli.Command {
	return &cli.Command{
		Name:      "invest",
		Usage:     "invest exactly the tier cost in a campaign tier",
		ArgsUsage: "<campaign id> <tier id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "amount", Required: true, Usage: "micro-STX, or STX with an stx suffix"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			id, err := argUint(c, 0, "campaign id")
			if err != nil {
				return err
			}
			tier, err := argUint(c, 1, "tier id")
			if err != nil {
				return err
			}
			amount, err := parseAmount(c.String("amount"))
			if err != nil {
				return err
			}
			cl, err := e.campaignClient(true)
			if err != nil {
				return err
			}
			txid, err := cl.Invest(c.Context, id, tier, amount)
			if err != nil {
				return err
			}
			return e.broadcast(c, "invest", id, amount, txid)
		}),
	}
}

func refundCommand() *cli.Command {
	return &cli.Command{
		Name:      "refund",
		Usage:     "withdraw an investment from a campaign that did not reach its goal",
		ArgsUsage: "<campaign id> <tier id>",
		Action: withEnv(func(c *cli.Context, e *env) error {
			id, err := argUint(c, 0, "campaign id")
			if err != nil {
				return err
			}
			tier, err := argUint(c, 1, "tier id")
			if err != nil {
				return err
			}
			cl, err := e.campaignClient(true)
			if err != nil {
				return err
			}
			txid, err := cl.Refund(c.Context, id, tier)
			if err != nil {
				return err
			}
			return e.broadcast(c, "refund", id, nil, txid)
		}),
	}
}

func collectCommand() *cli.Command {
	return &cli.Command{
		Name:      "collect",
		Usage:     "collect the investments of a campaign that reached its goal",
		ArgsUsage: "<campaign id>",
		Action: withEnv(func(c *cli.Context, e *env) error {
			id, err := argUint(c, 0, "campaign id")
			if err != nil {
				return err
			}
			cl, err := e.campaignClient(true)
			if err != nil {
				return err
			}
			txid, err := cl.Collect(c.Context, id)
			if err != nil {
				return err
			}
			return e.broadcast(c, "collect", id, nil, txid)
		}),
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "print a snapshot of a campaign as JSON",
		ArgsUsage: "<campaign id>",
		Action: withEnv(func(c *cli.Context, e *env) error {
			id, err := argUint(c, 0, "campaign id")
			if err != nil {
				return err
			}
			cl, err := e.campaignClient(false)
			if err != nil {
				return err
			}
			snap, err := cl.Snapshot(c.Context, id)
			if err != nil {
				return err
			}
			return printJSON(c, snap)
		}),
	}
}

func campaignsCommand() *cli.Command {
	return &cli.Command{
		Name:  "campaigns",
		Usage: "list every campaign with its stage",
		Action: withEnv(func(c *cli.Context, e *env) error {
			cl, err := e.campaignClient(false)
			if err != nil {
				return err
			}
			snaps, err := collector.NewCollector(cl, e.cfg.Watch.Concurrency).Collect(c.Context, nil)
			for _, s := range snaps {
				fmt.Fprintf(c.App.Writer, "%d\t%s\t%s\t%s / %s\n", s.Campaign.ID, s.Stage, s.Campaign.Name,
					notifier.FormatSTX(s.Totals.TotalInvestment), notifier.FormatSTX(s.Campaign.Goal))
			}
			return err
		}),
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "periodically snapshot campaigns and report stage changes",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "run-on-start", Usage: "poll once immediately", EnvVars: []string{"RUN_ON_START"}},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			cl, err := e.campaignClient(false)
			if err != nil {
				return err
			}
			col := collector.NewCollector(cl, e.cfg.Watch.Concurrency)

			var sender scheduler.Sender
			var tn *notifier.TelegramNotifier
			if e.cfg.TelegramEnabled() {
				tn = notifier.NewTelegramNotifier(e.cfg.Telegram.BotToken, e.cfg.Telegram.ChatID, e.cfg.Proxy)
				sender = tn
			} else {
				log.Println("[WARN] telegram not configured, notifications go to the log")
			}

			sched := scheduler.NewScheduler(c.Context, col, sender, e.recorder, e.cfg.Watch.Campaigns)
			if err := sched.Register(e.cfg.Watch.Cron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if tn != nil {
				go tn.StartPolling(c.Context, sched.HandleCommand)
				log.Println("[INFO] Telegram polling started")
			}
			if c.Bool("run-on-start") {
				go sched.RunNow()
			}

			log.Printf("[INFO] watching %s on %s. Press Ctrl+C to stop.", cl.ContractID(), e.cfg.Node.URL)
			<-c.Context.Done()
			log.Println("[INFO] shutdown signal received, stopping...")
			return nil
		}),
	}
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
