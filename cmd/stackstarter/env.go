package main

import (
	"errors"
	"fmt"
	"log"
	"math/big"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"Stackstarter/internal/campaign"
	"Stackstarter/internal/config"
	"Stackstarter/internal/confirm"
	"Stackstarter/internal/node"
	"Stackstarter/internal/recorder"
	"Stackstarter/internal/wallet"
)

// env is everything a command needs, built from the config file.
type env struct {
	cfg      *config.Config
	network  wallet.Network
	account  *wallet.Account // nil without a secret key
	node     *node.Client
	orch     *confirm.Orchestrator
	recorder recorder.Recorder
	wait     bool
}

func loadEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	network, err := cfg.Network()
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, network: network, wait: c.Bool("wait")}
	if cfg.Account.SecretKey != "" {
		if e.account, err = wallet.ParseAccount(cfg.Account.SecretKey, network); err != nil {
			return nil, fmt.Errorf("account.secret_key: %w", err)
		}
	}
	e.node = node.NewClient(cfg.Node.URL, cfg.Proxy)
	e.orch = confirm.New(e.node, confirm.Options{
		BlockTime:          cfg.Timing.BlockTime,
		BlockPollInterval:  cfg.Timing.BlockPollInterval,
		DeployPollInterval: cfg.Timing.DeployPollInterval,
		DeployTimeout:      cfg.Timing.DeployTimeout,
		Progress:           os.Stderr,
	})
	e.recorder = openRecorder(cfg.Database.SQLitePath)
	return e, nil
}

func openRecorder(path string) recorder.Recorder {
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(path)
	if err != nil {
		log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}

func (e *env) close() {
	if err := e.recorder.Close(); err != nil {
		log.Printf("[WARN] close recorder: %v", err)
	}
}

// campaignClient returns a client for the configured deployment. Mutations
// need the configured account.
func (e *env) campaignClient(needAccount bool) (*campaign.Client, error) {
	address := e.cfg.Contract.Address
	if address == "" && e.account != nil {
		address = e.account.Address
	}
	if address == "" {
		return nil, errors.New("contract.address is required")
	}
	if needAccount && e.account == nil {
		return nil, errors.New("account.secret_key is required")
	}
	cl := campaign.New(address, e.account, e.node)
	cl.ContractName = e.cfg.Contract.Name
	return cl, nil
}

// broadcast records a successful broadcast and honours --wait.
func (e *env) broadcast(c *cli.Context, function string, campaignID uint64, amount *big.Int, txid string) error {
	evt := &recorder.BroadcastEvent{TxID: txid, Function: function, CampaignID: campaignID}
	if e.account != nil {
		evt.Sender = e.account.Address
	}
	if amount != nil {
		evt.Amount = amount.String()
	}
	if err := e.recorder.RecordBroadcast(evt); err != nil {
		log.Printf("[ERROR] record broadcast: %v", err)
	}
	fmt.Fprintln(c.App.Writer, txid)

	if !e.wait {
		return nil
	}
	return e.orch.WaitForBlocks(c.Context, 1, false)
}

func argUint(c *cli.Context, i int, name string) (uint64, error) {
	s := c.Args().Get(i)
	if s == "" {
		return 0, fmt.Errorf("missing %s", name)
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

// withEnv wraps a command action with config loading and cleanup.
func withEnv(action func(c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := loadEnv(c)
		if err != nil {
			return err
		}
		defer e.close()
		return action(c, e)
	}
}
