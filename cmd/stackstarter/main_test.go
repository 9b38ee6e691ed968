package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"Stackstarter/internal/nodetest"
	"Stackstarter/internal/wallet"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"20000", "20000", true},
		{"1.5stx", "1500000", true},
		{"2 STX", "2000000", true},
		{"", "", false},
		{"1.5", "", false},
		{"0.0000001stx", "", false},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("parseAmount(%q) error = %v", tt.in, err)
			continue
		}
		if tt.ok && got.String() != tt.want {
			t.Errorf("parseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

type cliWorld struct {
	t      *testing.T
	config string
}

func newCLIWorld(t *testing.T) (*cliWorld, *wallet.Account) {
	t.Helper()
	ledger := nodetest.New()
	t.Cleanup(ledger.Close)

	acct, err := wallet.Generate(wallet.Testnet)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	ledger.Fund(acct.Address, 1_000_000_000)
	ledger.StartMining(20 * time.Millisecond)

	dir := t.TempDir()
	source := filepath.Join(dir, "stackstarter.clar")
	if err := os.WriteFile(source, []byte("(define-data-var campaign-id-nonce uint u0)"), 0o644); err != nil {
		t.Fatal(err)
	}
	config := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`
node:
  url: %s
  network: testnet
contract:
  source: %s
account:
  secret_key: %s
timing:
  block_time: 100ms
  block_poll_interval: 1ms
  deploy_poll_interval: 1ms
  deploy_timeout: 5s
database:
  sqlite_path: %s
`, ledger.URL(), source, acct.SecretKey(), filepath.Join(dir, "cli.db"))
	if err := os.WriteFile(config, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return &cliWorld{t: t, config: config}, acct
}

func (w *cliWorld) run(args ...string) string {
	w.t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	full := append([]string{"stackstarter", "--config", w.config}, args...)
	if err := app.Run(full); err != nil {
		w.t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestCLI_CampaignFlow(t *testing.T) {
	w, acct := newCLIWorld(t)

	if out := w.run("balance"); !strings.Contains(out, "1000 STX") {
		t.Errorf("balance output %q", out)
	}
	if out := w.run("info"); !strings.Contains(out, `"stacks_tip_height"`) {
		t.Errorf("info output %q", out)
	}
	if out := w.run("deploy"); !strings.HasPrefix(out, acct.ContractID("stackstarter")) {
		t.Errorf("deploy output %q", out)
	}

	out := w.run("--wait", "create-campaign", "--name", "cli", "--description", "from the cli",
		"--link", "https://cli.local", "--goal", "0.05stx", "--duration", "100")
	if !strings.Contains(out, "campaign id: 1") {
		t.Fatalf("create-campaign output %q", out)
	}
	w.run("--wait", "add-tier", "--name", "bronze", "--description", "entry", "--cost", "2000", "1")
	w.run("--wait", "invest", "--amount", "2000", "1", "1")

	status := w.run("status", "1")
	for _, want := range []string{`"stage": "ACTIVE"`, `"total_investment": 2000`, `"name": "bronze"`} {
		if !strings.Contains(status, want) {
			t.Errorf("status missing %s:\n%s", want, status)
		}
	}
	if out := w.run("campaigns"); !strings.Contains(out, "1\tACTIVE\tcli") {
		t.Errorf("campaigns output %q", out)
	}
}

func TestCLI_RejectsBadArguments(t *testing.T) {
	w, _ := newCLIWorld(t)
	for _, args := range [][]string{
		{"collect", "abc"},
		{"invest", "--amount", "0", "1", "1"},
		{"refund", "1"},
	} {
		app := newApp()
		app.Writer = &bytes.Buffer{}
		app.ErrWriter = &bytes.Buffer{}
		if err := app.Run(append([]string{"stackstarter", "--config", w.config}, args...)); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}
