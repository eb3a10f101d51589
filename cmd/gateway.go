package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/goclaw/internal/approval"
	"github.com/nextlevelbuilder/goclaw/internal/bus"
	"github.com/nextlevelbuilder/goclaw/internal/channels"
	"github.com/nextlevelbuilder/goclaw/internal/channels/feishu"
	"github.com/nextlevelbuilder/goclaw/internal/channels/whatsapp"
	"github.com/nextlevelbuilder/goclaw/internal/channels/zalo"
	"github.com/nextlevelbuilder/goclaw/internal/config"
	"github.com/nextlevelbuilder/goclaw/internal/cron"
	"github.com/nextlevelbuilder/goclaw/internal/safety"
	"github.com/nextlevelbuilder/goclaw/internal/sandbox"
	"github.com/nextlevelbuilder/goclaw/internal/sessions"
	"github.com/nextlevelbuilder/goclaw/internal/store"
)

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Run the channel gateway: inbound dispatch, approval gating, cron firing",
		Run: func(cmd *cobra.Command, args []string) {
			runGateway()
		},
	}
}

// gatewayRuntime bundles the components a single gateway process wires
// together: channel I/O, the approval gate tool calls must clear, the
// safety layer scanning tool input/output, the cron scheduler that injects
// scheduled prompts, and the sandbox profile new tool executions inherit.
type gatewayRuntime struct {
	cfg        *config.Config
	bus        *bus.MessageBus
	channels   *channels.Manager
	approvals  *approval.Manager
	safety     *safety.Layer
	scheduler  *cron.Scheduler
	sessions   *sessions.Manager
	profile    sandbox.Profile
}

func runGateway() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	rt, err := newGatewayRuntime(cfg)
	if err != nil {
		slog.Error("failed to build gateway runtime", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rt.channels.StartAll(ctx); err != nil {
		slog.Error("failed to start channels", "error", err)
		os.Exit(1)
	}
	go rt.runCronLoop(ctx)
	go rt.runApprovalExpiry(ctx)

	slog.Info("gateway running",
		"channels", rt.channels.GetEnabledChannels(),
		"sandbox_mode", rt.cfg.Agents.Defaults.Workspace,
	)

	<-ctx.Done()
	slog.Info("shutting down gateway")

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rt.channels.StopAll(stopCtx); err != nil {
		slog.Error("error stopping channels", "error", err)
	}
}

func newGatewayRuntime(cfg *config.Config) (*gatewayRuntime, error) {
	msgBus := bus.NewMessageBus(256)
	mgr := channels.NewManager(msgBus)
	pairing := store.NewMemoryPairingStore()

	if err := wireChannels(cfg, msgBus, mgr, pairing); err != nil {
		return nil, err
	}

	approvalMgr := approval.NewManager()
	approvalMgr.SetPolicy(approvalPolicyFromConfig(cfg.Tools.ExecApproval))

	sandboxCfg := sandbox.DefaultConfig()
	if sb := cfg.Agents.Defaults.Sandbox; sb != nil {
		sandboxCfg = sb.ToSandboxConfig()
	}

	storageDir := expandHome(cfg.Sessions.Storage)

	return &gatewayRuntime{
		cfg:       cfg,
		bus:       msgBus,
		channels:  mgr,
		approvals: approvalMgr,
		safety:    safety.NewDefaultLayer(),
		scheduler: cron.NewScheduler(),
		sessions:  sessions.NewManager(storageDir),
		profile:   sandboxCfg.ProfileForMode(),
	}, nil
}

// wireChannels registers every enabled vendor channel from config. Telegram
// and Discord are not wired: both upstream adapters import a typing-status
// helper package that was never captured for this build, so they're left
// out rather than shipped broken (see DESIGN.md).
func wireChannels(cfg *config.Config, msgBus *bus.MessageBus, mgr *channels.Manager, pairing store.PairingStore) error {
	if cfg.Channels.Feishu.Enabled {
		ch, err := feishu.New(cfg.Channels.Feishu, msgBus, pairing)
		if err != nil {
			return err
		}
		mgr.RegisterChannel("feishu", ch)
	}
	if cfg.Channels.Zalo.Enabled {
		ch, err := zalo.New(cfg.Channels.Zalo, msgBus, pairing)
		if err != nil {
			return err
		}
		mgr.RegisterChannel("zalo", ch)
	}
	if cfg.Channels.WhatsApp.Enabled {
		ch, err := whatsapp.New(cfg.Channels.WhatsApp, msgBus, pairing)
		if err != nil {
			return err
		}
		mgr.RegisterChannel("whatsapp", ch)
	}
	return nil
}

// approvalPolicyFromConfig translates the exec-approval block's ask/security
// settings into an approval.Policy. "ask: always" clears every auto-approve
// rule so nothing bypasses the pending workflow; otherwise the configured
// allowlist (if any) is auto-approved and everything else still goes
// through Manager.Request.
func approvalPolicyFromConfig(cfg config.ExecApprovalCfg) approval.Policy {
	if cfg.Ask == "always" {
		return approval.Policy{}
	}
	if cfg.Security == "deny" {
		return approval.Policy{AutoDenyPatterns: []approval.Pattern{{ToolPattern: ".*"}}}
	}
	return approval.Policy{AutoApprove: cfg.Allowlist}
}

// runCronLoop polls the scheduler once a second and fires any job whose
// next tick has arrived by publishing its prompt onto the bus as an inbound
// message addressed to its agent, the same entrypoint a channel message
// uses. Firing is recorded via RecordRun so the next tick isn't re-fired.
func (rt *gatewayRuntime) runCronLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	fired := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, job := range rt.scheduler.List() {
				if !job.Enabled {
					continue
				}
				next, ok := cron.NextRun(job.Schedule)
				if !ok || next.After(now) {
					continue
				}
				if last, ok := fired[job.ID]; ok && !next.After(last) {
					continue
				}
				fired[job.ID] = next

				rt.bus.PublishInbound(bus.InboundMessage{
					Channel:  "cron",
					SenderID: "cron",
					ChatID:   "cron:" + job.ID,
					Content:  job.Prompt,
					AgentID:  job.AgentID,
				})
				if _, err := rt.scheduler.RecordRun(job.ID); err != nil {
					slog.Warn("failed to record cron run", "job", job.ID, "error", err)
				}
			}
		}
	}
}

// runApprovalExpiry periodically reaps approval requests that timed out
// without a response, matching the manager's own WithTimeout contract.
func (rt *gatewayRuntime) runApprovalExpiry(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rt.approvals.CleanupExpired()
		}
	}
}

func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			return home + path[1:]
		}
	}
	return path
}
