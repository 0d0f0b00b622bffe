package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"

	"SavingsDAO/internal/dao"
	"SavingsDAO/internal/notifier"
	"SavingsDAO/internal/recorder"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the periodic treasury jobs and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Service  *dao.Service
	Notifier notifier.Sender
	Recorder recorder.Recorder
	Units    notifier.Units
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler. sender may be nil when chat
// delivery is not configured.
func NewScheduler(ctx context.Context, svc *dao.Service, sender notifier.Sender, rec recorder.Recorder, units notifier.Units) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Service:  svc,
		Notifier: sender,
		Recorder: rec,
		Units:    units,
		Ctx:      ctx,
	}
}

// RegisterAll registers the expiry sweep, the pool snapshot and the weekly report.
func (s *Scheduler) RegisterAll(sweepCron, snapshotCron, reportCron string) error {
	if _, err := s.Cron.AddFunc(sweepCron, s.sweepExpired); err != nil {
		return fmt.Errorf("register sweep task: %w", err)
	}
	if _, err := s.Cron.AddFunc(snapshotCron, s.poolSnapshot); err != nil {
		return fmt.Errorf("register snapshot task: %w", err)
	}
	if reportCron != "" {
		if _, err := s.Cron.AddFunc(reportCron, s.weeklyReport); err != nil {
			return fmt.Errorf("register report task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

func (s *Scheduler) sweepExpired() {
	expired, err := s.Service.SweepExpired()
	if err != nil {
		log.Printf("[ERROR] sweep expired proposals: %v", err)
		return
	}
	if len(expired) > 0 {
		log.Printf("[INFO] swept %d expired proposal(s)", len(expired))
	}
}

func (s *Scheduler) poolSnapshot() {
	sum := s.Service.Summary()
	if err := s.Recorder.RecordSnapshot(&recorder.PoolSnapshot{
		Stable:        sum.Pool.Stable,
		Reward:        sum.Pool.Reward,
		Members:       sum.Members,
		VotingPower:   sum.VotingPower,
		OpenProposals: sum.OpenProposals,
		Digest:        sum.Digest,
	}); err != nil {
		log.Printf("[ERROR] record pool snapshot: %v", err)
	}
}

func (s *Scheduler) weeklyReport() {
	log.Println("[INFO] running weekly report")
	report := notifier.FormatWeeklyReport(s.Service.Summary(), s.Service.Proposals(), s.Units)
	s.trySend(report)
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	// Group chats append the bot name: /pool@savings_bot.
	if i := strings.IndexByte(command, '@'); i > 0 {
		command = command[:i]
	}
	switch command {
	case "/pool":
		return notifier.FormatSummary(s.Service.Summary(), s.Units)
	case "/proposals":
		sum := s.Service.Summary()
		return notifier.FormatProposals(s.Service.Proposals(), sum.At)
	case "/power":
		return notifier.FormatVotingPower(s.Service.Summary())
	case "/report":
		s.weeklyReport()
		return ""
	default:
		return "Available commands:\n• /pool\n• /proposals\n• /power\n• /report"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
