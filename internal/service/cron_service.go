package service

import (
	"context"
	"time"

	"github.com/chnk8802/task-manager/internal/config"
	"github.com/chnk8802/task-manager/pkg/utils/zaplogger"
	"github.com/robfig/cron/v3"
)

const pruneJobTimeout = 10 * time.Minute

// CronService is the service for the cron jobs
type CronService struct {
	cfg            *config.Config
	c              *cron.Cron
	sessionService *SessionService
}

// NewCronService creates a new CronService
func NewCronService(cfg *config.Config, sessionService *SessionService) *CronService {
	return &CronService{
		cfg:            cfg,
		c:              cron.New(),
		sessionService: sessionService,
	}
}

// Start starts the cron service
func (cs *CronService) Start() {
	zaplogger.Info("Initializing CronService")

	// ------------------------------------------------------------
	// SCHEDULED jobs
	// ------------------------------------------------------------
	cs.addScheduledJob("Session PRUNE Job", cs.sessionPruneJob, cs.cfg.SessionPruneSchedule)

	// ------------------------------------------------------------
	// STARTUP jobs
	// ------------------------------------------------------------
	cs.addStartupJob("Session PRUNE Job", cs.sessionPruneJob, 5*time.Second)

	cs.c.Start()
}

// Stop stops the scheduler and waits for running jobs
func (cs *CronService) Stop() {
	<-cs.c.Stop().Done()
}

// addStartupJob adds a startup job to the cron service
func (cs *CronService) addStartupJob(name string, job func(), delay time.Duration) {
	go func() {
		time.Sleep(delay)
		zaplogger.Info("STARTED STARTUP job", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED STARTUP job", zaplogger.Fields{
			"job": name,
		})
	}()
	zaplogger.Info("QUEUED STARTUP job", zaplogger.Fields{
		"job": name,
	})
}

func (cs *CronService) addScheduledJob(name string, job func(), schedule string) {
	_, err := cs.c.AddFunc(schedule, func() {
		zaplogger.Info("STARTED SCHEDULED JOB", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED SCHEDULED JOB", zaplogger.Fields{
			"job": name,
		})
	})
	if err != nil {
		zaplogger.Error("FAILED TO QUEUE SCHEDULED JOB", zaplogger.Fields{
			"job":   name,
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info("QUEUED SCHEDULED job", zaplogger.Fields{
		"job":      name,
		"schedule": schedule,
	})
}

// sessionPruneJob removes expired session tokens from all accounts
func (cs *CronService) sessionPruneJob() {
	jobName := "Session PRUNE Job "
	ctx, cancel := context.WithTimeout(context.Background(), pruneJobTimeout)
	defer cancel()

	accounts, tokens, err := cs.sessionService.PruneExpired(ctx)
	if err != nil {
		zaplogger.Error(jobName, zaplogger.Fields{
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info(jobName, zaplogger.Fields{
		"accounts_pruned": accounts,
		"tokens_removed":  tokens,
	})
}
