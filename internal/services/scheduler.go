package services

import (
	"context"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Scheduler runs a job on a cron spec. A run that is still going when the
// next one is due makes the next one skip.
type Scheduler struct {
	cron *cron.Cron
	spec string
}

func NewScheduler(ctx context.Context, spec string, job func(ctx context.Context)) (*Scheduler, error) {

	cronLogger := cron.PrintfLogger(log.StandardLogger())
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	_, err := c.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		job(ctx)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "invalid schedule %q", spec)
	}

	return &Scheduler{cron: c, spec: spec}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	entries := s.cron.Entries()
	if len(entries) > 0 {
		log.Infof("scheduler started with %q, next run at %v", s.spec, entries[0].Next)
	}
}

// Stop prevents new runs and waits for the running one to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info("scheduler stopped")
}
