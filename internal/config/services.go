package config

import (
	"time"
)

type GradingSvcCfg struct {
	Workers     int
	QueueKey    string
	PollTimeout time.Duration
	StatusTTL   time.Duration
	// JobTimeout bounds a whole batch picked from the queue
	JobTimeout time.Duration
}

func NewGradingSvcCfg() *GradingSvcCfg {
	workers := getIntEnv("GRADING_WORKERS", 2)
	if workers <= 0 {
		workers = 1
	}
	return &GradingSvcCfg{
		Workers:     workers,
		QueueKey:    getEnv("GRADING_QUEUE_KEY", "grader:queue"),
		PollTimeout: time.Duration(getIntEnv("GRADING_POLL_TIMEOUT_SEC", 5)) * time.Second,
		StatusTTL:   time.Duration(getIntEnv("GRADING_STATUS_TTL_SEC", 3600)) * time.Second,
		JobTimeout:  time.Duration(getIntEnv("GRADING_JOB_TIMEOUT_SEC", 600)) * time.Second,
	}
}
