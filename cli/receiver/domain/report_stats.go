package domain

import (
	"fmt"

	cron "github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const DefaultStatsCronExpression = "@every 1m"

type Counter interface {
	Count() int
}

type Stats struct {
	Vehicles int `json:"vehicles"`
	Sessions int `json:"sessions"`
}

// ReportStats периодически пишет в лог размер состояния
type ReportStats struct {
	Positions Counter
	Sessions  Counter

	CronExpression string

	cronScheduler *cron.Cron
}

func (domain *ReportStats) Run() Stats {
	stats := Stats{
		Vehicles: domain.Positions.Count(),
		Sessions: domain.Sessions.Count(),
	}

	log.WithFields(log.Fields{
		"vehicles": stats.Vehicles,
		"sessions": stats.Sessions,
	}).Info("Статистика приемника")

	return stats
}

func (domain *ReportStats) Initialize() error {
	expression := domain.CronExpression
	if expression == "" {
		expression = DefaultStatsCronExpression
	}

	domain.cronScheduler = cron.New()
	if _, err := domain.cronScheduler.AddFunc(expression, func() { domain.Run() }); err != nil {
		return fmt.Errorf("ошибка при настройке cron-задачи: %w", err)
	}

	domain.cronScheduler.Start()
	log.Infof("Запланирован вывод статистики по расписанию %s", expression)

	return nil
}

func (domain *ReportStats) Shutdown() {
	if domain.cronScheduler != nil {
		domain.cronScheduler.Stop()
		log.Info("Cron-планировщик остановлен")
	}
}
