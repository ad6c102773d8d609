package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	database "github.com/Armour007/wellness-backend/internal"
	"github.com/Armour007/wellness-backend/internal/logging"
	"github.com/Armour007/wellness-backend/internal/reporting"
	"github.com/Armour007/wellness-backend/internal/utils"
)

const defaultLookback = 7 * 24 * time.Hour

var errBreakerOpen = errors.New("circuit open")

// Scheduled department report delivery. Schedules persist in report_schedules
// and are re-registered at startup.
var (
	sched    *cron.Cron
	schedMu  sync.Mutex
	deptJobs = map[int64]cron.EntryID{}

	webhookClient = &http.Client{Timeout: 10 * time.Second}
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// StartReportScheduler starts the cron runner and loads persisted schedules.
func StartReportScheduler(ctx context.Context) error {
	schedMu.Lock()
	if sched == nil {
		sched = cron.New(cron.WithParser(cronParser), cron.WithLocation(time.UTC))
		sched.Start()
	}
	schedMu.Unlock()
	return LoadReportSchedules(ctx)
}

// StopReportScheduler stops the runner and waits for running jobs.
func StopReportScheduler() {
	schedMu.Lock()
	s := sched
	sched = nil
	deptJobs = map[int64]cron.EntryID{}
	schedMu.Unlock()
	if s != nil {
		<-s.Stop().Done()
	}
}

func lookbackOf(s database.ReportSchedule) time.Duration {
	if d, err := time.ParseDuration(s.Lookback); err == nil && d > 0 {
		return d
	}
	return defaultLookback
}

func validateSchedule(s database.ReportSchedule) error {
	if _, err := cronParser.Parse(s.Cron); err != nil {
		return fmt.Errorf("invalid cron: %w", err)
	}
	if s.Lookback != "" {
		if d, err := time.ParseDuration(s.Lookback); err != nil || d <= 0 {
			return fmt.Errorf("lookback must be a positive duration such as 168h")
		}
	}
	u, err := url.Parse(s.WebhookURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("webhook_url must be an http(s) URL")
	}
	return nil
}

// registerJob replaces the department's cron entry. No-op before the scheduler starts.
func registerJob(s database.ReportSchedule) error {
	schedMu.Lock()
	defer schedMu.Unlock()
	if sched == nil {
		return nil
	}
	if id, ok := deptJobs[s.DepartmentID]; ok {
		sched.Remove(id)
		delete(deptJobs, s.DepartmentID)
	}
	id, err := sched.AddFunc(s.Cron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := runReport(ctx, s); err != nil {
			logging.L().Warn("report delivery failed", zap.Int64("department_id", s.DepartmentID), zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	deptJobs[s.DepartmentID] = id
	return nil
}

func unregisterJob(departmentID int64) {
	schedMu.Lock()
	defer schedMu.Unlock()
	if id, ok := deptJobs[departmentID]; ok {
		if sched != nil {
			sched.Remove(id)
		}
		delete(deptJobs, departmentID)
	}
}

func saveReportSchedule(ctx context.Context, s *database.ReportSchedule) error {
	err := database.DB.QueryRowxContext(ctx, `INSERT INTO report_schedules(department_id, cron, webhook_url, secret, lookback, updated_at)
		VALUES($1,$2,$3,$4,$5,NOW())
		ON CONFLICT (department_id) DO UPDATE SET cron=EXCLUDED.cron, webhook_url=EXCLUDED.webhook_url, secret=EXCLUDED.secret, lookback=EXCLUDED.lookback, updated_at=NOW()
		RETURNING updated_at`,
		s.DepartmentID, s.Cron, s.WebhookURL, s.Secret, s.Lookback).Scan(&s.UpdatedAt)
	if err != nil {
		return err
	}
	return registerJob(*s)
}

func deleteReportSchedule(ctx context.Context, departmentID int64) (bool, error) {
	res, err := database.DB.ExecContext(ctx, `DELETE FROM report_schedules WHERE department_id=$1`, departmentID)
	if err != nil {
		return false, err
	}
	unregisterJob(departmentID)
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func listReportSchedules(ctx context.Context) ([]database.ReportSchedule, error) {
	rows := []database.ReportSchedule{}
	err := database.DB.SelectContext(ctx, &rows, `SELECT department_id, cron, webhook_url, secret, lookback, updated_at FROM report_schedules ORDER BY department_id`)
	return rows, err
}

// LoadReportSchedules registers every persisted schedule. Invalid rows are skipped.
func LoadReportSchedules(ctx context.Context) error {
	rows, err := listReportSchedules(ctx)
	if err != nil {
		return fmt.Errorf("load report schedules: %w", err)
	}
	for _, s := range rows {
		if err := registerJob(s); err != nil {
			logging.L().Warn("skip report schedule", zap.Int64("department_id", s.DepartmentID), zap.Error(err))
		}
	}
	logging.L().Info("report schedules loaded", zap.Int("count", len(rows)))
	return nil
}

// runReport builds the lookback window report and delivers it.
func runReport(ctx context.Context, s database.ReportSchedule) error {
	until := clock().UTC()
	rep, err := reporting.BuildDepartmentReport(ctx, s.DepartmentID, reporting.Filter{From: until.Add(-lookbackOf(s)), Until: until})
	if err != nil {
		return err
	}
	body, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	return deliverReport(ctx, s, body)
}

// deliverReport POSTs a signed report behind the destination's breaker.
func deliverReport(ctx context.Context, s database.ReportSchedule, body []byte) error {
	u, err := url.Parse(s.WebhookURL)
	if err != nil {
		return err
	}
	cb := GetBreaker("report_webhook:" + u.Host)
	if !cb.Allow() {
		RecordExternalOp("report_webhook", 0, false)
		return fmt.Errorf("%s: %w", u.Host, errBreakerOpen)
	}
	ts := clock().Unix()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Wellness-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Wellness-Signature", utils.ComputeWebhookSignature(s.Secret, ts, body))
	req.Header.Set("X-Wellness-Department", strconv.FormatInt(s.DepartmentID, 10))

	start := time.Now()
	resp, err := webhookClient.Do(req)
	if err == nil {
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			err = fmt.Errorf("webhook returned %d", resp.StatusCode)
		}
	}
	RecordExternalOp("report_webhook", time.Since(start), err == nil)
	if err != nil {
		cb.ReportFailure()
		return err
	}
	cb.ReportSuccess()
	return nil
}
